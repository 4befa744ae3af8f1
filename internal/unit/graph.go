package unit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loykin/stagehand/internal/errdefs"
)

// TopologicalOrder returns the units in an order where every unit appears
// after everything in its DependsOn. Among units whose dependencies are all
// satisfied, names ascend, so the order is reproducible across runs. A cycle
// yields ErrCyclicDependency naming the units left on the cycle.
func TopologicalOrder(units []Unit) ([]Unit, error) {
	byName := make(map[string]*Unit, len(units))
	for i := range units {
		u := &units[i]
		if _, dup := byName[u.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate unit %s", errdefs.ErrConfigInvalid, u.Name)
		}
		byName[u.Name] = u
	}

	indegree := make(map[string]int, len(units))
	dependents := make(map[string][]string, len(units))
	for i := range units {
		u := &units[i]
		indegree[u.Name] += 0
		for _, dep := range u.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("%w: unit %s depends on unknown unit %s", errdefs.ErrConfigInvalid, u.Name, dep)
			}
			indegree[u.Name]++
			dependents[dep] = append(dependents[dep], u.Name)
		}
	}

	ready := make([]string, 0, len(units))
	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	out := make([]Unit, 0, len(units))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, *byName[name])
		released := false
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(out) != len(units) {
		remaining := make([]string, 0)
		for name, d := range indegree {
			if d > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w: units %s", errdefs.ErrCyclicDependency, strings.Join(remaining, ", "))
	}
	return out, nil
}

// Dependents returns the transitive dependents of name, i.e. every unit that
// directly or indirectly depends on it. Used to skip downstream units once an
// upstream one fails.
func Dependents(units []Unit, name string) map[string]bool {
	direct := make(map[string][]string, len(units))
	for i := range units {
		for _, dep := range units[i].DependsOn {
			direct[dep] = append(direct[dep], units[i].Name)
		}
	}
	out := make(map[string]bool)
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range direct[cur] {
			if !out[d] {
				out[d] = true
				queue = append(queue, d)
			}
		}
	}
	return out
}

// Reverse returns a reversed copy, for stop/cleanup ordering.
func Reverse(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i := range units {
		out[len(units)-1-i] = units[i]
	}
	return out
}
