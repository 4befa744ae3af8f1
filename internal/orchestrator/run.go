package orchestrator

import (
	"sync"
	"time"

	"github.com/loykin/stagehand/internal/metrics"
	"github.com/loykin/stagehand/internal/unit"
)

// Run carries the state of one phase execution. All orchestration state lives
// here rather than in package globals so embedders can hold several
// orchestrators side by side.
type Run struct {
	Phase     Phase
	Host      string
	StartedAt time.Time

	mu     sync.Mutex
	states map[string]unit.State
}

func newRun(phase Phase, host string, units []unit.Unit) *Run {
	states := make(map[string]unit.State, len(units))
	for i := range units {
		states[units[i].Name] = unit.StateNotStarted
	}
	return &Run{Phase: phase, Host: host, StartedAt: time.Now(), states: states}
}

func (r *Run) setState(name string, s unit.State) {
	r.mu.Lock()
	prev := r.states[name]
	r.states[name] = s
	r.mu.Unlock()
	metrics.RecordStateTransition(name, prev.String(), s.String())
}

// States returns a copy of the per-unit state map.
func (r *Run) States() map[string]unit.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]unit.State, len(r.states))
	for k, v := range r.states {
		out[k] = v
	}
	return out
}
