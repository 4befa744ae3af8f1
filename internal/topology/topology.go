package topology

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/loykin/stagehand/internal/errdefs"
)

// Role classifies what a logical host runs.
type Role string

const (
	RoleDB         Role = "db"
	RoleController Role = "controller"
	RoleCompute    Role = "compute"
)

func (r Role) valid() bool {
	switch r {
	case RoleDB, RoleController, RoleCompute:
		return true
	}
	return false
}

// Host is one logical host's static description.
type Host struct {
	Address string `mapstructure:"address"`
	Role    Role   `mapstructure:"role"`
}

// Topology maps host ids to their description. Immutable after New.
type Topology struct {
	hosts map[string]Host
}

func New(hosts map[string]Host) (*Topology, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: topology declares no hosts", errdefs.ErrConfigInvalid)
	}
	m := make(map[string]Host, len(hosts))
	for id, h := range hosts {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: empty host id", errdefs.ErrConfigInvalid)
		}
		if h.Address == "" {
			return nil, fmt.Errorf("%w: host %s has no address", errdefs.ErrConfigInvalid, id)
		}
		if !h.Role.valid() {
			return nil, fmt.Errorf("%w: host %s has invalid role %q", errdefs.ErrConfigInvalid, id, h.Role)
		}
		m[id] = h
	}
	return &Topology{hosts: m}, nil
}

// Host looks up one host.
func (t *Topology) Host(id string) (Host, bool) {
	h, ok := t.hosts[id]
	return h, ok
}

// Hosts returns all host ids, sorted.
func (t *Topology) Hosts() []string {
	ids := make([]string, 0, len(t.hosts))
	for id := range t.hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remote resolves a "<host-id>:<port>" reference into the opaque connection
// string handed to dependent daemons: tcp:<address>:<port>.
func (t *Topology) Remote(ref string) (string, error) {
	id, portStr, ok := strings.Cut(ref, ":")
	if !ok {
		return "", fmt.Errorf("%w: remote reference %q must be <host>:<port>", errdefs.ErrConfigInvalid, ref)
	}
	h, found := t.hosts[id]
	if !found {
		return "", fmt.Errorf("%w: remote reference %q names unknown host", errdefs.ErrConfigInvalid, ref)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("%w: remote reference %q has invalid port", errdefs.ErrConfigInvalid, ref)
	}
	return fmt.Sprintf("tcp:%s:%d", h.Address, port), nil
}
