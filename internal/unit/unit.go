package unit

import (
	"fmt"
	"strings"
	"time"
)

// Unit is a named logical service: one or more daemons started together,
// with declared dependencies on other units and a host placement.
type Unit struct {
	Name      string   `mapstructure:"name"`
	DependsOn []string `mapstructure:"depends_on"`
	Host      string   `mapstructure:"host"`

	// Resettable opts the unit into destructive state reset during the init
	// phase. Init removes ResetPaths only when this is set; units not so
	// marked are never touched.
	Resettable bool     `mapstructure:"resettable"`
	ResetPaths []string `mapstructure:"reset_paths"`

	// CheckCommand short-circuits install when it exits 0 (artifacts already
	// present).
	CheckCommand string `mapstructure:"check_command"`

	// RemoteEnv maps env var names to "<host-id>:<port>" references resolved
	// against the topology into tcp:<address>:<port> connection strings.
	RemoteEnv map[string]string `mapstructure:"remote_env"`

	Processes []ProcessSpec `mapstructure:"processes"`
	Hooks     Hooks         `mapstructure:"hooks"`

	// StartTimeout bounds the health gate for each process; PollInterval is
	// the gate's fixed polling cadence.
	StartTimeout time.Duration `mapstructure:"start_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Health gate defaults when a unit declares none.
const (
	DefaultStartTimeout = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

func (u *Unit) GateTimeout() time.Duration {
	if u.StartTimeout > 0 {
		return u.StartTimeout
	}
	return DefaultStartTimeout
}

func (u *Unit) GateInterval() time.Duration {
	if u.PollInterval > 0 {
		return u.PollInterval
	}
	return DefaultPollInterval
}

// safeName permits [A-Za-z0-9._-] and rejects traversal so unit names are
// usable in file paths and URLs.
func safeName(s string) bool {
	if s == "" || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

func (u *Unit) Validate() error {
	if !safeName(u.Name) {
		return fmt.Errorf("unit name %q: allowed [A-Za-z0-9._-], no traversal", u.Name)
	}
	if u.Host == "" {
		return fmt.Errorf("unit %s: host is required", u.Name)
	}
	for _, d := range u.DependsOn {
		if d == u.Name {
			return fmt.Errorf("unit %s depends on itself", u.Name)
		}
	}
	for i := range u.Processes {
		p := &u.Processes[i]
		if strings.TrimSpace(p.Command) == "" {
			return fmt.Errorf("unit %s: process %d requires command", u.Name, i)
		}
	}
	if len(u.ResetPaths) > 0 && !u.Resettable {
		return fmt.Errorf("unit %s declares reset_paths without resettable", u.Name)
	}
	if u.StartTimeout < 0 || u.PollInterval < 0 {
		return fmt.Errorf("unit %s: negative gate durations", u.Name)
	}
	for k, v := range u.RemoteEnv {
		if k == "" || !strings.Contains(v, ":") {
			return fmt.Errorf("unit %s: remote_env %q must reference <host>:<port>", u.Name, k)
		}
	}
	return u.Hooks.Validate()
}
