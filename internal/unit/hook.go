package unit

import (
	"fmt"
	"strings"
	"time"
)

// Hook is one external command run during a lifecycle phase (install,
// configure, init, cleanup). Hooks run in declaration order and block.
type Hook struct {
	Name    string        `mapstructure:"name"`
	Command string        `mapstructure:"command"`
	WorkDir string        `mapstructure:"workdir"`
	Env     []string      `mapstructure:"env"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultHookTimeout bounds a hook that declares no timeout of its own.
const DefaultHookTimeout = 30 * time.Second

func (h *Hook) Validate() error {
	name := strings.TrimSpace(h.Name)
	if name == "" {
		return fmt.Errorf("hook name is required")
	}
	if strings.ContainsAny(name, " \t\n\r/\\<>:\"|?*") {
		return fmt.Errorf("hook %q: name contains invalid characters", name)
	}
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %q requires command", name)
	}
	if strings.Contains(h.WorkDir, "..") {
		return fmt.Errorf("hook %q: workdir cannot contain '..'", name)
	}
	if h.Timeout < 0 {
		return fmt.Errorf("hook %q: timeout cannot be negative", name)
	}
	for i, env := range h.Env {
		if !strings.Contains(env, "=") {
			return fmt.Errorf("hook %q: env[%d] %q must be KEY=VALUE", name, i, env)
		}
	}
	return nil
}

// EffectiveTimeout returns the declared timeout or the default.
func (h *Hook) EffectiveTimeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return DefaultHookTimeout
}

// Hooks groups the per-phase commands of a unit. Start and stop have no
// hooks; they are process spawn/signal, not external commands.
type Hooks struct {
	Install   []Hook `mapstructure:"install"`
	Configure []Hook `mapstructure:"configure"`
	Init      []Hook `mapstructure:"init"`
	Cleanup   []Hook `mapstructure:"cleanup"`
}

func (hs *Hooks) Validate() error {
	seen := make(map[string]string)
	for phase, hooks := range map[string][]Hook{
		"install": hs.Install, "configure": hs.Configure, "init": hs.Init, "cleanup": hs.Cleanup,
	} {
		for i := range hooks {
			h := &hooks[i]
			if err := h.Validate(); err != nil {
				return fmt.Errorf("%s hook %d: %w", phase, i, err)
			}
			if prev, dup := seen[h.Name]; dup {
				return fmt.Errorf("duplicate hook name %q in %s and %s", h.Name, prev, phase)
			}
			seen[h.Name] = phase
		}
	}
	return nil
}
