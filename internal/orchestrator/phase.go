package orchestrator

import (
	"fmt"

	"github.com/loykin/stagehand/internal/errdefs"
)

// Phase is one step of the service lifecycle.
type Phase string

const (
	PhaseInstall   Phase = "install"
	PhaseConfigure Phase = "configure"
	PhaseInit      Phase = "init"
	PhaseStart     Phase = "start"
	PhaseStop      Phase = "stop"
	PhaseCleanup   Phase = "cleanup"
)

// Phases lists all phases in lifecycle order.
func Phases() []Phase {
	return []Phase{PhaseInstall, PhaseConfigure, PhaseInit, PhaseStart, PhaseStop, PhaseCleanup}
}

// ParsePhase validates a phase name from the CLI or API.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown phase %q", errdefs.ErrConfigInvalid, s)
}

// Forward reports whether the phase walks units in dependency order.
// Stop and cleanup walk in reverse.
func (p Phase) Forward() bool {
	return p != PhaseStop && p != PhaseCleanup
}

func (p Phase) String() string { return string(p) }
