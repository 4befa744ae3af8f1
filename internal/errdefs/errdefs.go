package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the orchestration failure taxonomy. Callers match
// with errors.Is; the CLI maps each entry to a distinct exit code.
var (
	ErrConfigInvalid         = errors.New("config invalid")
	ErrCyclicDependency      = errors.New("cyclic dependency")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrStartupTimeout        = errors.New("startup timeout")
	ErrExternalCommand       = errors.New("external command failed")
	ErrCancelled             = errors.New("cancelled")
)

// CommandError reports a failed external command: the command string, its
// exit code and the tail of captured stderr.
type CommandError struct {
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *CommandError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, e.StderrTail)
}

func (e *CommandError) Unwrap() error { return ErrExternalCommand }

// Exit codes per taxonomy entry. 0 is success, 1 is any unclassified error.
const (
	ExitOK                    = 0
	ExitFailure               = 1
	ExitConfigInvalid         = 2
	ExitCyclicDependency      = 3
	ExitDependencyUnavailable = 4
	ExitStartupTimeout        = 5
	ExitExternalCommand       = 6
	ExitCancelled             = 7
)

// ExitCode maps err to the process exit code for the CLI surface.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfigInvalid):
		return ExitConfigInvalid
	case errors.Is(err, ErrCyclicDependency):
		return ExitCyclicDependency
	case errors.Is(err, ErrDependencyUnavailable):
		return ExitDependencyUnavailable
	case errors.Is(err, ErrStartupTimeout):
		return ExitStartupTimeout
	case errors.Is(err, ErrExternalCommand):
		return ExitExternalCommand
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	default:
		return ExitFailure
	}
}
