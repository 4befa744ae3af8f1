package unit

import (
	"os/exec"
	"strings"

	"github.com/loykin/stagehand/internal/detector"
	"github.com/loykin/stagehand/internal/logger"
)

// ReadinessConfig is the parseable form of a readiness check.
type ReadinessConfig struct {
	Type    string `mapstructure:"type"`
	Path    string `mapstructure:"path"`
	Command string `mapstructure:"command"`
}

// ProcessSpec describes one daemon a unit launches. Command is a single
// string; a shell is involved only when metacharacters require it.
type ProcessSpec struct {
	Name             string              `mapstructure:"name"`
	Command          string              `mapstructure:"command"`
	WorkDir          string              `mapstructure:"workdir"`
	Env              []string            `mapstructure:"env"`
	PIDFile          string              `mapstructure:"pidfile"`
	ReadinessConfigs []ReadinessConfig   `mapstructure:"readiness"`
	Readiness        []detector.Detector `mapstructure:"-"`
	Log              logger.Config       `mapstructure:"log"`
}

// Checks returns the readiness detectors for this process. A pidfile adds an
// implicit liveness check ahead of the declared ones.
func (p *ProcessSpec) Checks() []detector.Detector {
	dets := make([]detector.Detector, 0, len(p.Readiness)+1)
	if p.PIDFile != "" {
		dets = append(dets, detector.PIDFileDetector{PIDFile: p.PIDFile})
	}
	dets = append(dets, p.Readiness...)
	return dets
}

// BuildCommand constructs an *exec.Cmd for the spec. An explicit "sh -c ..."
// prefix is honored without wrapping in a second shell.
func (p *ProcessSpec) BuildCommand() *exec.Cmd {
	return buildShellAware(p.Command)
}

// BuildCommand builds an *exec.Cmd from a single command string with the same
// shell rules as ProcessSpec commands. Hooks and probes share it.
func BuildCommand(cmdStr string) *exec.Cmd {
	return buildShellAware(cmdStr)
}

func buildShellAware(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if after, ok := stripExplicitShell(cmdStr); ok {
		// Absolute shell path so PATH overrides in Env cannot break startup.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

// stripExplicitShell detects a leading "sh -c " (or absolute-path variant)
// and returns the script after "-c", with one pair of wrapping quotes removed
// so redirections inside the script still parse.
func stripExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if !strings.HasPrefix(trim, p) {
			continue
		}
		after := trim[len(p):]
		if n := len(after); n >= 2 {
			if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
				after = after[1 : n-1]
			}
		}
		return after, true
	}
	return "", false
}
