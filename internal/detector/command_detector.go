package detector

import (
	"errors"
	"os/exec"
	"strings"
)

// CommandDetector runs a probe command that exits 0 once the service is
// ready, e.g. "ovs-vsctl show" or "ovn-nbctl --timeout=2 ls-list".
type CommandDetector struct{ Command string }

// buildProbeCommand constructs an *exec.Cmd for a probe. It only involves a
// shell when metacharacters require one.
func buildProbeCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

func (d CommandDetector) Ready() (bool, error) {
	cmd := buildProbeCommand(d.Command)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		// Nonzero exit means not ready yet, not a probe failure.
		return false, nil
	}
	return false, err
}

func (d CommandDetector) Describe() string { return "cmd:" + d.Command }
