package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/loykin/stagehand/internal/errdefs"
	"github.com/loykin/stagehand/internal/unit"
)

const stderrTailBytes = 2048

// runHook executes one phase hook and blocks until it exits or its timeout
// elapses. Failures carry the command, exit code and a stderr tail.
func runHook(ctx context.Context, h *unit.Hook, extraEnv []string) error {
	hctx, cancel := context.WithTimeout(ctx, h.EffectiveTimeout())
	defer cancel()

	cmd := unit.BuildCommand(h.Command)
	if h.WorkDir != "" {
		cmd.Dir = h.WorkDir
	}
	env := os.Environ()
	env = append(env, h.Env...)
	env = append(env, extraEnv...)
	cmd.Env = env

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("hook %s: %w: %v", h.Name, errdefs.ErrExternalCommand, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-hctx.Done():
		_ = cmd.Process.Kill()
		<-done
		if ctx.Err() != nil {
			return fmt.Errorf("hook %s: %w", h.Name, errdefs.ErrCancelled)
		}
		return fmt.Errorf("hook %s timed out after %v: %w", h.Name, h.EffectiveTimeout(), errdefs.ErrExternalCommand)
	case err := <-done:
		if err == nil {
			return nil
		}
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		return fmt.Errorf("hook %s: %w", h.Name, &errdefs.CommandError{
			Command:    h.Command,
			ExitCode:   code,
			StderrTail: tail(stderr.Bytes(), stderrTailBytes),
		})
	}
}

// commandSucceeds runs a probe command and reports whether it exited 0.
// Probe errors are treated as "no" rather than failures.
func commandSucceeds(ctx context.Context, cmdStr string) bool {
	cmd := unit.BuildCommand(cmdStr)
	if err := cmd.Start(); err != nil {
		return false
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return false
	case err := <-done:
		return err == nil
	}
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
