package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/stagehand/internal/errdefs"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	body := `
host = "local"

[topology.hosts.local]
address = "127.0.0.1"
role = "controller"

[[units]]
name = "northd"
host = "local"
depends_on = ["nb-db"]

[[units]]
name = "nb-db"
host = "local"
`
	path := filepath.Join(t.TempDir(), "stagehand.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOrderCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "order", "-c", cfg)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "nb-db") || !strings.HasPrefix(lines[1], "northd") {
		t.Fatalf("order output:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "validate", "-c", cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "ok: 2 units") {
		t.Fatalf("validate output: %s", out)
	}
}

func TestValidateMissingConfigExitCode(t *testing.T) {
	_, err := runCLI(t, "validate", "-c", filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	if errdefs.ExitCode(err) != errdefs.ExitConfigInvalid {
		t.Fatalf("exit code = %d", errdefs.ExitCode(err))
	}
}

func TestRunRejectsUnknownPhase(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := runCLI(t, "run", "-c", cfg, "--phase", "reboot")
	if !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestRunInitNoHooks(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "run", "-c", cfg, "--phase", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
}
