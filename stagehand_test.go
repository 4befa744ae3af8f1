package stagehand

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAndRunFacade(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "configured")
	body := `
host = "local"
identity_file = "` + filepath.Join(dir, "system-id") + `"

[journal]
dsn = "sqlite://` + filepath.Join(dir, "journal.db") + `"

[topology.hosts.local]
address = "127.0.0.1"
role = "controller"

[[units]]
name = "nb-db"
host = "local"

[units.hooks]
configure = [{ name = "mark", command = "touch ` + marker + `" }]
`
	path := filepath.Join(dir, "stagehand.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	orch, closeSink, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = closeSink() }()

	if err := orch.Run(context.Background(), PhaseConfigure, ""); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("configure hook did not run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "system-id")); err != nil {
		t.Fatalf("identity file not created: %v", err)
	}
	ordered, err := orch.Order()
	if err != nil || len(ordered) != 1 {
		t.Fatalf("order = %v, %v", ordered, err)
	}
}

func TestParsePhase(t *testing.T) {
	if _, err := ParsePhase("start"); err != nil {
		t.Fatalf("parse start: %v", err)
	}
	if _, err := ParsePhase("reboot"); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}
