package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/stagehand/internal/journal"
)

func TestSendAndQueryInMemory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	events := []journal.Event{
		{Type: journal.EventPhaseBegin, OccurredAt: time.Now(), Host: "db1", Phase: "start"},
		{Type: journal.EventUnitState, OccurredAt: time.Now(), Host: "db1", Phase: "start", Unit: "nb-db", State: "up", PID: 42},
		{Type: journal.EventPhaseEnd, OccurredAt: time.Now(), Host: "db1", Phase: "start", Detail: "ok"},
	}
	for _, e := range events {
		if err := s.Send(ctx, e); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orchestration_journal`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(events) {
		t.Fatalf("rows = %d, want %d", n, len(events))
	}

	var unit, state string
	err = s.db.QueryRowContext(ctx,
		`SELECT unit, state FROM orchestration_journal WHERE event = ?`, string(journal.EventUnitState)).
		Scan(&unit, &state)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if unit != "nb-db" || state != "up" {
		t.Fatalf("unit=%q state=%q", unit, state)
	}
}

func TestNewCreatesFileAndPrefixAccepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Send(context.Background(), journal.Event{Type: journal.EventPhaseBegin, OccurredAt: time.Now(), Host: "h", Phase: "install"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRejectsEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("empty DSN accepted")
	}
}
