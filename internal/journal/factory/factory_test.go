package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/stagehand/internal/journal"
	"github.com/loykin/stagehand/internal/journal/sqlite"
)

func TestSQLiteDSNDispatch(t *testing.T) {
	for _, dsn := range []string{
		":memory:",
		"sqlite://:memory:",
		filepath.Join(t.TempDir(), "j.db"),
	} {
		sink, err := NewSinkFromDSN(dsn)
		if err != nil {
			t.Fatalf("dsn %q: %v", dsn, err)
		}
		if _, ok := sink.(*sqlite.Sink); !ok {
			t.Fatalf("dsn %q: expected sqlite sink, got %T", dsn, sink)
		}
		if err := sink.Send(context.Background(), journal.Event{
			Type: journal.EventPhaseBegin, OccurredAt: time.Now(), Host: "h", Phase: "configure",
		}); err != nil {
			t.Fatalf("dsn %q send: %v", dsn, err)
		}
		_ = sink.(*sqlite.Sink).Close()
	}
}

func TestUnsupportedDSN(t *testing.T) {
	if _, err := NewSinkFromDSN("kafka://broker:9092/topic"); err == nil {
		t.Fatalf("unsupported DSN accepted")
	}
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatalf("empty DSN accepted")
	}
}
