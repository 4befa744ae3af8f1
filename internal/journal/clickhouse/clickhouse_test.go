package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/stagehand/internal/journal"
)

// setupClickHouseContainer starts a ClickHouse container for testing
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	return clickHouseContainer, host + ":" + port.Port()
}

// setupSinkWithTable creates a sink and the journal table it writes to
func setupSinkWithTable(ctx context.Context, t *testing.T, addr, tableName string) *Sink {
	t.Helper()

	sink, err := New(addr, tableName)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	err = sink.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+tableName+` (
			occurred_at DateTime64(6),
			event String,
			host String,
			phase String,
			unit String,
			state String,
			pid Int64,
			detail String
		) ENGINE = MergeTree()
		ORDER BY (occurred_at, host)
	`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return sink
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	clickHouseContainer, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := clickHouseContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink := setupSinkWithTable(ctx, t, addr, "orchestration_journal")
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	events := []journal.Event{
		{
			Type:       journal.EventPhaseBegin,
			OccurredAt: time.Now().UTC(),
			Host:       "db-host",
			Phase:      "start",
		},
		{
			Type:       journal.EventUnitState,
			OccurredAt: time.Now().UTC(),
			Host:       "db-host",
			Phase:      "start",
			Unit:       "nb-db",
			State:      "up",
			PID:        12345,
		},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send %s event: %v", e.Type, err)
		}
	}

	var count uint64
	err := sink.conn.QueryRow(ctx,
		"SELECT count() FROM orchestration_journal WHERE host = ?", "db-host").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query orchestration_journal: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events in journal, got %d", count)
	}

	var unitName, state string
	err = sink.conn.QueryRow(ctx,
		"SELECT unit, state FROM orchestration_journal WHERE event = ?", string(journal.EventUnitState)).
		Scan(&unitName, &state)
	if err != nil {
		t.Fatalf("Failed to query unit state row: %v", err)
	}
	if unitName != "nb-db" || state != "up" {
		t.Errorf("Stored transition = %s/%s, want nb-db/up", unitName, state)
	}
}
