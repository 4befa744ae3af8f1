package journal

import (
	"context"
	"time"
)

// EventType classifies an orchestration event.
type EventType string

const (
	EventPhaseBegin EventType = "phase_begin"
	EventPhaseEnd   EventType = "phase_end"
	EventUnitState  EventType = "unit_state"
)

// Event is one orchestration journal entry: either a phase boundary for the
// whole run or a unit state transition.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Host       string    `json:"host"`
	Phase      string    `json:"phase"`
	Unit       string    `json:"unit,omitempty"`
	State      string    `json:"state,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for orchestration events. Implementations must be
// safe for concurrent use. Send failures are never fatal to a run.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
