package unit

// State is the per-unit lifecycle state. Failed is reachable only from
// Starting; the only transition out of Failed is Stopping.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateUp
	StateFailed
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateUp:
		return "up"
	case StateFailed:
		return "failed"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
