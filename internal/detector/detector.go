package detector

// Detector is a readiness predicate over observable host state (filesystem
// paths, pid liveness, probe commands). The health gate polls it; it is never
// pushed to. Implementations must be safe for concurrent use.
type Detector interface {
	// Ready returns true once the observed state indicates the service is up.
	Ready() (bool, error)
	// Describe returns a human-readable description of the check.
	Describe() string
}
