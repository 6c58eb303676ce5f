package logevent

import "time"

// Category classifies an Event for filtering and for the slog adapter's
// attribute set.
type Category uint8

const (
	// CategoryDispatch marks one orchestrator device dispatch.
	CategoryDispatch Category = iota
	// CategoryAttempt marks one retry-engine attempt.
	CategoryAttempt
	// CategoryHealth marks a monitor health-record transition.
	CategoryHealth
	// CategoryAlert marks an emitted Alert.
	CategoryAlert
	// CategoryJob marks a scheduler job state transition.
	CategoryJob
	// CategoryError marks a structured error not tied to one of the above
	// (e.g. a registry load failure).
	CategoryError
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDispatch:
		return "DISPATCH"
	case CategoryAttempt:
		return "ATTEMPT"
	case CategoryHealth:
		return "HEALTH"
	case CategoryAlert:
		return "ALERT"
	case CategoryJob:
		return "JOB"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one structured operational log record.
type Event struct {
	Timestamp time.Time
	Category  Category

	// ConnectionID correlates events belonging to the same retry sequence
	// or monitor probe, mirroring the reference controller's per-connection
	// correlation id.
	ConnectionID string

	DeviceID string
	GroupID  string
	JobID    string

	Message string
	Detail  map[string]any
}
