package scheduler

import (
	"context"
	"sync"
	"time"
)

// JobID names one of the scheduler's fixed jobs (spec.md §4.G).
type JobID string

const (
	JobDailyTurnOn  JobID = "daily_turn_on"
	JobDailyTurnOff JobID = "daily_turn_off"
	JobStatusCheck  JobID = "status_check"
)

// State is a job's run-state (spec.md §4.G state machine: idle -> running
// -> idle, or -> error -> idle).
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

// EventType classifies a job lifecycle event surfaced to a Listener.
type EventType string

const (
	EventExecuted EventType = "executed"
	EventError    EventType = "error"
	EventMissed   EventType = "missed"
)

// Event is one job lifecycle notification (spec.md §4.G).
type Event struct {
	JobID     JobID
	Type      EventType
	Timestamp time.Time
	Err       error
}

// Listener receives job lifecycle events for structured logging.
type Listener interface {
	OnJobEvent(Event)
}

// Func is a job body. A non-nil error is surfaced as an EventError but
// never unregisters the job (spec.md §7 "a failing job does not
// unregister itself").
type Func func(ctx context.Context) error

// job is the scheduler's internal bookkeeping for one registered Func.
// execMu enforces spec.md §5's "a scheduled job and a concurrent manual
// trigger of the same job are mutually serialised; both are honoured but
// never overlap": TriggerNow blocks on Lock, while the job's own ticking
// loop uses TryLock so overlapping scheduled ticks are coalesced (skipped,
// not queued) rather than piling up.
type job struct {
	id      JobID
	trigger Trigger
	fn      Func
	enabled func() bool // nil means always enabled

	execMu sync.Mutex

	mu       sync.Mutex
	state    State
	timer    *time.Timer
	nextFire time.Time
	stopped  bool
}

func (j *job) isEnabled() bool {
	return j.enabled == nil || j.enabled()
}

func (j *job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *job) currentState() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}
