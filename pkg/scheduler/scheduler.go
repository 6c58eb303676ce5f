// Package scheduler runs the three named daily/interval jobs spec.md
// §4.G describes, with misfire catch-up and a listener-driven lifecycle.
// It is built on stdlib time.Timer/time.AfterFunc rather than an imported
// cron library: no job-scheduling package turned up anywhere in the
// reference corpus (see DESIGN.md), so the timer state machine is grounded
// on the teacher's pkg/failsafe.Timer instead — a callback-driven
// time.AfterFunc loop guarded by a small mutex-protected state enum.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/venuecontrol/avctl/pkg/logevent"
)

// DefaultMisfireGrace matches spec.md §4.G's default misfire_grace_time.
const DefaultMisfireGrace = 3600 * time.Second

// Config configures a Scheduler.
type Config struct {
	MisfireGrace time.Duration
	Listener     Listener
	Logger       logevent.Logger
}

// Scheduler owns the three named jobs and their triggers (spec.md §4.G).
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[JobID]*job

	misfireGrace time.Duration
	listener     Listener
	logger       logevent.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an empty Scheduler. Register jobs with RegisterJob before
// calling Start.
func New(cfg Config) *Scheduler {
	if cfg.MisfireGrace <= 0 {
		cfg.MisfireGrace = DefaultMisfireGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = logevent.NoopLogger{}
	}
	return &Scheduler{
		jobs:         make(map[JobID]*job),
		misfireGrace: cfg.MisfireGrace,
		listener:     cfg.Listener,
		logger:       cfg.Logger,
	}
}

// RegisterJob adds a job under id. enabled, if non-nil, is consulted on
// every tick; a disabled tick is skipped without invoking fn (spec.md
// §4.G: "status_check ... suppressed when monitoring.enabled is false").
func (s *Scheduler) RegisterJob(id JobID, trigger Trigger, fn Func, enabled func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &job{id: id, trigger: trigger, fn: fn, enabled: enabled, state: StateIdle}
}

// Start arms every registered job's timer. lastActiveAt, if non-zero, is
// the last instant the scheduler is known to have been running; any
// occurrence missed between lastActiveAt and now within MisfireGrace is
// executed once as a coalesced catch-up (spec.md §4.G). A zero
// lastActiveAt means a cold start with nothing to catch up.
func (s *Scheduler) Start(ctx context.Context, lastActiveAt time.Time) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.RLock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, j := range jobs {
		j := j
		if missedAt, ok := s.findMissedFire(j, lastActiveAt, now); ok {
			s.emit(Event{JobID: j.id, Type: EventExecuted, Timestamp: now})
			s.runCatchUp(ctx, j, missedAt)
		}
		s.armNext(ctx, j, now)
	}
}

// findMissedFire scans the job's trigger for the most recent occurrence
// between lastActiveAt and now, reporting it only if it still falls
// within the misfire grace window; earlier occurrences are silently
// coalesced into that single catch-up, matching "at most one catch-up per
// job" (spec.md §4.G).
func (s *Scheduler) findMissedFire(j *job, lastActiveAt, now time.Time) (time.Time, bool) {
	if lastActiveAt.IsZero() {
		return time.Time{}, false
	}
	var lastMissed time.Time
	found := false
	cursor := j.trigger.Next(lastActiveAt)
	for cursor.Before(now) {
		lastMissed = cursor
		found = true
		cursor = j.trigger.Next(cursor)
	}
	if !found {
		return time.Time{}, false
	}
	if now.Sub(lastMissed) > s.misfireGrace {
		s.emit(Event{JobID: j.id, Type: EventMissed, Timestamp: now})
		return time.Time{}, false
	}
	return lastMissed, true
}

func (s *Scheduler) runCatchUp(ctx context.Context, j *job, scheduledAt time.Time) {
	s.invoke(ctx, j)
}

// armNext schedules the job's next tick after `from`.
func (s *Scheduler) armNext(ctx context.Context, j *job, from time.Time) {
	next := j.trigger.Next(from)

	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.nextFire = next
	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}
	j.timer = time.AfterFunc(delay, func() { s.tick(ctx, j) })
	j.mu.Unlock()
}

// tick fires on a job's schedule. Ticks never block waiting for a
// concurrently running manual trigger: if the job is already executing,
// this tick is coalesced (skipped) rather than queued (spec.md §4.G
// "overlapping ticks ... are coalesced").
func (s *Scheduler) tick(ctx context.Context, j *job) {
	now := time.Now()
	if !j.isEnabled() {
		s.armNext(ctx, j, now)
		return
	}
	if !j.execMu.TryLock() {
		s.armNext(ctx, j, now)
		return
	}
	s.runLocked(ctx, j)
	j.execMu.Unlock()
	s.armNext(ctx, j, time.Now())
}

// invoke runs fn while holding execMu, for the misfire catch-up path
// (before the regular tick loop is armed).
func (s *Scheduler) invoke(ctx context.Context, j *job) {
	j.execMu.Lock()
	s.runLocked(ctx, j)
	j.execMu.Unlock()
}

func (s *Scheduler) runLocked(ctx context.Context, j *job) {
	j.setState(StateRunning)
	err := j.fn(ctx)
	if err != nil {
		j.setState(StateError)
		s.emit(Event{JobID: j.id, Type: EventError, Timestamp: time.Now(), Err: err})
		j.setState(StateIdle)
		return
	}
	j.setState(StateIdle)
	s.emit(Event{JobID: j.id, Type: EventExecuted, Timestamp: time.Now()})
}

// TriggerNow runs a job's body out-of-band; it does not affect the next
// scheduled firing (spec.md §4.G). It blocks until any in-flight scheduled
// execution of the same job completes, honouring the mutual-serialisation
// guarantee (spec.md §5).
func (s *Scheduler) TriggerNow(ctx context.Context, id JobID) bool {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	s.invoke(ctx, j)
	return true
}

// State returns a job's current run-state.
func (s *Scheduler) State(id JobID) (State, bool) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return j.currentState(), true
}

// NextRunTimes returns each armed job's next scheduled fire time.
func (s *Scheduler) NextRunTimes() map[JobID]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[JobID]time.Time, len(s.jobs))
	for id, j := range s.jobs {
		j.mu.Lock()
		if !j.nextFire.IsZero() {
			out[id] = j.nextFire
		}
		j.mu.Unlock()
	}
	return out
}

// Stop cancels every job's pending timer and cancels the context passed to
// job bodies. It does not wait for in-flight executions to return.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	for _, j := range jobs {
		j.mu.Lock()
		j.stopped = true
		if j.timer != nil {
			j.timer.Stop()
		}
		j.mu.Unlock()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) emit(e Event) {
	s.logger.Log(logevent.Event{
		Category: logevent.CategoryJob,
		JobID:    string(e.JobID),
		Message:  string(e.Type),
	})
	if s.listener != nil {
		s.listener.OnJobEvent(e)
	}
}
