package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/venuecontrol/avctl/pkg/scheduler"
)

type captureListener struct {
	mu     sync.Mutex
	events []scheduler.Event
}

func (c *captureListener) OnJobEvent(e scheduler.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureListener) count(t scheduler.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestDailyTrigger_SkipsExcludedDate(t *testing.T) {
	loc := time.UTC
	trig, err := scheduler.NewDailyTrigger("09:00", loc, nil)
	if err != nil {
		t.Fatalf("NewDailyTrigger: %v", err)
	}
	after := time.Date(2026, 7, 30, 10, 0, 0, 0, loc) // past 09:00 on the 30th
	excludedDay := after.AddDate(0, 0, 1).Format("2006-01-02")
	trig.AddExcludedDate(excludedDay)

	next := trig.Next(after)
	if next.Format("2006-01-02") == excludedDay {
		t.Fatalf("expected excluded date to be skipped, got %v", next)
	}
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Fatalf("expected 09:00 fire, got %v", next)
	}
}

func TestDailyTrigger_RestrictedToAllowedDays(t *testing.T) {
	loc := time.UTC
	// 2026-07-31 is a Friday; restrict to Monday only.
	trig, err := scheduler.NewDailyTrigger("08:00", loc, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("NewDailyTrigger: %v", err)
	}
	after := time.Date(2026, 7, 31, 7, 0, 0, 0, loc)
	next := trig.Next(after)
	if next.Weekday() != time.Monday {
		t.Fatalf("expected next fire on Monday, got %v (%s)", next, next.Weekday())
	}
}

func TestScheduler_TickRunsJob(t *testing.T) {
	listener := &captureListener{}
	s := scheduler.New(scheduler.Config{Listener: listener})

	var calls int32
	done := make(chan struct{})
	s.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: 20 * time.Millisecond}, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(done)
		}
		return nil
	}, nil)

	s.Start(context.Background(), time.Time{})
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to fire")
	}
	if listener.count(scheduler.EventExecuted) < 1 {
		t.Fatalf("expected at least one executed event")
	}
}

func TestScheduler_DisabledJobNeverFires(t *testing.T) {
	s := scheduler.New(scheduler.Config{})
	var calls int32
	s.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: 10 * time.Millisecond}, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, func() bool { return false })

	s.Start(context.Background(), time.Time{})
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected disabled job to never fire, got %d calls", calls)
	}
}

func TestScheduler_FailingJobDoesNotUnregister(t *testing.T) {
	listener := &captureListener{}
	s := scheduler.New(scheduler.Config{Listener: listener})

	var calls int32
	s.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: 15 * time.Millisecond}, func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return errors.New("transient failure")
		}
		return nil
	}, nil)

	s.Start(context.Background(), time.Time{})
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&calls) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected the job to keep firing after an error, got %d calls", calls)
	}
	if listener.count(scheduler.EventError) < 1 {
		t.Fatalf("expected at least one error event")
	}
}

func TestScheduler_TriggerNowDoesNotAffectNextScheduledFire(t *testing.T) {
	s := scheduler.New(scheduler.Config{})
	var calls int32
	s.RegisterJob(scheduler.JobDailyTurnOn, scheduler.IntervalTrigger{Interval: time.Hour}, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	s.Start(context.Background(), time.Time{})
	defer s.Stop()

	before, armed := s.NextRunTimes()[scheduler.JobDailyTurnOn]
	if !armed {
		t.Fatalf("expected the job to have a next run time after Start")
	}

	ok := s.TriggerNow(context.Background(), scheduler.JobDailyTurnOn)
	if !ok {
		t.Fatalf("expected TriggerNow to find the registered job")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one manual call, got %d", calls)
	}
	if after := s.NextRunTimes()[scheduler.JobDailyTurnOn]; !after.Equal(before) {
		t.Fatalf("expected next scheduled fire %v to be unchanged, got %v", before, after)
	}
}

func TestScheduler_MisfireWithinGraceIsCaughtUpOnce(t *testing.T) {
	listener := &captureListener{}
	s := scheduler.New(scheduler.Config{Listener: listener, MisfireGrace: time.Hour})

	var calls int32
	s.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: time.Hour}, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	lastActive := time.Now().Add(-90 * time.Minute) // one missed interval ~30m ago, within grace
	s.Start(context.Background(), lastActive)
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one coalesced catch-up execution, got %d", calls)
	}
}

func TestScheduler_MisfireOlderThanGraceIsDropped(t *testing.T) {
	s := scheduler.New(scheduler.Config{MisfireGrace: time.Minute})
	var calls int32
	s.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: 2 * time.Hour}, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	// The most recent occurrence lands ~1h before now, well past the 1-minute grace.
	lastActive := time.Now().Add(-3 * time.Hour)
	s.Start(context.Background(), lastActive)
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no catch-up execution once the miss is older than the grace window, got %d", calls)
	}
}
