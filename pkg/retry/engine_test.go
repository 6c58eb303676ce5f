package retry

import (
	"context"
	"testing"
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
)

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Second}
	calls := 0
	result := Run(context.Background(), policy, func(ctx context.Context) Outcome {
		calls++
		return Outcome{Success: true, Response: "ok"}
	})

	if !result.Success {
		t.Fatalf("expected success")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(result.Attempts) != 1 || result.Attempts[0].Index != 1 {
		t.Fatalf("unexpected attempts: %+v", result.Attempts)
	}
}

func TestRun_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Second}
	calls := 0
	result := Run(context.Background(), policy, func(ctx context.Context) Outcome {
		calls++
		return Outcome{Success: false, Error: errkind.New(errkind.Timeout, "no reply")}
	})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(result.Attempts))
	}
	if result.TerminalError == nil || result.TerminalError.Kind != errkind.Timeout {
		t.Fatalf("expected TIMEOUT terminal error, got %+v", result.TerminalError)
	}
}

func TestRun_BackoffMonotonicity(t *testing.T) {
	policy := Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second}
	var timestamps []time.Time
	Run(context.Background(), policy, func(ctx context.Context) Outcome {
		timestamps = append(timestamps, time.Now())
		return Outcome{Success: false, Error: errkind.New(errkind.Unknown, "fail")}
	})

	if len(timestamps) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(timestamps))
	}
	for i := 0; i < len(timestamps)-1; i++ {
		want := policy.DelayForAttempt(i)
		got := timestamps[i+1].Sub(timestamps[i])
		if got < want-2*time.Millisecond {
			t.Errorf("gap %d too short: got %v want >= %v", i, got, want)
		}
	}
}

func TestRun_CancellationDuringBackoffYieldsCancelled(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := Run(ctx, policy, func(ctx context.Context) Outcome {
		return Outcome{Success: false, Error: errkind.New(errkind.Unknown, "fail")}
	})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.TerminalError == nil || result.TerminalError.Kind != errkind.Cancelled {
		t.Fatalf("expected CANCELLED terminal error, got %+v", result.TerminalError)
	}
}

func TestRun_PanicIsIsolatedAsInternal(t *testing.T) {
	policy := Policy{MaxAttempts: 1, BaseDelay: 0, Multiplier: 1, MaxDelay: 0}
	result := Run(context.Background(), policy, func(ctx context.Context) Outcome {
		panic("boom")
	})

	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.TerminalError == nil || result.TerminalError.Kind != errkind.Internal {
		t.Fatalf("expected INTERNAL terminal error, got %+v", result.TerminalError)
	}
}

func TestPolicy_NormalizeClampsInvariants(t *testing.T) {
	p := Policy{MaxAttempts: 0, BaseDelay: -1, Multiplier: 0.5, MaxDelay: -1}.Normalize()
	if p.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", p.MaxAttempts)
	}
	if p.BaseDelay != 0 {
		t.Errorf("BaseDelay = %v, want 0", p.BaseDelay)
	}
	if p.Multiplier != 1 {
		t.Errorf("Multiplier = %v, want 1", p.Multiplier)
	}
}

func TestPolicy_DelayForAttemptCapsAtMax(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 30 * time.Second, Multiplier: 2, MaxDelay: 60 * time.Second}
	if got := p.DelayForAttempt(0); got != 30*time.Second {
		t.Errorf("attempt 0 = %v, want 30s", got)
	}
	if got := p.DelayForAttempt(1); got != 60*time.Second {
		t.Errorf("attempt 1 = %v, want 60s", got)
	}
	if got := p.DelayForAttempt(5); got != 60*time.Second {
		t.Errorf("attempt 5 = %v, want capped at 60s", got)
	}
}
