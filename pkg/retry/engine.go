package retry

import (
	"context"
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
)

// Attempt is one end-to-end execution of an adapter call, excluding backoff
// (spec.md §3 Attempt Record).
type Attempt struct {
	Index     int // 1-based, per spec.md §3
	StartedAt time.Time
	ElapsedMS int64
	Success   bool
	Error     *errkind.Detail
	Response  string
}

// Outcome is what an Op returns for a single attempt.
type Outcome struct {
	Success  bool
	Response string
	Error    *errkind.Detail
}

// Op is any attempt-returning operation the retry engine wraps. It must
// honour ctx's deadline and return promptly on cancellation.
type Op func(ctx context.Context) Outcome

// Result is the outcome of a full retry sequence (spec.md §4.C FinalResult).
type Result struct {
	Success       bool
	Attempts      []Attempt
	TotalElapsed  time.Duration
	TerminalError *errkind.Detail
}

// Run executes op under policy, retrying with exponential backoff until
// success, attempt exhaustion, or ctx cancellation.
//
// Cancellation aborts both in-flight attempts and the inter-attempt sleep,
// yielding a CANCELLED terminal error (spec.md §4.C).
func Run(ctx context.Context, policy Policy, op Op) Result {
	policy = policy.Normalize()
	start := time.Now()

	var attempts []Attempt
	var terminal *errkind.Detail

	for i := 0; i < policy.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			terminal = errkind.New(errkind.Cancelled, err.Error())
			break
		}

		attemptStart := time.Now()
		outcome := invoke(ctx, op)
		elapsed := time.Since(attemptStart)

		rec := Attempt{
			Index:     i + 1,
			StartedAt: attemptStart,
			ElapsedMS: elapsed.Milliseconds(),
			Success:   outcome.Success,
			Error:     outcome.Error,
			Response:  outcome.Response,
		}
		attempts = append(attempts, rec)

		if outcome.Success {
			return Result{
				Success:      true,
				Attempts:     attempts,
				TotalElapsed: time.Since(start),
			}
		}

		terminal = outcome.Error
		if terminal == nil {
			terminal = errkind.New(errkind.Unknown, "attempt failed with no detail")
		}

		if i == policy.MaxAttempts-1 {
			break
		}

		delay := policy.DelayForAttempt(i)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			terminal = errkind.New(errkind.Cancelled, ctx.Err().Error())
			return Result{
				Success:       false,
				Attempts:      attempts,
				TotalElapsed:  time.Since(start),
				TerminalError: terminal,
			}
		case <-timer.C:
		}
	}

	return Result{
		Success:       false,
		Attempts:      attempts,
		TotalElapsed:  time.Since(start),
		TerminalError: terminal,
	}
}

// invoke runs op and turns a panic into an Internal-classified outcome so a
// single misbehaving adapter call can never escape the retry loop.
func invoke(ctx context.Context, op Op) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Success: false, Error: errkind.Recovered(r)}
		}
	}()
	return op(ctx)
}
