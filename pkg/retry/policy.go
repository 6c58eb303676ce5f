// Package retry implements the per-device retry core: bounded attempts with
// exponential backoff, attempt accounting, and caller cancellation. The
// shape is grounded on the reference controller's connection.Backoff /
// connection.Manager, adapted from "keep reconnecting forever with jitter"
// to "retry a bounded number of times, no jitter, and stop" per spec.md §4.C.
package retry

import "time"

// Policy is the configuration for a retry sequence (spec.md §3 Retry Policy).
type Policy struct {
	// MaxAttempts is the maximum number of attempts, >= 1.
	MaxAttempts int

	// BaseDelay is the base inter-attempt delay.
	BaseDelay time.Duration

	// Multiplier is the exponential backoff multiplier, >= 1.
	Multiplier float64

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
}

// DefaultPolicy returns a conservative policy matching the spec's worked
// example (§8 scenario 2): base=30s, multiplier=2, 3 attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   30 * time.Second,
		Multiplier:  2,
		MaxDelay:    5 * time.Minute,
	}
}

// Normalize clamps the policy to the invariants in spec.md §3:
// max_attempts >= 1, base_delay_ms >= 0, backoff_multiplier >= 1.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	return p
}

// DelayForAttempt returns the delay to sleep after a failed attempt at the
// given 0-based index, per spec.md §4.C: min(base * multiplier^i, max).
func (p Policy) DelayForAttempt(index int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := float64(p.BaseDelay)
	for i := 0; i < index; i++ {
		delay *= p.Multiplier
	}
	d := time.Duration(delay)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
