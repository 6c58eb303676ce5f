// Package adapter implements the three concrete protocol adapters named by
// spec.md §4.B (ASCII-line/Telnet-style, JSON-RPC-over-TCP, semicolon-TCP)
// plus the passive-PC no-op adapter. Each adapter performs exactly one
// attempt per call — retrying is pkg/retry's job, not the adapter's,
// mirroring the layering between the reference controller's one-shot
// pkg/transport dial and its pkg/connection retry/backoff wrapper.
package adapter

import (
	"context"
	"time"

	"github.com/venuecontrol/avctl/pkg/retry"
)

// Target describes where and how to reach a device for a single call.
type Target struct {
	IP      string
	Port    int
	Timeout time.Duration
}

// Adapter is the capability set every protocol family exposes
// (spec.md §4.B: power_on/power_off/status/is_reachable).
type Adapter interface {
	PowerOn(ctx context.Context, target Target) retry.Outcome
	PowerOff(ctx context.Context, target Target) retry.Outcome
	Status(ctx context.Context, target Target) retry.Outcome
}

// DefaultPort returns the family-defaulted port used when a device's
// configuration omits one (spec.md §3 Device invariants).
func DefaultPort(family string) int {
	switch family {
	case "ascii-line":
		return 23
	case "json-rpc":
		return 9090
	case "semicolon-tcp":
		return 7992
	default:
		return 0
	}
}

// effectiveDeadline returns the smaller of the target's configured timeout
// and the caller's context deadline (spec.md §5: "every adapter call
// carries an effective deadline min(policy.per_attempt_timeout, caller
// deadline)").
func effectiveDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
