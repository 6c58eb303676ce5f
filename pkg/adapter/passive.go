package adapter

import (
	"context"

	"github.com/venuecontrol/avctl/pkg/probe"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// PassiveAdapter backs the passive-pc family. It has no power operations:
// PowerOn/PowerOff are no-ops that report immediate success, and Status
// degrades to a reachability ping (spec.md §4.B).
type PassiveAdapter struct {
	prober *probe.Prober
}

// NewPassiveAdapter returns a PassiveAdapter using the given prober for its
// degraded Status check.
func NewPassiveAdapter(prober *probe.Prober) *PassiveAdapter {
	return &PassiveAdapter{prober: prober}
}

// PowerOn is a no-op; spec.md §4.B: "return immediate success with a
// 'skipped — no direct control' note".
func (a *PassiveAdapter) PowerOn(ctx context.Context, target Target) retry.Outcome {
	return retry.Outcome{Success: true, Response: "skipped — no direct control"}
}

// PowerOff is a no-op, symmetric with PowerOn.
func (a *PassiveAdapter) PowerOff(ctx context.Context, target Target) retry.Outcome {
	return retry.Outcome{Success: true, Response: "skipped — no direct control"}
}

// Status pings the exhibit PC's IP since there is no status protocol.
func (a *PassiveAdapter) Status(ctx context.Context, target Target) retry.Outcome {
	result := a.prober.Ping(ctx, target.IP)
	if result.Success {
		return retry.Outcome{Success: true, Response: "online"}
	}
	return retry.Outcome{Success: false, Response: "offline", Error: nil}
}
