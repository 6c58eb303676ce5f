package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/venuecontrol/avctl/pkg/adapter"
	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/orchestrator"
	"github.com/venuecontrol/avctl/pkg/registry"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// fakeAdapter lets tests script outcomes per call without opening sockets.
type fakeAdapter struct {
	mu        sync.Mutex
	onResult  func(callIndex int) retry.Outcome
	calls     int
	onDelay   time.Duration
	startedAt []time.Time
}

func (f *fakeAdapter) record() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startedAt = append(f.startedAt, time.Now())
	f.calls++
	return f.calls - 1
}

func (f *fakeAdapter) outcome(idx int) retry.Outcome {
	if f.onDelay > 0 {
		time.Sleep(f.onDelay)
	}
	if f.onResult != nil {
		return f.onResult(idx)
	}
	return retry.Outcome{Success: true}
}

func (f *fakeAdapter) PowerOn(ctx context.Context, target adapter.Target) retry.Outcome {
	return f.outcome(f.record())
}
func (f *fakeAdapter) PowerOff(ctx context.Context, target adapter.Target) retry.Outcome {
	return f.outcome(f.record())
}
func (f *fakeAdapter) Status(ctx context.Context, target adapter.Target) retry.Outcome {
	return f.outcome(f.record())
}

func alwaysSucceeds() *fakeAdapter {
	return &fakeAdapter{onResult: func(int) retry.Outcome { return retry.Outcome{Success: true} }}
}

func alwaysFails(kind errkind.Kind) *fakeAdapter {
	return &fakeAdapter{onResult: func(int) retry.Outcome {
		return retry.Outcome{Success: false, Error: errkind.New(kind, "simulated failure")}
	}}
}

func newRegistry(t *testing.T, devices []registry.Device, groups []registry.Group) *registry.Registry {
	t.Helper()
	r := registry.New(nil)
	r.Reload(context.Background(), devices, groups)
	return r
}

func TestActOnAll_PriorityOrdering(t *testing.T) {
	devices := []registry.Device{
		{ID: "d1", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.1", Enabled: true},
		{ID: "d2", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.2", Enabled: true},
		{ID: "d3", GroupID: "g2", Family: registry.FamilyASCIILine, IP: "10.0.0.3", Enabled: true},
	}
	groups := []registry.Group{
		{ID: "g1", Priority: 1, Parallel: true},
		{ID: "g2", Priority: 2, Parallel: true},
	}
	r := newRegistry(t, devices, groups)

	fa := &fakeAdapter{onDelay: 30 * time.Millisecond, onResult: func(int) retry.Outcome { return retry.Outcome{Success: true} }}

	o := orchestrator.New(orchestrator.Config{
		Registry: r,
		Adapters: orchestrator.AdapterSet{ASCIILine: fa},
		Policy:   retry.Policy{MaxAttempts: 1},
	})

	report := o.ActOnAll(context.Background(), orchestrator.ActionTurnOn, orchestrator.TriggerManual)

	if report.Total != 3 || report.Successful != 3 || report.Status != orchestrator.StatusSuccess {
		t.Fatalf("unexpected report: %+v", report)
	}

	var d1End, d2End, d3Start time.Time
	for _, d := range report.Devices {
		switch d.DeviceID {
		case "d1":
			d1End = d.EndTime
		case "d2":
			d2End = d.EndTime
		case "d3":
			d3Start = d.StartTime
		}
	}
	if !(d3Start.After(d1End) || d3Start.Equal(d1End)) || !(d3Start.After(d2End) || d3Start.Equal(d2End)) {
		t.Fatalf("expected priority-2 device to start after priority-1 group completed: d1End=%v d2End=%v d3Start=%v", d1End, d2End, d3Start)
	}
}

func TestActOnDevice_RemoteErrorNoRetrySuccess(t *testing.T) {
	devices := []registry.Device{
		{ID: "d1", GroupID: "g1", Family: registry.FamilyJSONRPC, IP: "10.0.0.1", Enabled: true},
	}
	r := newRegistry(t, devices, []registry.Group{{ID: "g1", Priority: 1}})

	fa := alwaysFails(errkind.RemoteError)
	o := orchestrator.New(orchestrator.Config{
		Registry: r,
		Adapters: orchestrator.AdapterSet{JSONRPC: fa},
		Policy:   retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond},
	})

	result := o.ActOnDevice(context.Background(), "d1", orchestrator.ActionStatus, orchestrator.TriggerManual)

	if result.Success {
		t.Fatalf("expected failure")
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(result.Attempts))
	}
	if result.TerminalErr == nil || result.TerminalErr.Kind != errkind.RemoteError {
		t.Fatalf("expected REMOTE_ERROR terminal, got %+v", result.TerminalErr)
	}
}

func TestActOnDevice_NotFound(t *testing.T) {
	r := newRegistry(t, nil, nil)
	o := orchestrator.New(orchestrator.Config{Registry: r})

	result := o.ActOnDevice(context.Background(), "ghost", orchestrator.ActionTurnOn, orchestrator.TriggerAPI)
	if result.Success {
		t.Fatalf("expected failure for missing device")
	}
	if result.TerminalErr == nil || result.TerminalErr.Kind != errkind.NotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", result.TerminalErr)
	}
}

func TestActOnAll_PassivePCSkippedWithZeroAttempts(t *testing.T) {
	devices := []registry.Device{
		{ID: "pc1", GroupID: "g1", Family: registry.FamilyPassivePC, IP: "10.0.0.9", Enabled: true},
	}
	r := newRegistry(t, devices, []registry.Group{{ID: "g1", Priority: 1}})

	o := orchestrator.New(orchestrator.Config{Registry: r})
	report := o.ActOnAll(context.Background(), orchestrator.ActionTurnOn, orchestrator.TriggerScheduled)

	if report.Total != 1 || report.Successful != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Devices[0].Attempts) != 0 {
		t.Fatalf("expected 0 attempts for passive-pc, got %d", len(report.Devices[0].Attempts))
	}
}

func TestActOnGroup_BatchTotality(t *testing.T) {
	devices := []registry.Device{
		{ID: "d1", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.1", Enabled: true},
		{ID: "d2", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.2", Enabled: true},
		{ID: "d3", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.3", Enabled: true},
	}
	r := newRegistry(t, devices, []registry.Group{{ID: "g1", Priority: 1, Parallel: true}})

	calls := 0
	fa := &fakeAdapter{onResult: func(int) retry.Outcome {
		calls++
		if calls == 2 {
			return retry.Outcome{Success: false, Error: errkind.New(errkind.Timeout, "slow")}
		}
		return retry.Outcome{Success: true}
	}}

	o := orchestrator.New(orchestrator.Config{
		Registry: r,
		Adapters: orchestrator.AdapterSet{ASCIILine: fa},
		Policy:   retry.Policy{MaxAttempts: 1},
	})

	report := o.ActOnGroup(context.Background(), "g1", orchestrator.ActionTurnOff, orchestrator.TriggerManual, nil)

	if report.Total != 3 {
		t.Fatalf("total = %d, want 3", report.Total)
	}
	if report.Successful+report.Failed != report.Total {
		t.Fatalf("successful+failed != total: %+v", report)
	}
	if len(report.Devices) != 3 {
		t.Fatalf("devices_with_errors/retries must be subsets of the 3-device set, got %d devices", len(report.Devices))
	}
}

func TestActOnAllByFamily_FiltersFamilies(t *testing.T) {
	devices := []registry.Device{
		{ID: "d1", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.1", Enabled: true},
		{ID: "d2", GroupID: "g1", Family: registry.FamilyJSONRPC, IP: "10.0.0.2", Enabled: true},
	}
	r := newRegistry(t, devices, []registry.Group{{ID: "g1", Priority: 1}})

	o := orchestrator.New(orchestrator.Config{
		Registry: r,
		Adapters: orchestrator.AdapterSet{ASCIILine: alwaysSucceeds(), JSONRPC: alwaysSucceeds()},
		Policy:   retry.Policy{MaxAttempts: 1},
	})

	report := o.ActOnAllByFamily(context.Background(), orchestrator.ActionTurnOn, orchestrator.TriggerAPI, []registry.Family{registry.FamilyJSONRPC})

	if report.Total != 1 || report.Devices[0].DeviceID != "d2" {
		t.Fatalf("expected only the json-rpc device, got %+v", report)
	}
}

func TestDispatch_PanicIsolatedAsInternal(t *testing.T) {
	devices := []registry.Device{
		{ID: "d1", GroupID: "g1", Family: registry.FamilyASCIILine, IP: "10.0.0.1", Enabled: true},
	}
	r := newRegistry(t, devices, []registry.Group{{ID: "g1", Priority: 1}})

	panicker := &fakeAdapter{onResult: func(int) retry.Outcome { panic("adapter exploded") }}
	o := orchestrator.New(orchestrator.Config{
		Registry: r,
		Adapters: orchestrator.AdapterSet{ASCIILine: panicker},
		Policy:   retry.Policy{MaxAttempts: 1},
	})

	result := o.ActOnDevice(context.Background(), "d1", orchestrator.ActionTurnOn, orchestrator.TriggerManual)
	if result.Success {
		t.Fatalf("expected failure")
	}
	if result.TerminalErr == nil || result.TerminalErr.Kind != errkind.Internal {
		t.Fatalf("expected INTERNAL, got %+v", result.TerminalErr)
	}
}
