package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/venuecontrol/avctl/pkg/adapter"
	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/logevent"
	"github.com/venuecontrol/avctl/pkg/registry"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// DefaultParallelLimit bounds concurrent device dispatches within a batch
// when a group doesn't override it (spec.md §4.E).
const DefaultParallelLimit = 10

// AdapterSet supplies one Adapter per protocol family (spec.md §4.E
// "Family dispatch"). Adapters are injected at construction time and live
// as long as the Orchestrator, matching the reference controller's
// "inject adapters instead of lazy singletons" design note (spec.md §9).
type AdapterSet struct {
	ASCIILine    adapter.Adapter
	JSONRPC      adapter.Adapter
	SemicolonTCP adapter.Adapter
	PassivePC    adapter.Adapter
}

func (s AdapterSet) forFamily(f registry.Family) adapter.Adapter {
	switch f {
	case registry.FamilyASCIILine:
		return s.ASCIILine
	case registry.FamilyJSONRPC:
		return s.JSONRPC
	case registry.FamilySemicolonTCP:
		return s.SemicolonTCP
	case registry.FamilyPassivePC:
		return s.PassivePC
	default:
		return nil
	}
}

// Sink receives one record per completed device dispatch, the abstract
// action-log boundary spec.md §6 describes ("The core treats these sinks
// abstractly").
type Sink interface {
	RecordDevice(result DeviceResult, action Action, trigger Trigger)
}

type noopSink struct{}

func (noopSink) RecordDevice(DeviceResult, Action, Trigger) {}

// Orchestrator executes actions over device sets (spec.md §4.E).
type Orchestrator struct {
	registry      *registry.Registry
	adapters      AdapterSet
	policy        retry.Policy
	parallelLimit int
	logger        logevent.Logger
	sink          Sink
}

// Config configures a new Orchestrator.
type Config struct {
	Registry      *registry.Registry
	Adapters      AdapterSet
	Policy        retry.Policy
	ParallelLimit int
	Logger        logevent.Logger
	Sink          Sink
}

// New constructs an Orchestrator from Config, filling in defaults for any
// zero-valued field.
func New(cfg Config) *Orchestrator {
	if cfg.ParallelLimit <= 0 {
		cfg.ParallelLimit = DefaultParallelLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logevent.NoopLogger{}
	}
	if cfg.Sink == nil {
		cfg.Sink = noopSink{}
	}
	return &Orchestrator{
		registry:      cfg.Registry,
		adapters:      cfg.Adapters,
		policy:        cfg.Policy,
		parallelLimit: cfg.ParallelLimit,
		logger:        cfg.Logger,
		sink:          cfg.Sink,
	}
}

// ActOnDevice executes action against a single device (spec.md §4.E).
func (o *Orchestrator) ActOnDevice(ctx context.Context, deviceID string, action Action, trigger Trigger) DeviceResult {
	dev, ok := o.registry.Get(deviceID)
	if !ok {
		return DeviceResult{
			DeviceID:    deviceID,
			Success:     false,
			TerminalErr: errkind.New(errkind.NotFound, fmt.Sprintf("device %q not found in registry", deviceID)),
			StartTime:   time.Now(),
			EndTime:     time.Now(),
		}
	}
	result := o.dispatch(ctx, dev, action)
	o.sink.RecordDevice(result, action, trigger)
	return result
}

// ActOnGroup executes action across a group's enabled devices. parallel,
// when non-nil, overrides the group's configured Parallel flag.
func (o *Orchestrator) ActOnGroup(ctx context.Context, groupID string, action Action, trigger Trigger, parallel *bool) ExecutionReport {
	group, ok := o.registry.Group(groupID)
	runParallel := ok && group.Parallel
	if parallel != nil {
		runParallel = *parallel
	}

	devices := o.registry.ByGroup(groupID, true)
	results := o.runBatch(ctx, devices, action, runParallel)
	report := aggregate(action, trigger, results)
	for _, r := range results {
		o.sink.RecordDevice(r, action, trigger)
	}
	return report
}

// ActOnAll executes action across every enabled device in the registry
// (passive-pc devices included; for power actions they are recorded as
// successes with zero attempts), respecting group priority: all devices of priority p complete
// before any device of priority p+1 starts (spec.md §4.E, §5, §8).
func (o *Orchestrator) ActOnAll(ctx context.Context, action Action, trigger Trigger) ExecutionReport {
	groups := o.registry.GroupsSortedByPriority()

	var all []DeviceResult
	for _, g := range groups {
		devices := o.registry.ByGroup(g.ID, true)
		results := o.runBatch(ctx, devices, action, g.Parallel)
		all = append(all, results...)
	}

	report := aggregate(action, trigger, all)
	for _, r := range all {
		o.sink.RecordDevice(r, action, trigger)
	}
	return report
}

// ActOnAllByFamily executes action across every enabled device whose family
// tag is in families, still respecting group priority ordering.
func (o *Orchestrator) ActOnAllByFamily(ctx context.Context, action Action, trigger Trigger, families []registry.Family) ExecutionReport {
	wanted := make(map[registry.Family]bool, len(families))
	for _, f := range families {
		wanted[f] = true
	}

	groups := o.registry.GroupsSortedByPriority()
	var all []DeviceResult
	for _, g := range groups {
		devices := filterFamily(o.registry.ByGroup(g.ID, true), wanted)
		results := o.runBatch(ctx, devices, action, g.Parallel)
		all = append(all, results...)
	}

	report := aggregate(action, trigger, all)
	for _, r := range all {
		o.sink.RecordDevice(r, action, trigger)
	}
	return report
}

func filterFamily(devices []registry.Device, wanted map[registry.Family]bool) []registry.Device {
	var out []registry.Device
	for _, d := range devices {
		if wanted[d.Family] {
			out = append(out, d)
		}
	}
	return out
}

// runBatch fans action out across devices, serially if parallel is false,
// otherwise bounded by o.parallelLimit (spec.md §4.E, §5).
func (o *Orchestrator) runBatch(ctx context.Context, devices []registry.Device, action Action, parallel bool) []DeviceResult {
	results := make([]DeviceResult, len(devices))

	if !parallel {
		for i, d := range devices {
			results[i] = o.dispatchIsolated(ctx, d, action)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelLimit)
	for i, d := range devices {
		i, d := i, d
		g.Go(func() error {
			results[i] = o.dispatchIsolated(gctx, d, action)
			return nil
		})
	}
	_ = g.Wait() // per-device errors are captured in results, never propagated here

	return results
}

// dispatchIsolated wraps dispatch with panic recovery so a single device's
// misbehaving code path can never abort the batch (spec.md §4.E).
func (o *Orchestrator) dispatchIsolated(ctx context.Context, dev registry.Device, action Action) (result DeviceResult) {
	defer func() {
		if r := recover(); r != nil {
			result = DeviceResult{
				DeviceID:    dev.ID,
				DeviceName:  dev.Name,
				IP:          dev.IP,
				Family:      dev.Family,
				GroupID:     dev.GroupID,
				Success:     false,
				TerminalErr: errkind.Recovered(r),
				StartTime:   time.Now(),
				EndTime:     time.Now(),
			}
		}
	}()
	return o.dispatch(ctx, dev, action)
}

// dispatch runs the retry engine around the device's protocol adapter call
// and builds the Device Result (spec.md §4.E).
func (o *Orchestrator) dispatch(ctx context.Context, dev registry.Device, action Action) DeviceResult {
	start := time.Now()
	connID := uuid.NewString()

	if dev.Family == registry.FamilyPassivePC && action != ActionStatus {
		// Passive-PC devices are always skipped for power operations
		// (spec.md §4.E: "skipped with success=true, attempts=0").
		return DeviceResult{
			ConnectionID: connID,
			DeviceID:     dev.ID,
			DeviceName:   dev.Name,
			IP:           dev.IP,
			Family:       dev.Family,
			GroupID:      dev.GroupID,
			Success:      true,
			StartTime:    start,
			EndTime:      time.Now(),
		}
	}

	a := o.adapters.forFamily(dev.Family)
	target := adapter.Target{
		IP:      dev.IP,
		Port:    dev.EffectivePort(),
		Timeout: time.Duration(dev.Timeout) * time.Millisecond,
	}

	op := func(ctx context.Context) retry.Outcome {
		switch action {
		case ActionTurnOn:
			return a.PowerOn(ctx, target)
		case ActionTurnOff:
			return a.PowerOff(ctx, target)
		default:
			return a.Status(ctx, target)
		}
	}

	o.logger.Log(logevent.Event{Category: logevent.CategoryDispatch, ConnectionID: connID, DeviceID: dev.ID, GroupID: dev.GroupID, Message: string(action)})

	final := retry.Run(ctx, o.policy, op)

	for _, att := range final.Attempts {
		o.logger.Log(logevent.Event{
			Category:     logevent.CategoryAttempt,
			ConnectionID: connID,
			DeviceID:     dev.ID,
			Message:      fmt.Sprintf("attempt %d", att.Index),
			Detail:       map[string]any{"success": att.Success, "elapsed_ms": att.ElapsedMS},
		})
	}

	return DeviceResult{
		ConnectionID: connID,
		DeviceID:     dev.ID,
		DeviceName:   dev.Name,
		IP:           dev.IP,
		Family:       dev.Family,
		GroupID:      dev.GroupID,
		Success:      final.Success,
		Attempts:     final.Attempts,
		TotalElapsed: final.TotalElapsed,
		TerminalErr:  final.TerminalError,
		StartTime:    start,
		EndTime:      time.Now(),
	}
}
