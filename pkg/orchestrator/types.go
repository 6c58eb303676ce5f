// Package orchestrator fans operations out across devices with bounded
// parallelism, isolates per-device failures, and aggregates outcomes into
// batch reports while respecting group priority ordering (spec.md §4.E).
// Bounded fan-out uses golang.org/x/sync/errgroup the way the rest of the
// reference corpus (jordigilh-kubernaut, leptonai-gpud) bounds concurrent
// work, rather than hand-rolled WaitGroup+channel bookkeeping.
package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/registry"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// Action is the operation requested of a device (spec.md §3: Execution
// Report's action is one of on/off/status; §4.E additionally names
// turn_on/turn_off as the Action enum for batch operations). Both uses are
// modeled by this single closed type so Device Result and Execution Report
// share one vocabulary end to end.
type Action string

const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
	ActionStatus  Action = "status"
)

// reportLabel returns the Execution Report's on/off/status spelling for an
// Action (spec.md §3).
func (a Action) reportLabel() string {
	switch a {
	case ActionTurnOn:
		return "on"
	case ActionTurnOff:
		return "off"
	default:
		return "status"
	}
}

// Trigger records what caused an action to run (spec.md §4.E); it is
// informational and carried through to the action-log sink.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerAPI       Trigger = "api"
	TriggerStartup   Trigger = "startup"
)

// DeviceResult is the outcome of acting on one device (spec.md §3).
type DeviceResult struct {
	// ConnectionID correlates this dispatch's log events and attempts,
	// mirroring the reference controller's per-connection uuid (spec.md
	// §4.E "Device Result"/A.1).
	ConnectionID string

	DeviceID     string
	DeviceName   string
	IP           string
	Family       registry.Family
	GroupID      string
	Success      bool
	Attempts     []retry.Attempt
	TotalElapsed time.Duration
	TerminalErr  *errkind.Detail

	StartTime time.Time
	EndTime   time.Time
}

// AttemptCount returns the number of attempts recorded, honouring the
// spec.md §8 invariant that passive-pc skips report attempts=0.
func (r DeviceResult) AttemptCount() int {
	return len(r.Attempts)
}

// ReportStatus is the aggregate Execution Report status derived from
// success rate (spec.md §3).
type ReportStatus string

const (
	StatusSuccess ReportStatus = "success"
	StatusPartial ReportStatus = "partial"
	StatusFailed  ReportStatus = "failed"
)

// ExecutionReport aggregates Device Results for one batch action
// (spec.md §3, §4.E).
type ExecutionReport struct {
	// ID uniquely identifies this report (spec.md §3 "Execution Report").
	// It is not written into action-log records.
	ID string

	Timestamp time.Time
	Action    Action
	Trigger   Trigger
	Devices   []DeviceResult

	Total      int
	Successful int
	Failed     int

	RetriedDeviceIDs []string
	RetryTotal       int

	Status ReportStatus
}

// ActionLabel returns the Execution Report's on/off/status spelling.
func (r ExecutionReport) ActionLabel() string { return r.Action.reportLabel() }

// RecoveryActions enumerates failed devices with their terminal error kind,
// the "recovery actions" section spec.md §4.H's text form requires
// (SPEC_FULL.md §C.4).
func (r ExecutionReport) RecoveryActions() []DeviceResult {
	var out []DeviceResult
	for _, d := range r.Devices {
		if !d.Success {
			out = append(out, d)
		}
	}
	return out
}

// aggregate computes Total/Successful/Failed/RetriedDeviceIDs/RetryTotal/
// Status from a completed device set (spec.md §3, §8 Batch totality).
func aggregate(action Action, trigger Trigger, devices []DeviceResult) ExecutionReport {
	report := ExecutionReport{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Trigger:   trigger,
		Devices:   devices,
		Total:     len(devices),
	}

	for _, d := range devices {
		if d.Success {
			report.Successful++
		}
		if len(d.Attempts) > 1 {
			report.RetriedDeviceIDs = append(report.RetriedDeviceIDs, d.DeviceID)
			report.RetryTotal += len(d.Attempts) - 1
		}
	}
	report.Failed = report.Total - report.Successful

	report.Status = deriveStatus(report.Total, report.Successful)
	return report
}

// deriveStatus implements spec.md §3's success-rate thresholds: 100% ->
// success, >=80% -> partial, else failed. An empty batch is vacuously a
// success.
func deriveStatus(total, successful int) ReportStatus {
	if total == 0 {
		return StatusSuccess
	}
	rate := float64(successful) / float64(total)
	switch {
	case rate == 1:
		return StatusSuccess
	case rate >= 0.8:
		return StatusPartial
	default:
		return StatusFailed
	}
}
