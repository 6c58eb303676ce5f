// Package alog implements the append-only action-log that spec.md §6
// requires: one record per device dispatch attempt, with the device id,
// action, trigger, success flag, attempt number, elapsed time, and error
// message. It mirrors the reference controller's pkg/log design — CBOR
// records with integer keys for compactness, written through a small
// Logger-style interface so the core can treat the sink abstractly
// (orchestrator.Sink) — generalised from a protocol-frame log to a
// device-action log.
package alog

import (
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/orchestrator"
)

// Record is one append-only action-log entry: a single device dispatch
// attempt (spec.md §6 "Persisted state (a)"). CBOR encoding uses integer
// keys for compactness, following the reference controller's Event.
type Record struct {
	// Timestamp when the attempt started (for a skipped passive-pc
	// dispatch, when the dispatch ended).
	Timestamp time.Time `cbor:"1,keyasint"`

	// DeviceID identifies the device acted on.
	DeviceID string `cbor:"2,keyasint"`

	// Action is the requested operation (turn_on/turn_off/status).
	Action string `cbor:"3,keyasint"`

	// Trigger records what caused the action to run.
	Trigger string `cbor:"4,keyasint"`

	// Success indicates whether this attempt succeeded.
	Success bool `cbor:"5,keyasint"`

	// Attempt is the 1-based attempt number within the device's retry
	// sequence.
	Attempt int `cbor:"6,keyasint"`

	// ElapsedMS is the attempt's duration in milliseconds.
	ElapsedMS int64 `cbor:"7,keyasint"`

	// ErrorKind is the classified error kind's wire name, empty on
	// success.
	ErrorKind string `cbor:"8,keyasint,omitempty"`

	// ErrorMessage is the error detail, empty on success.
	ErrorMessage string `cbor:"9,keyasint,omitempty"`

	// GroupID is the device's group, carried for filtering.
	GroupID string `cbor:"10,keyasint,omitempty"`
}

// recordsForResult expands one orchestrator.DeviceResult into one Record
// per retry attempt, the granularity spec.md §6 asks for ("one per
// attempt"). A passive-pc skip with zero attempts still produces a single
// synthetic success record so the device's dispatch is never silently
// absent from the log.
func recordsForResult(result orchestrator.DeviceResult, action orchestrator.Action, trigger orchestrator.Trigger) []Record {
	if len(result.Attempts) == 0 {
		rec := Record{
			Timestamp: result.EndTime,
			DeviceID:  result.DeviceID,
			Action:    string(action),
			Trigger:   string(trigger),
			Success:   result.Success,
			Attempt:   1,
			GroupID:   result.GroupID,
		}
		if !result.EndTime.IsZero() && !result.StartTime.IsZero() {
			rec.ElapsedMS = result.EndTime.Sub(result.StartTime).Milliseconds()
		}
		if result.TerminalErr != nil {
			rec.ErrorKind = result.TerminalErr.Kind.String()
			rec.ErrorMessage = result.TerminalErr.Message
		}
		return []Record{rec}
	}

	records := make([]Record, 0, len(result.Attempts))
	for _, att := range result.Attempts {
		rec := Record{
			Timestamp: att.StartedAt,
			DeviceID:  result.DeviceID,
			Action:    string(action),
			Trigger:   string(trigger),
			Success:   att.Success,
			Attempt:   att.Index,
			ElapsedMS: att.ElapsedMS,
			GroupID:   result.GroupID,
		}
		if err := att.Error; err != nil {
			rec.ErrorKind = errorKindName(err)
			rec.ErrorMessage = err.Message
		}
		records = append(records, rec)
	}
	return records
}

func errorKindName(d *errkind.Detail) string {
	if d == nil {
		return ""
	}
	return d.Kind.String()
}
