// Package reports assembles the two artefacts spec.md §4.H describes: a
// per-execution text/structured report and a per-day roll-up derived from
// orchestrator and monitor output.
package reports

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/venuecontrol/avctl/pkg/orchestrator"
)

// ExecutionText renders an Execution Report as the text form spec.md §4.H
// requires: a device-by-device status list followed by a "recovery
// actions" section enumerating failed devices.
func ExecutionText(r orchestrator.ExecutionReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Execution Report — action=%s trigger=%s status=%s\n", r.ActionLabel(), r.Trigger, r.Status)
	fmt.Fprintf(&b, "total=%d successful=%d failed=%d retried=%d (retry_total=%d)\n",
		r.Total, r.Successful, r.Failed, len(r.RetriedDeviceIDs), r.RetryTotal)
	b.WriteString("\nDevices:\n")
	for _, d := range r.Devices {
		status := "OK"
		if !d.Success {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s (%s, %s) attempts=%d elapsed=%s\n",
			status, deviceLabel(d), d.IP, d.Family, d.AttemptCount(), d.TotalElapsed)
	}

	recovery := r.RecoveryActions()
	if len(recovery) == 0 {
		return b.String()
	}

	b.WriteString("\nRecovery actions:\n")
	for _, d := range recovery {
		kind := "UNKNOWN"
		msg := ""
		if d.TerminalErr != nil {
			kind = d.TerminalErr.Kind.String()
			msg = d.TerminalErr.Message
		}
		fmt.Fprintf(&b, "  - %s: %s — %s\n", deviceLabel(d), kind, msg)
	}
	return b.String()
}

func deviceLabel(d orchestrator.DeviceResult) string {
	if d.DeviceName != "" {
		return fmt.Sprintf("%s (%s)", d.DeviceName, d.DeviceID)
	}
	return d.DeviceID
}

// ExecutionJSON renders the structured form of an Execution Report,
// parallel to ExecutionText (spec.md §4.H "serialised to a text form and a
// parallel structured form").
func ExecutionJSON(r orchestrator.ExecutionReport) ([]byte, error) {
	return json.Marshal(r)
}
