package reports

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/venuecontrol/avctl/pkg/monitor"
	"github.com/venuecontrol/avctl/pkg/orchestrator"
)

// DayStatus is the Daily Report's overall health verdict (spec.md §4.H).
type DayStatus string

const (
	DayNormal   DayStatus = "normal"
	DayIssues   DayStatus = "issues"
	DayCritical DayStatus = "critical"
)

// DailyReport rolls up one day's executions and monitoring samples
// (spec.md §4.H).
type DailyReport struct {
	Date string

	MorningExecution *orchestrator.ExecutionReport
	EveningExecution *orchestrator.ExecutionReport

	SweepCount     int
	MinOnlineRate  float64
	MeanOnlineRate float64

	AlertCountsByLevel map[monitor.Level]int

	FailedDeviceIDs []string

	Status DayStatus
}

// Assemble builds a DailyReport from the day's on/off executions, the
// monitor's sweep samples, and its alert ring (spec.md §4.H).
func Assemble(date string, morning, evening *orchestrator.ExecutionReport, sweeps []monitor.SweepResult, alerts []monitor.Alert) DailyReport {
	report := DailyReport{
		Date:               date,
		MorningExecution:   morning,
		EveningExecution:   evening,
		SweepCount:         len(sweeps),
		AlertCountsByLevel: countByLevel(alerts),
	}

	report.MinOnlineRate, report.MeanOnlineRate = onlineRateStats(sweeps)
	report.FailedDeviceIDs = failedDeviceUnion(morning, evening)
	report.Status = deriveDayStatus(report.FailedDeviceIDs, report.MinOnlineRate, len(sweeps))

	return report
}

func countByLevel(alerts []monitor.Alert) map[monitor.Level]int {
	counts := make(map[monitor.Level]int)
	for _, a := range alerts {
		counts[a.Level]++
	}
	return counts
}

func onlineRateStats(sweeps []monitor.SweepResult) (min, mean float64) {
	if len(sweeps) == 0 {
		return 1, 1
	}
	min = sweeps[0].OnlineRate
	var sum float64
	for _, s := range sweeps {
		if s.OnlineRate < min {
			min = s.OnlineRate
		}
		sum += s.OnlineRate
	}
	return min, sum / float64(len(sweeps))
}

func failedDeviceUnion(morning, evening *orchestrator.ExecutionReport) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(r *orchestrator.ExecutionReport) {
		if r == nil {
			return
		}
		for _, d := range r.RecoveryActions() {
			if !seen[d.DeviceID] {
				seen[d.DeviceID] = true
				out = append(out, d.DeviceID)
			}
		}
	}
	add(morning)
	add(evening)
	sort.Strings(out)
	return out
}

// deriveDayStatus implements spec.md §4.H's ordering: a sub-0.5 online
// rate always reads critical, regardless of the failure union; otherwise
// any failure makes the day "issues"; an empty union with a healthy
// online rate is "normal". An absence of sweep samples treats the online
// rate constraint as vacuously satisfied.
func deriveDayStatus(failedUnion []string, minOnlineRate float64, sweepCount int) DayStatus {
	if sweepCount > 0 && minOnlineRate < 0.5 {
		return DayCritical
	}
	if len(failedUnion) > 0 {
		return DayIssues
	}
	return DayNormal
}

// DailyText renders a DailyReport as the text form persisted alongside its
// structured twin (spec.md §6 "Daily-report text and structured forms, one
// pair per date"), embedding each execution's own ExecutionText rendering.
func DailyText(r DailyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily Report — %s status=%s\n", r.Date, r.Status)
	fmt.Fprintf(&b, "sweeps=%d online_rate(min/mean)=%.2f/%.2f failed_devices=%d\n",
		r.SweepCount, r.MinOnlineRate, r.MeanOnlineRate, len(r.FailedDeviceIDs))

	if len(r.AlertCountsByLevel) > 0 {
		b.WriteString("alerts:")
		for _, level := range []monitor.Level{monitor.LevelInfo, monitor.LevelWarning, monitor.LevelCritical, monitor.LevelRed} {
			if n, ok := r.AlertCountsByLevel[level]; ok {
				fmt.Fprintf(&b, " %s=%d", level, n)
			}
		}
		b.WriteString("\n")
	}

	if len(r.FailedDeviceIDs) > 0 {
		fmt.Fprintf(&b, "failed: %s\n", strings.Join(r.FailedDeviceIDs, ", "))
	}

	if r.MorningExecution != nil {
		b.WriteString("\n-- morning execution --\n")
		b.WriteString(ExecutionText(*r.MorningExecution))
	}
	if r.EveningExecution != nil {
		b.WriteString("\n-- evening execution --\n")
		b.WriteString(ExecutionText(*r.EveningExecution))
	}

	return b.String()
}

// DailyJSON renders the structured form of a DailyReport, parallel to
// DailyText.
func DailyJSON(r DailyReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
