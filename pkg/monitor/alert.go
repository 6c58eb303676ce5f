package monitor

import "time"

// Level is an Alert's severity (spec.md §3).
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelRed      Level = "red"
)

// Kind identifies what triggered an Alert (spec.md §3).
type Kind string

const (
	KindDeviceDown      Kind = "device_down"
	KindDeviceRecovered Kind = "device_recovered"
	KindMassFailure     Kind = "mass_failure"
	KindNetworkIncident Kind = "network_incident"
	KindThresholdBreach Kind = "threshold_breach"
)

// Alert is an append-only, age-purged event (spec.md §3).
type Alert struct {
	Timestamp         time.Time
	Level             Level
	Kind              Kind
	AffectedDeviceIDs []string
	Message           string
	Detail            map[string]any
}
