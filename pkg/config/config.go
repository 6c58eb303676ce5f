// Package config loads and validates the JSON configuration file spec.md
// §6 describes, and converts it into the value types pkg/registry,
// pkg/retry, and pkg/monitor already understand. JSON is the wire format
// spec.md §6 mandates, so encoding/json (not a third-party unmarshaler)
// is the right tool here — see DESIGN.md.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/venuecontrol/avctl/pkg/monitor"
	"github.com/venuecontrol/avctl/pkg/registry"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// deviceType is the vendor-facing type tag used in the config file
// (spec.md §6), distinct from registry.Family, the adapter-dispatch tag
// derived from it.
type deviceType string

const (
	typeOptomaTelnet deviceType = "optoma_telnet"
	typeBarcoJSONRPC deviceType = "barco_jsonrpc"
	typeCubesCustom  deviceType = "cubes_custom"
	typeExpositionPC deviceType = "exposition_pc"
	typeGenericTCP   deviceType = "generic_tcp"
)

// familyForType maps the config file's vendor type tags onto the closed
// registry.Family dispatch tag. generic_tcp shares the semicolon-tcp wire
// shape rather than earning a fifth family, since spec.md §4.B names only
// four concrete adapters.
func familyForType(t deviceType) (registry.Family, error) {
	switch t {
	case typeOptomaTelnet:
		return registry.FamilyASCIILine, nil
	case typeBarcoJSONRPC:
		return registry.FamilyJSONRPC, nil
	case typeCubesCustom:
		return registry.FamilySemicolonTCP, nil
	case typeExpositionPC:
		return registry.FamilyPassivePC, nil
	case typeGenericTCP:
		return registry.FamilySemicolonTCP, nil
	default:
		return "", fmt.Errorf("config: unknown device type %q", t)
	}
}

// File is the root JSON shape (spec.md §6). yaml tags are carried
// alongside json ones so avctl-configcheck can decode an operator-authored
// YAML seed file directly into the same type the JSON loader uses.
type File struct {
	Schedule    ScheduleConfig   `json:"schedule" yaml:"schedule"`
	RetryPolicy RetryPolicyJSON  `json:"retry_policy" yaml:"retry_policy"`
	Monitoring  MonitoringConfig `json:"monitoring" yaml:"monitoring"`
	Groups      []GroupJSON      `json:"groups" yaml:"groups"`
	Devices     []DeviceJSON     `json:"devices" yaml:"devices"`
}

// ScheduleConfig is spec.md §6's `schedule` block.
type ScheduleConfig struct {
	OnTime       string   `json:"on_time" yaml:"on_time"`
	OffTime      string   `json:"off_time" yaml:"off_time"`
	Timezone     string   `json:"timezone" yaml:"timezone"`
	Days         []string `json:"days" yaml:"days"`
	ExcludeDates []string `json:"exclude_dates" yaml:"exclude_dates"`
}

// RetryPolicyJSON is spec.md §6's `retry_policy` block, in the file's
// seconds/float units; Resolve converts it to retry.Policy's durations.
type RetryPolicyJSON struct {
	MaxAttempts       int     `json:"max_attempts" yaml:"max_attempts"`
	BaseIntervalSec   float64 `json:"base_interval_sec" yaml:"base_interval_sec"`
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	MaxDelaySec       float64 `json:"max_delay_sec" yaml:"max_delay_sec"`
}

// Resolve converts the JSON units into a retry.Policy, filling defaults
// for zero fields.
func (r RetryPolicyJSON) Resolve() retry.Policy {
	p := retry.DefaultPolicy()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.BaseIntervalSec > 0 {
		p.BaseDelay = time.Duration(r.BaseIntervalSec * float64(time.Second))
	}
	if r.BackoffMultiplier > 0 {
		p.Multiplier = r.BackoffMultiplier
	}
	if r.MaxDelaySec > 0 {
		p.MaxDelay = time.Duration(r.MaxDelaySec * float64(time.Second))
	}
	return p.Normalize()
}

// MonitoringConfig is spec.md §6's `monitoring` block.
type MonitoringConfig struct {
	Enabled                  bool    `json:"enabled" yaml:"enabled"`
	StatusCheckIntervalSec   int     `json:"status_check_interval_sec" yaml:"status_check_interval_sec"`
	AlertThreshold           float64 `json:"alert_threshold" yaml:"alert_threshold"`
	ConsecutiveFailuresAlert int     `json:"consecutive_failures_alert" yaml:"consecutive_failures_alert"`
	MultiDeviceAlertCount    int     `json:"multi_device_alert_count" yaml:"multi_device_alert_count"`
	NetworkIssueThreshold    int     `json:"network_issue_threshold" yaml:"network_issue_threshold"`
}

// Resolve converts the JSON block into monitor.Thresholds, filling
// defaults for zero fields.
func (m MonitoringConfig) Resolve() monitor.Thresholds {
	t := monitor.DefaultThresholds()
	if m.AlertThreshold > 0 {
		t.AlertThreshold = m.AlertThreshold
	}
	if m.ConsecutiveFailuresAlert > 0 {
		t.ConsecutiveFailuresAlert = m.ConsecutiveFailuresAlert
	}
	if m.MultiDeviceAlertCount > 0 {
		t.MultiDeviceAlertCount = m.MultiDeviceAlertCount
	}
	if m.NetworkIssueThreshold > 0 {
		t.NetworkIssueThreshold = m.NetworkIssueThreshold
	}
	return t
}

// StatusCheckInterval returns the configured interval, defaulting to 300s
// per spec.md §4.G.
func (m MonitoringConfig) StatusCheckInterval() time.Duration {
	if m.StatusCheckIntervalSec <= 0 {
		return 300 * time.Second
	}
	return time.Duration(m.StatusCheckIntervalSec) * time.Second
}

// GroupJSON is one entry of spec.md §6's `groups` array.
type GroupJSON struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
	Parallel bool   `json:"parallel" yaml:"parallel"`
}

func (g GroupJSON) toGroup() registry.Group {
	return registry.Group{ID: g.ID, Name: g.Name, Priority: g.Priority, Parallel: g.Parallel}
}

// DeviceJSON is one entry of spec.md §6's `devices` array.
type DeviceJSON struct {
	ID      string     `json:"id" yaml:"id"`
	Name    string     `json:"name" yaml:"name"`
	Group   string     `json:"group" yaml:"group"`
	Type    deviceType `json:"type" yaml:"type"`
	IP      string     `json:"ip" yaml:"ip"`
	Port    int        `json:"port,omitempty" yaml:"port,omitempty"`
	MAC     string     `json:"mac,omitempty" yaml:"mac,omitempty"`
	Enabled *bool      `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Timeout int        `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

func (d DeviceJSON) toDevice() (registry.Device, error) {
	family, err := familyForType(d.Type)
	if err != nil {
		return registry.Device{}, fmt.Errorf("device %s: %w", d.ID, err)
	}
	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}
	return registry.Device{
		ID:      d.ID,
		Name:    d.Name,
		GroupID: d.Group,
		Family:  family,
		IP:      d.IP,
		Port:    d.Port,
		MAC:     d.MAC,
		Enabled: enabled,
		Timeout: d.Timeout,
	}, nil
}

// Load reads and parses a config File from path.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a config File from r.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("config: decode: %w", err)
	}
	return f, nil
}

// LoadYAML reads and parses a config File from a YAML seed file. The core
// loader (Load/Parse) stays JSON-only per spec.md §6; this is an operator
// convenience consumed only by avctl-configcheck (SPEC_FULL.md §B), which
// exports the canonical JSON the core actually loads.
func LoadYAML(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return f, nil
}

// Devices converts every device entry, collecting per-device conversion
// errors without aborting the whole load — the remaining devices still
// become usable registry.Device values (spec.md §4.D "the rest of the
// registry still loads").
func (f File) Devices() ([]registry.Device, []error) {
	var devices []registry.Device
	var errs []error
	for _, d := range f.Devices {
		dev, err := d.toDevice()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, dev)
	}
	return devices, errs
}

// GroupValues converts every group entry.
func (f File) GroupValues() []registry.Group {
	groups := make([]registry.Group, 0, len(f.Groups))
	for _, g := range f.Groups {
		groups = append(groups, g.toGroup())
	}
	return groups
}

// Location resolves the schedule's IANA timezone, defaulting to UTC.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Weekdays parses the schedule's day names ("Monday", "Tuesday", ...)
// into time.Weekday values. An empty list means every day.
func (s ScheduleConfig) Weekdays() ([]time.Weekday, error) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
		"saturday": time.Saturday,
	}
	var out []time.Weekday
	for _, raw := range s.Days {
		wd, ok := names[normalizeDayName(raw)]
		if !ok {
			return nil, fmt.Errorf("config: unknown weekday %q", raw)
		}
		out = append(out, wd)
	}
	return out, nil
}

func normalizeDayName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
