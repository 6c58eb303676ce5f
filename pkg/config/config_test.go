package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/venuecontrol/avctl/pkg/config"
	"github.com/venuecontrol/avctl/pkg/registry"
)

const sampleJSON = `{
  "schedule": {
    "on_time": "08:00",
    "off_time": "19:00",
    "timezone": "America/New_York",
    "days": ["Monday", "Tuesday", "Wednesday", "Thursday", "Friday"],
    "exclude_dates": ["2026-12-25"]
  },
  "retry_policy": {
    "max_attempts": 3,
    "base_interval_sec": 30,
    "backoff_multiplier": 2,
    "max_delay_sec": 300
  },
  "monitoring": {
    "enabled": true,
    "status_check_interval_sec": 300,
    "alert_threshold": 0.8,
    "consecutive_failures_alert": 2,
    "multi_device_alert_count": 2,
    "network_issue_threshold": 5
  },
  "groups": [
    {"id": "g1", "name": "Main Hall", "priority": 1, "parallel": true},
    {"id": "g2", "name": "Lobby", "priority": 2, "parallel": false}
  ],
  "devices": [
    {"id": "d1", "name": "Optoma 1", "group": "g1", "type": "optoma_telnet", "ip": "192.168.1.10"},
    {"id": "d2", "name": "Barco Wall", "group": "g1", "type": "barco_jsonrpc", "ip": "192.168.1.11", "port": 9091},
    {"id": "d3", "name": "Cube", "group": "g2", "type": "cubes_custom", "ip": "192.168.1.12"},
    {"id": "d4", "name": "Exhibit PC", "group": "g2", "type": "exposition_pc", "ip": "192.168.1.13"},
    {"id": "d5", "name": "Bad Type", "group": "g2", "type": "unknown_vendor", "ip": "192.168.1.14"}
  ]
}`

func TestParse_DecodesFullFile(t *testing.T) {
	f, err := config.Parse(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Schedule.OnTime != "08:00" {
		t.Errorf("OnTime = %q", f.Schedule.OnTime)
	}
	if len(f.Groups) != 2 || len(f.Devices) != 5 {
		t.Fatalf("unexpected counts: groups=%d devices=%d", len(f.Groups), len(f.Devices))
	}
}

func TestDevices_MapsVendorTypesToFamilies(t *testing.T) {
	f, err := config.Parse(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	devices, errs := f.Devices()
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 conversion error for the unknown vendor type, got %d: %v", len(errs), errs)
	}
	if len(devices) != 4 {
		t.Fatalf("expected 4 convertible devices, got %d", len(devices))
	}

	want := map[string]registry.Family{
		"d1": registry.FamilyASCIILine,
		"d2": registry.FamilyJSONRPC,
		"d3": registry.FamilySemicolonTCP,
		"d4": registry.FamilyPassivePC,
	}
	for _, d := range devices {
		if d.Family != want[d.ID] {
			t.Errorf("device %s: family = %s, want %s", d.ID, d.Family, want[d.ID])
		}
	}
}

func TestRetryPolicyJSON_Resolve(t *testing.T) {
	f, _ := config.Parse(strings.NewReader(sampleJSON))
	p := f.RetryPolicy.Resolve()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", p.MaxAttempts)
	}
	if p.BaseDelay != 30*time.Second {
		t.Errorf("BaseDelay = %v", p.BaseDelay)
	}
	if p.MaxDelay != 300*time.Second {
		t.Errorf("MaxDelay = %v", p.MaxDelay)
	}
}

func TestMonitoringConfig_Resolve(t *testing.T) {
	f, _ := config.Parse(strings.NewReader(sampleJSON))
	th := f.Monitoring.Resolve()
	if th.AlertThreshold != 0.8 || th.NetworkIssueThreshold != 5 {
		t.Errorf("unexpected thresholds: %+v", th)
	}
	if f.Monitoring.StatusCheckInterval() != 300*time.Second {
		t.Errorf("StatusCheckInterval = %v", f.Monitoring.StatusCheckInterval())
	}
}

func TestScheduleConfig_LocationAndWeekdays(t *testing.T) {
	f, _ := config.Parse(strings.NewReader(sampleJSON))
	loc, err := f.Schedule.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("Location = %s", loc.String())
	}

	days, err := f.Schedule.Weekdays()
	if err != nil {
		t.Fatalf("Weekdays: %v", err)
	}
	if len(days) != 5 || days[0] != time.Monday {
		t.Errorf("unexpected weekdays: %v", days)
	}
}

func TestScheduleConfig_UnknownTimezoneErrors(t *testing.T) {
	s := config.ScheduleConfig{Timezone: "Not/A_Zone"}
	if _, err := s.Location(); err == nil {
		t.Fatalf("expected an error for an invalid IANA timezone")
	}
}

func TestLoadYAML_DecodesExampleSeedFile(t *testing.T) {
	f, err := config.LoadYAML("../../config/devices.example.yaml")
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(f.Devices) != 4 || len(f.Groups) != 2 {
		t.Fatalf("unexpected counts: devices=%d groups=%d", len(f.Devices), len(f.Groups))
	}
	devices, errs := f.Devices()
	if len(errs) != 0 {
		t.Fatalf("expected no conversion errors, got %v", errs)
	}
	if len(devices) != 4 {
		t.Fatalf("expected 4 convertible devices, got %d", len(devices))
	}
}
