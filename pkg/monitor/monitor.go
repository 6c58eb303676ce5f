package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/venuecontrol/avctl/pkg/logevent"
	"github.com/venuecontrol/avctl/pkg/probe"
	"github.com/venuecontrol/avctl/pkg/registry"
)

// Thresholds configures alert emission (spec.md §4.F, §6 "monitoring").
type Thresholds struct {
	AlertThreshold           float64
	ConsecutiveFailuresAlert int
	MultiDeviceAlertCount    int
	NetworkIssueThreshold    int
}

// DefaultThresholds returns the spec.md §4.F defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AlertThreshold:           0.8,
		ConsecutiveFailuresAlert: 2,
		MultiDeviceAlertCount:    2,
		NetworkIssueThreshold:    5,
	}
}

// Config configures a Monitor.
type Config struct {
	Registry      *registry.Registry
	Prober        *probe.Prober
	Thresholds    Thresholds
	ParallelLimit int // 0 means unbounded fan-out (spec.md §5)
	Logger        logevent.Logger
}

// Monitor owns Health Records and the Alert ring exclusively (spec.md §3
// "Ownership"). A single sweep driver goroutine is assumed per Monitor;
// concurrent Sweep calls are safe: their probes run concurrently, and only
// folding the outcomes into Health Records and Alerts serialises on the
// internal mutex.
type Monitor struct {
	registry      *registry.Registry
	prober        *probe.Prober
	thresholds    Thresholds
	parallelLimit int
	logger        logevent.Logger

	mu          sync.Mutex
	records     map[string]HealthRecord
	priorOnline map[string]bool
	baseline    bool // true once the first sweep has run

	alerts *alertRing
}

// New constructs a Monitor from Config.
func New(cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = logevent.NoopLogger{}
	}
	if cfg.Prober == nil {
		cfg.Prober = probe.New(probe.DefaultConfig())
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Monitor{
		registry:      cfg.Registry,
		prober:        cfg.Prober,
		thresholds:    cfg.Thresholds,
		parallelLimit: cfg.ParallelLimit,
		logger:        cfg.Logger,
		records:       make(map[string]HealthRecord),
		priorOnline:   make(map[string]bool),
		alerts:        newAlertRing(),
	}
}

// SweepResult is the outcome of one Sweep pass.
type SweepResult struct {
	Timestamp    time.Time
	Total        int
	Online       int
	OnlineRate   float64
	NewlyOnline  []string
	NewlyOffline []string
	Alerts       []Alert
}

type probeOutcome struct {
	deviceID string
	state    State
	message  string
}

// Sweep runs one reachability pass over every enabled device (spec.md
// §4.F). Ping first; TCP only if the device carries a port and ping
// succeeded; passive-pc-style zero-port devices degrade to ping alone.
func (m *Monitor) Sweep(ctx context.Context) SweepResult {
	devices := m.registry.List(true)
	now := time.Now()

	outcomes := make([]probeOutcome, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	if m.parallelLimit > 0 {
		g.SetLimit(m.parallelLimit)
	}
	for i, d := range devices {
		i, d := i, d
		g.Go(func() error {
			outcomes[i] = m.probeDevice(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return m.fold(now, devices, outcomes)
}

func (m *Monitor) probeDevice(ctx context.Context, d registry.Device) probeOutcome {
	defer func() {
		// A misbehaving prober must never take down the sweep driver.
		recover()
	}()

	pingResult := m.prober.Ping(ctx, d.IP)
	if !pingResult.Success {
		return probeOutcome{deviceID: d.ID, state: StateOffline, message: pingResult.Message}
	}

	port := d.EffectivePort()
	if port == 0 {
		return probeOutcome{deviceID: d.ID, state: StateOnline}
	}

	tcpResult := m.prober.TCPProbe(ctx, d.IP, port)
	if !tcpResult.Success {
		return probeOutcome{deviceID: d.ID, state: StateDegraded, message: tcpResult.Message}
	}
	return probeOutcome{deviceID: d.ID, state: StateOnline}
}

// fold applies the sweep's probe outcomes to the Health Records, computes
// the online-set edge, and emits alerts (spec.md §4.F).
func (m *Monitor) fold(now time.Time, devices []registry.Device, outcomes []probeOutcome) SweepResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	currentOnline := make(map[string]bool, len(outcomes))
	online := 0
	for _, o := range outcomes {
		rec, ok := m.records[o.deviceID]
		if !ok {
			rec = newHealthRecord(o.deviceID)
		}
		rec.applyProbe(now, o.state, o.message)
		m.records[o.deviceID] = rec

		if rec.online() {
			currentOnline[o.deviceID] = true
			online++
		}
	}
	// Invalidate records for devices no longer present (spec.md §3: "invalidated on registry reload").
	live := make(map[string]bool, len(devices))
	for _, d := range devices {
		live[d.ID] = true
	}
	for id := range m.records {
		if !live[id] {
			delete(m.records, id)
		}
	}

	total := len(devices)
	onlineRate := 1.0
	if total > 0 {
		onlineRate = float64(online) / float64(total)
	}

	result := SweepResult{
		Timestamp:  now,
		Total:      total,
		Online:     online,
		OnlineRate: onlineRate,
	}

	// The first sweep establishes a baseline; it never emits edge alerts
	// (spec.md §9: suppresses the cold-start "everything just recovered" burst).
	if !m.baseline {
		m.baseline = true
		m.priorOnline = currentOnline
		return result
	}

	var newlyOnline, newlyOffline []string
	for id := range currentOnline {
		if !m.priorOnline[id] {
			newlyOnline = append(newlyOnline, id)
		}
	}
	for id := range m.priorOnline {
		if !currentOnline[id] {
			newlyOffline = append(newlyOffline, id)
		}
	}
	result.NewlyOnline = newlyOnline
	result.NewlyOffline = newlyOffline

	alerts := m.buildAlerts(now, newlyOnline, newlyOffline, online, total, onlineRate)
	result.Alerts = alerts
	m.alerts.append(alerts...)

	for _, a := range alerts {
		m.logger.Log(logevent.Event{
			Category: logevent.CategoryAlert,
			Message:  a.Message,
			Detail:   map[string]any{"kind": string(a.Kind), "level": string(a.Level)},
		})
	}

	m.priorOnline = currentOnline
	return result
}

func (m *Monitor) buildAlerts(now time.Time, newlyOnline, newlyOffline []string, online, total int, onlineRate float64) []Alert {
	var alerts []Alert

	for _, id := range newlyOnline {
		alerts = append(alerts, Alert{
			Timestamp:         now,
			Level:             LevelInfo,
			Kind:              KindDeviceRecovered,
			AffectedDeviceIDs: []string{id},
			Message:           fmt.Sprintf("device %s recovered", id),
		})
	}

	for _, id := range newlyOffline {
		rec := m.records[id]
		if rec.ConsecutiveFailures >= m.thresholds.ConsecutiveFailuresAlert {
			alerts = append(alerts, Alert{
				Timestamp:         now,
				Level:             LevelWarning,
				Kind:              KindDeviceDown,
				AffectedDeviceIDs: []string{id},
				Message:           fmt.Sprintf("device %s is down (%d consecutive failures)", id, rec.ConsecutiveFailures),
			})
		}
	}

	switch {
	case len(newlyOffline) >= m.thresholds.NetworkIssueThreshold:
		// network_incident supersedes mass_failure (spec.md §4.F table note).
		alerts = append(alerts, Alert{
			Timestamp:         now,
			Level:             LevelRed,
			Kind:              KindNetworkIncident,
			AffectedDeviceIDs: append([]string(nil), newlyOffline...),
			Message:           fmt.Sprintf("network incident: %d devices newly offline", len(newlyOffline)),
		})
	case len(newlyOffline) >= m.thresholds.MultiDeviceAlertCount:
		alerts = append(alerts, Alert{
			Timestamp:         now,
			Level:             LevelCritical,
			Kind:              KindMassFailure,
			AffectedDeviceIDs: append([]string(nil), newlyOffline...),
			Message:           fmt.Sprintf("mass failure: %d devices newly offline", len(newlyOffline)),
		})
	}

	if total > 0 && onlineRate < m.thresholds.AlertThreshold {
		alerts = append(alerts, Alert{
			Timestamp: now,
			Level:     LevelCritical,
			Kind:      KindThresholdBreach,
			Message:   fmt.Sprintf("online rate %.2f below threshold %.2f", onlineRate, m.thresholds.AlertThreshold),
			Detail:    map[string]any{"online": online, "total": total},
		})
	}

	return alerts
}

// Health returns a copy of the Health Record for id, if one exists.
func (m *Monitor) Health(id string) (HealthRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// AllHealth returns a defensive copy of every retained Health Record.
func (m *Monitor) AllHealth() []HealthRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HealthRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

// Alerts returns a defensive copy of every retained Alert.
func (m *Monitor) Alerts() []Alert {
	return m.alerts.all()
}

// ClearOldAlerts prunes alerts older than the given number of days
// (spec.md §4.F `clear_old_alerts(days)`).
func (m *Monitor) ClearOldAlerts(days int) {
	m.alerts.clearOlderThan(time.Now(), time.Duration(days)*24*time.Hour)
}

// Run loops Sweep on a fixed interval until ctx is cancelled, the
// teacher's `run(interval)` loop mode (spec.md §4.F). Each tick is a
// suspension point honouring ctx as spec.md §5 requires.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
