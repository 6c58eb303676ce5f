// Package wiring is the shared composition root for avctl-controller and
// avctl-shell: load config, build the
// registry/orchestrator/monitor/scheduler graph, and open the action-log
// sink. Sharing this one place keeps both binaries' startup sequence
// identical, the way the reference controller's main.go builds its CEM and
// ControllerService once and hands them to both the daemon loop and the
// interactive console.
package wiring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/venuecontrol/avctl/pkg/adapter"
	"github.com/venuecontrol/avctl/pkg/alog"
	"github.com/venuecontrol/avctl/pkg/config"
	"github.com/venuecontrol/avctl/pkg/logevent"
	"github.com/venuecontrol/avctl/pkg/monitor"
	"github.com/venuecontrol/avctl/pkg/orchestrator"
	"github.com/venuecontrol/avctl/pkg/probe"
	"github.com/venuecontrol/avctl/pkg/registry"
	"github.com/venuecontrol/avctl/pkg/reports"
	"github.com/venuecontrol/avctl/pkg/scheduler"
)

// App bundles the fully wired core. avctl-controller and avctl-shell each
// build one of these from the same config file.
type App struct {
	Config       config.File
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Monitor      *monitor.Monitor
	Scheduler    *scheduler.Scheduler
	Sink         *alog.FileSink
	Reports      *reports.Store
	Logger       logevent.Logger

	mu           sync.Mutex
	lastMorning  *orchestrator.ExecutionReport
	lastEvening  *orchestrator.ExecutionReport
}

// Options controls what Build wires in. ActionLogPath empty disables the
// action-log sink (orchestrator falls back to its internal no-op sink).
// ReportDir empty disables daily-report persistence.
type Options struct {
	ConfigPath    string
	ActionLogPath string
	ReportDir     string
	Logger        logevent.Logger
}

// Build loads the config file and constructs the full dependency graph.
func Build(opts Options) (*App, error) {
	file, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("wiring: load config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logevent.NoopLogger{}
	}

	reg := registry.New(logger)
	devices, convErrs := file.Devices()
	for _, e := range convErrs {
		logger.Log(logevent.Event{Category: logevent.CategoryError, Message: e.Error()})
	}
	reg.Reload(context.Background(), devices, file.GroupValues())

	var sink *alog.FileSink
	var orchSink orchestrator.Sink
	if opts.ActionLogPath != "" {
		sink, err = alog.NewFileSink(opts.ActionLogPath)
		if err != nil {
			return nil, fmt.Errorf("wiring: open action log: %w", err)
		}
		orchSink = sink
	}

	prober := probe.New(probe.DefaultConfig())
	adapters := orchestrator.AdapterSet{
		ASCIILine:    adapter.NewASCIIAdapter(),
		JSONRPC:      adapter.NewJSONRPCAdapter(),
		SemicolonTCP: adapter.NewSemicolonAdapter(),
		PassivePC:    adapter.NewPassiveAdapter(prober),
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry: reg,
		Adapters: adapters,
		Policy:   file.RetryPolicy.Resolve(),
		Logger:   logger,
		Sink:     orchSink,
	})

	mon := monitor.New(monitor.Config{
		Registry:   reg,
		Prober:     prober,
		Thresholds: file.Monitoring.Resolve(),
		Logger:     logger,
	})

	sched := scheduler.New(scheduler.Config{Logger: logger})

	var reportStore *reports.Store
	if opts.ReportDir != "" {
		reportStore = reports.NewStore(opts.ReportDir)
	}

	app := &App{
		Config:       file,
		Registry:     reg,
		Orchestrator: orch,
		Monitor:      mon,
		Scheduler:    sched,
		Sink:         sink,
		Reports:      reportStore,
		Logger:       logger,
	}
	if err := app.registerDailyJobs(); err != nil {
		return nil, err
	}
	return app, nil
}

// registerDailyJobs wires the daily turn-on/turn-off triggers and the
// status-check interval job (spec.md §4.G) onto the Scheduler.
func (a *App) registerDailyJobs() error {
	loc, err := a.Config.Schedule.Location()
	if err != nil {
		return fmt.Errorf("wiring: schedule timezone: %w", err)
	}
	days, err := a.Config.Schedule.Weekdays()
	if err != nil {
		return fmt.Errorf("wiring: schedule days: %w", err)
	}

	if a.Config.Schedule.OnTime != "" {
		onTrigger, err := scheduler.NewDailyTrigger(a.Config.Schedule.OnTime, loc, days)
		if err != nil {
			return fmt.Errorf("wiring: on_time trigger: %w", err)
		}
		for _, d := range a.Config.Schedule.ExcludeDates {
			onTrigger.AddExcludedDate(d)
		}
		a.Scheduler.RegisterJob(scheduler.JobDailyTurnOn, onTrigger, func(ctx context.Context) error {
			report := a.Orchestrator.ActOnAll(ctx, orchestrator.ActionTurnOn, orchestrator.TriggerScheduled)
			a.mu.Lock()
			a.lastMorning = &report
			a.mu.Unlock()
			return nil
		}, func() bool { return true })
	}

	if a.Config.Schedule.OffTime != "" {
		offTrigger, err := scheduler.NewDailyTrigger(a.Config.Schedule.OffTime, loc, days)
		if err != nil {
			return fmt.Errorf("wiring: off_time trigger: %w", err)
		}
		for _, d := range a.Config.Schedule.ExcludeDates {
			offTrigger.AddExcludedDate(d)
		}
		a.Scheduler.RegisterJob(scheduler.JobDailyTurnOff, offTrigger, func(ctx context.Context) error {
			report := a.Orchestrator.ActOnAll(ctx, orchestrator.ActionTurnOff, orchestrator.TriggerScheduled)
			a.mu.Lock()
			a.lastEvening = &report
			a.mu.Unlock()
			return nil
		}, func() bool { return true })
	}

	if a.Config.Monitoring.Enabled {
		interval := a.Config.Monitoring.StatusCheckInterval()
		a.Scheduler.RegisterJob(scheduler.JobStatusCheck, scheduler.IntervalTrigger{Interval: interval}, func(ctx context.Context) error {
			a.Monitor.Sweep(ctx)
			return nil
		}, func() bool { return true })
	}

	return nil
}

// Today assembles the Daily Report for date from the most recent morning
// and evening executions this App has run (they are not filtered by date)
// and the monitor's alert ring (spec.md §4.H). Sweep results are not
// retained, so no sweep samples are passed: SweepCount is 0, both
// online-rate figures are 1, and the status follows the failure union only.
func (a *App) Today(date string) reports.DailyReport {
	a.mu.Lock()
	morning, evening := a.lastMorning, a.lastEvening
	a.mu.Unlock()
	return reports.Assemble(date, morning, evening, nil, a.Monitor.Alerts())
}

// PersistToday assembles and, if a report store is configured, saves
// today's Daily Report. It is a no-op if Options.ReportDir was empty.
func (a *App) PersistToday() (reports.DailyReport, error) {
	day := a.Today(time.Now().Format("2006-01-02"))
	if a.Reports == nil {
		return day, nil
	}
	return day, a.Reports.Save(day)
}

// Close releases resources the App owns (the action-log sink).
func (a *App) Close() error {
	if a.Sink != nil {
		return a.Sink.Close()
	}
	return nil
}
