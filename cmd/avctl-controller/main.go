// Command avctl-controller is the A/V venue equipment controller daemon.
//
// It loads a JSON device/schedule/monitoring config (spec.md §6), wires the
// device registry, orchestrator, monitor, and scheduler, and runs until a
// shutdown signal arrives: the daily turn-on/turn-off jobs and the
// status-check sweep fire on schedule, every device dispatch is appended to
// the action log, and, when -report-dir is set, a daily report is written
// on a clean shutdown.
//
// Usage:
//
//	avctl-controller -config devices.json [flags]
//
// Flags:
//
//	-config string       Device/schedule config file path (required)
//	-action-log string   Append-only action-log path (default "actions.cbor")
//	-report-dir string   Directory for daily-report text/JSON pairs
//	-state-dir string    Directory for the last-active heartbeat marker
//	-log-level string    Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/venuecontrol/avctl/internal/wiring"
	"github.com/venuecontrol/avctl/pkg/logevent"
)

func main() {
	var (
		configPath    string
		actionLogPath string
		reportDir     string
		stateDir      string
		logLevel      string
	)
	flag.StringVar(&configPath, "config", "", "Device/schedule config file path (required)")
	flag.StringVar(&actionLogPath, "action-log", "actions.cbor", "Append-only action-log path")
	flag.StringVar(&reportDir, "report-dir", "", "Directory for daily-report text/JSON pairs")
	flag.StringVar(&stateDir, "state-dir", "", "Directory for the last-active heartbeat marker")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "avctl-controller: -config is required")
		os.Exit(2)
	}

	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
	logger := logevent.NewSlogAdapter(slogger)

	app, err := wiring.Build(wiring.Options{
		ConfigPath:    configPath,
		ActionLogPath: actionLogPath,
		ReportDir:     reportDir,
		Logger:        logger,
	})
	if err != nil {
		slogger.Error("failed to build controller", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	lastActive := readHeartbeat(stateDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.Scheduler.Start(ctx, lastActive)
	defer app.Scheduler.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slogger.Info("avctl-controller started", "config", configPath, "devices", len(app.Registry.List(false)))

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			slogger.Info("received signal, shutting down", "signal", sig.String())
			break loop
		case <-ticker.C:
			writeHeartbeat(stateDir, time.Now())
		}
	}

	cancel()

	day, err := app.PersistToday()
	if err != nil {
		slogger.Error("failed to persist daily report", "error", err)
	}
	slogger.Info("daily status at shutdown", "status", string(day.Status), "failed_devices", day.FailedDeviceIDs)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// heartbeatFile is where the controller records its last-active timestamp,
// consumed on the next startup so the scheduler can catch up missed
// firings within its misfire grace window (spec.md §4.G).
const heartbeatFile = "last_active"

func readHeartbeat(stateDir string) time.Time {
	if stateDir == "" {
		return time.Now()
	}
	raw, err := os.ReadFile(filepath.Join(stateDir, heartbeatFile))
	if err != nil {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Now()
	}
	return t
}

func writeHeartbeat(stateDir string, t time.Time) {
	if stateDir == "" {
		return
	}
	_ = os.MkdirAll(stateDir, 0755)
	_ = os.WriteFile(filepath.Join(stateDir, heartbeatFile), []byte(t.Format(time.RFC3339Nano)), 0644)
}
