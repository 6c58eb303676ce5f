// Command avctl-shell is an interactive console for manual venue-equipment
// operations: turning devices or groups on/off, checking status, and
// inspecting monitor health/alerts without waiting for the scheduler.
// It loads the same config file as avctl-controller but does not run the
// scheduler or sweep loop — every action here is a one-off manual trigger
// (spec.md §4.E Trigger = manual).
//
// Usage:
//
//	avctl-shell -config devices.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/venuecontrol/avctl/internal/wiring"
	"github.com/venuecontrol/avctl/pkg/orchestrator"
	"github.com/venuecontrol/avctl/pkg/reports"
)

func main() {
	var configPath, actionLogPath string
	flag.StringVar(&configPath, "config", "", "Device/schedule config file path (required)")
	flag.StringVar(&actionLogPath, "action-log", "", "Append-only action-log path (optional)")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "avctl-shell: -config is required")
		os.Exit(2)
	}

	app, err := wiring.Build(wiring.Options{ConfigPath: configPath, ActionLogPath: actionLogPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "avctl-shell: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	rl, err := readline.New("avctl> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "avctl-shell: readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	shell := &shell{app: app, rl: rl}
	shell.run()
}

type shell struct {
	app *wiring.App
	rl  *readline.Instance
}

func (s *shell) run() {
	fmt.Fprintln(s.rl.Stdout(), "avctl interactive shell. Type 'help' for commands, 'quit' to exit.")
	ctx := context.Background()

	for {
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()
		case "on":
			s.actOn(ctx, args, orchestrator.ActionTurnOn)
		case "off":
			s.actOn(ctx, args, orchestrator.ActionTurnOff)
		case "status":
			s.actOn(ctx, args, orchestrator.ActionStatus)
		case "group":
			s.actGroup(ctx, args)
		case "all-on":
			s.actAll(ctx, orchestrator.ActionTurnOn)
		case "all-off":
			s.actAll(ctx, orchestrator.ActionTurnOff)
		case "health":
			s.printHealth()
		case "alerts":
			s.printAlerts()
		case "quit", "exit", "q":
			return
		default:
			fmt.Fprintf(s.rl.Stdout(), "unknown command: %s (type 'help')\n", cmd)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `
Commands:
  on <device-id>        Turn a device on
  off <device-id>       Turn a device off
  status <device-id>    Query a device's status
  group <id> <on|off>   Act on a group
  all-on / all-off      Act on every enabled device, priority-ordered
  health                List current monitor health records
  alerts                List alerts currently in the monitor's ring
  quit                  Exit
`)
}

func (s *shell) actOn(ctx context.Context, args []string, action orchestrator.Action) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: on|off|status <device-id>")
		return
	}
	result := s.app.Orchestrator.ActOnDevice(ctx, args[0], action, orchestrator.TriggerManual)
	status := "OK"
	if !result.Success {
		status = "FAIL"
	}
	fmt.Fprintf(s.rl.Stdout(), "[%s] %s attempts=%d\n", status, result.DeviceID, result.AttemptCount())
	if result.TerminalErr != nil {
		fmt.Fprintf(s.rl.Stdout(), "  error: %s: %s\n", result.TerminalErr.Kind, result.TerminalErr.Message)
	}
}

func (s *shell) actGroup(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.rl.Stdout(), "usage: group <id> <on|off>")
		return
	}
	action := orchestrator.ActionTurnOn
	if args[1] == "off" {
		action = orchestrator.ActionTurnOff
	}
	report := s.app.Orchestrator.ActOnGroup(ctx, args[0], action, orchestrator.TriggerManual, nil)
	fmt.Fprint(s.rl.Stdout(), reports.ExecutionText(report))
}

func (s *shell) actAll(ctx context.Context, action orchestrator.Action) {
	report := s.app.Orchestrator.ActOnAll(ctx, action, orchestrator.TriggerManual)
	fmt.Fprint(s.rl.Stdout(), reports.ExecutionText(report))
}

func (s *shell) printHealth() {
	for _, h := range s.app.Monitor.AllHealth() {
		fmt.Fprintf(s.rl.Stdout(), "%-16s %-10s failures=%d last_check=%s\n",
			h.DeviceID, h.State, h.ConsecutiveFailures, h.LastCheck.Format("15:04:05"))
	}
}

func (s *shell) printAlerts() {
	for _, a := range s.app.Monitor.Alerts() {
		fmt.Fprintf(s.rl.Stdout(), "[%s] %s %s: %s\n", a.Timestamp.Format("15:04:05"), a.Level, a.Kind, a.Message)
	}
}
