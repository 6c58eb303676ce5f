package adapter

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// SemicolonAdapter speaks the custom semicolon-delimited TCP protocol used
// by the video-wall processors (spec.md §4.B, default port 7992).
type SemicolonAdapter struct {
	ReadDelay    time.Duration
	ReadDeadline time.Duration
}

// NewSemicolonAdapter returns a SemicolonAdapter with the spec's defaults.
func NewSemicolonAdapter() *SemicolonAdapter {
	return &SemicolonAdapter{ReadDelay: 300 * time.Millisecond, ReadDeadline: 3 * time.Second}
}

// PowerOn sends "SET(0;Power;1)\r\n".
func (a *SemicolonAdapter) PowerOn(ctx context.Context, target Target) retry.Outcome {
	return a.set(ctx, target, 1)
}

// PowerOff sends "SET(0;Power;0)\r\n".
func (a *SemicolonAdapter) PowerOff(ctx context.Context, target Target) retry.Outcome {
	return a.set(ctx, target, 0)
}

// Status sends "get(0;Power)\r\n" and interprets the reply token
// (spec.md §4.B): "1"/"on" -> on, "0"/"off" -> off, else unknown.
func (a *SemicolonAdapter) Status(ctx context.Context, target Target) retry.Outcome {
	outcome := a.transact(ctx, target, "get(0;Power)\r\n")
	if !outcome.Success {
		return outcome
	}
	outcome.Response = interpretPowerToken(outcome.Response)
	return outcome
}

func (a *SemicolonAdapter) set(ctx context.Context, target Target, value int) retry.Outcome {
	cmd := fmt.Sprintf("SET(0;Power;%d)\r\n", value)
	return a.transact(ctx, target, cmd)
}

func (a *SemicolonAdapter) transact(ctx context.Context, target Target, cmd string) retry.Outcome {
	dialCtx, cancel := effectiveDeadline(ctx, target.Timeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(target.IP, fmt.Sprintf("%d", target.Port)))
	if err != nil {
		return retry.Outcome{Error: errkind.Classify(err)}
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(cmd)); err != nil {
		return retry.Outcome{Error: errkind.Classify(err)}
	}

	time.Sleep(a.ReadDelay)

	conn.SetReadDeadline(time.Now().Add(a.ReadDeadline))
	buf := make([]byte, 512)
	n, readErr := conn.Read(buf)

	// Absent reply on SET is not a failure (spec.md §4.B).
	if readErr != nil && n == 0 {
		return retry.Outcome{Success: true, Response: ""}
	}

	return retry.Outcome{Success: true, Response: string(buf[:n])}
}

func interpretPowerToken(resp string) string {
	lower := strings.ToLower(resp)
	switch {
	case strings.Contains(lower, "1") || strings.Contains(lower, "on"):
		return "on"
	case strings.Contains(lower, "0") || strings.Contains(lower, "off"):
		return "off"
	default:
		return "unknown"
	}
}
