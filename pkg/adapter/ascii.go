package adapter

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// ASCIIAdapter speaks the Telnet-style line-oriented ASCII protocol used by
// the venue's ascii-line family (default port 23), per spec.md §4.B.
type ASCIIAdapter struct {
	// ReadDelay is the device-processing grace period before reading a
	// reply (spec.md: "sleep 300ms to allow device processing").
	ReadDelay time.Duration
	// ReadDeadline bounds the reply read (spec.md: 2s).
	ReadDeadline time.Duration
}

// NewASCIIAdapter returns an ASCIIAdapter configured with the spec's
// defaults.
func NewASCIIAdapter() *ASCIIAdapter {
	return &ASCIIAdapter{ReadDelay: 300 * time.Millisecond, ReadDeadline: 2 * time.Second}
}

const (
	asciiBroadcastAddr = "0000"
	asciiOpcodeOff     = 0
	asciiOpcodeOn      = 1
)

// PowerOn sends "~0000 1\r".
func (a *ASCIIAdapter) PowerOn(ctx context.Context, target Target) retry.Outcome {
	return a.transact(ctx, target, fmt.Sprintf("~%s %d\r", asciiBroadcastAddr, asciiOpcodeOn), false)
}

// PowerOff sends "~0000 0\r".
func (a *ASCIIAdapter) PowerOff(ctx context.Context, target Target) retry.Outcome {
	return a.transact(ctx, target, fmt.Sprintf("~%s %d\r", asciiBroadcastAddr, asciiOpcodeOff), false)
}

// Status sends "~00124 1\r". An empty reply is ambiguous for status (unlike
// on/off) so it is reported as success with an "unknown" response rather
// than treated as a failure (spec.md §9 Open Questions).
func (a *ASCIIAdapter) Status(ctx context.Context, target Target) retry.Outcome {
	return a.transact(ctx, target, "~00124 1\r", true)
}

func (a *ASCIIAdapter) transact(ctx context.Context, target Target, cmd string, isStatus bool) retry.Outcome {
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
	buf := make([]byte, 1024)
	n, readErr := conn.Read(buf)

	// Absence of a reply is ambiguous for status — reported as "unknown"
	// rather than failure or "off" (spec.md §9 Open Questions) — and is not
	// a failure at all for on/off (spec.md §4.B); a read timeout or closed
	// connection with zero bytes is the expected common case for both.
	if readErr != nil && n == 0 {
		if isStatus {
			return retry.Outcome{Success: true, Response: "unknown"}
		}
		return retry.Outcome{Success: true, Response: ""}
	}

	resp := string(buf[:n])
	if isStatus && resp == "" {
		return retry.Outcome{Success: true, Response: "unknown"}
	}
	return retry.Outcome{Success: true, Response: resp}
}
