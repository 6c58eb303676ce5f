package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/venuecontrol/avctl/pkg/errkind"
	"github.com/venuecontrol/avctl/pkg/retry"
)

// JSONRPCAdapter speaks strict JSON-RPC 2.0 over a newline-framed TCP
// connection (spec.md §4.B, default port 9090). One JSONRPCAdapter instance
// should be shared across calls so the request id counter stays monotonic,
// the same lifetime discipline the reference controller uses for its
// protocol adapter instances (spec.md §9 Design Notes: "inject adapters at
// construction time").
type JSONRPCAdapter struct {
	nextID       uint64
	ReadDeadline time.Duration
}

// NewJSONRPCAdapter returns a JSONRPCAdapter with the spec's default read
// deadline (5s).
func NewJSONRPCAdapter() *JSONRPCAdapter {
	return &JSONRPCAdapter{ReadDeadline: 5 * time.Second}
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      uint64 `json:"id"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonrpcError   `json:"error"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Methods used by this adapter (spec.md §4.B).
const (
	methodPowerOn     = "system.poweron"
	methodPowerOff    = "system.poweroff"
	methodPowerState  = "system.powerstate.get"
	methodLampTime    = "system.lamptime"
)

// PowerOn invokes system.poweron.
func (a *JSONRPCAdapter) PowerOn(ctx context.Context, target Target) retry.Outcome {
	return a.call(ctx, target, methodPowerOn, nil)
}

// PowerOff invokes system.poweroff.
func (a *JSONRPCAdapter) PowerOff(ctx context.Context, target Target) retry.Outcome {
	return a.call(ctx, target, methodPowerOff, nil)
}

// Status invokes system.powerstate.get and forwards the parsed result
// (spec.md §4.B).
func (a *JSONRPCAdapter) Status(ctx context.Context, target Target) retry.Outcome {
	return a.call(ctx, target, methodPowerState, nil)
}

// LampHours invokes system.lamptime, a telemetry extension beyond the three
// operations spec.md §4.B requires (SPEC_FULL.md §C.1).
func (a *JSONRPCAdapter) LampHours(ctx context.Context, target Target) retry.Outcome {
	return a.call(ctx, target, methodLampTime, nil)
}

func (a *JSONRPCAdapter) call(ctx context.Context, target Target, method string, params any) retry.Outcome {
	dialCtx, cancel := effectiveDeadline(ctx, target.Timeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(target.IP, fmt.Sprintf("%d", target.Port)))
	if err != nil {
		return retry.Outcome{Error: errkind.Classify(err)}
	}
	defer conn.Close()

	id := atomic.AddUint64(&a.nextID, 1)
	req := jsonrpcRequest{JSONRPC: "2.0", Method: method, ID: id, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return retry.Outcome{Error: errkind.New(errkind.Internal, err.Error())}
	}
	line = append(line, '\n')

	if _, err := conn.Write(line); err != nil {
		return retry.Outcome{Error: errkind.Classify(err)}
	}

	conn.SetReadDeadline(time.Now().Add(a.ReadDeadline))
	reader := bufio.NewReader(conn)
	raw, err := readJSONRPCFrame(reader)
	if err != nil && len(raw) == 0 {
		return retry.Outcome{Error: errkind.Classify(err)}
	}
	if len(raw) == 0 {
		return retry.Outcome{Error: errkind.New(errkind.EmptyResponse, "no reply")}
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return retry.Outcome{Error: errkind.New(errkind.ProtocolError, err.Error())}
	}

	if resp.Error != nil {
		return retry.Outcome{Error: errkind.Remote(resp.Error.Code, resp.Error.Message)}
	}

	return retry.Outcome{Success: true, Response: string(resp.Result)}
}

// readJSONRPCFrame reads one reply frame, terminated by a newline or by the
// closing brace of a top-level JSON object, whichever comes first (spec.md
// §4.B). A device that closes its object without a trailing newline is as
// valid a frame boundary as one that does.
func readJSONRPCFrame(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	depth := 0
	started := false
	inString := false
	escaped := false

	for {
		b, err := r.ReadByte()
		if err != nil {
			return buf, err
		}
		buf = append(buf, b)

		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			depth++
			started = true
		case '}':
			depth--
			if started && depth == 0 {
				return buf, nil
			}
		case '\n':
			return buf, nil
		}
	}
}
