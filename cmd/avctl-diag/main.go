// Command avctl-diag runs a single ad hoc reachability/protocol check
// against one IP, without touching a config file or the device registry —
// a field-troubleshooting tool for "is this one projector even up"
// questions, grounded on the original system's scripts/diagnostics.py
// network/TCP-port checks but narrowed to a single target per run.
//
// Usage:
//
//	avctl-diag -ip 192.168.1.10 -family ascii-line [-port 23] [-timeout-ms 3000]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/venuecontrol/avctl/pkg/adapter"
	"github.com/venuecontrol/avctl/pkg/probe"
	"github.com/venuecontrol/avctl/pkg/registry"
)

func main() {
	var (
		ip        string
		family    string
		port      int
		timeoutMS int
	)
	flag.StringVar(&ip, "ip", "", "Target IPv4 address (required)")
	flag.StringVar(&family, "family", "", "Protocol family: ascii-line, json-rpc, semicolon-tcp, passive-pc (optional; ping/tcp-only if omitted)")
	flag.IntVar(&port, "port", 0, "TCP port (defaults to the family's standard port)")
	flag.IntVar(&timeoutMS, "timeout-ms", 3000, "Per-operation timeout in milliseconds")
	flag.Parse()

	if ip == "" {
		fmt.Fprintln(os.Stderr, "avctl-diag: -ip is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMS)*time.Millisecond*4)
	defer cancel()

	prober := probe.New(probe.DefaultConfig())

	fmt.Printf("ping %s ... ", ip)
	pingResult := prober.Ping(ctx, ip)
	fmt.Println(outcomeLabel(pingResult.Success))

	if family == "" {
		return
	}

	f := registry.Family(family)
	if port == 0 {
		port = f.DefaultPort()
	}

	fmt.Printf("tcp %s:%d ... ", ip, port)
	tcpResult := prober.TCPProbe(ctx, ip, port)
	fmt.Println(outcomeLabel(tcpResult.Success))
	if !tcpResult.Success {
		return
	}

	a := adapterForFamily(f, prober)
	if a == nil {
		fmt.Fprintf(os.Stderr, "avctl-diag: unknown family %q\n", family)
		os.Exit(2)
	}

	target := adapter.Target{IP: ip, Port: port, Timeout: time.Duration(timeoutMS) * time.Millisecond}
	fmt.Printf("status %s ... ", family)
	outcome := a.Status(ctx, target)
	fmt.Println(outcomeLabel(outcome.Success))
	if outcome.Success {
		fmt.Printf("  response: %s\n", outcome.Response)
	} else if outcome.Error != nil {
		fmt.Printf("  error: %s: %s\n", outcome.Error.Kind, outcome.Error.Message)
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "OK"
	}
	return "FAIL"
}

func adapterForFamily(f registry.Family, prober *probe.Prober) adapter.Adapter {
	switch f {
	case registry.FamilyASCIILine:
		return adapter.NewASCIIAdapter()
	case registry.FamilyJSONRPC:
		return adapter.NewJSONRPCAdapter()
	case registry.FamilySemicolonTCP:
		return adapter.NewSemicolonAdapter()
	case registry.FamilyPassivePC:
		return adapter.NewPassiveAdapter(prober)
	default:
		return nil
	}
}
