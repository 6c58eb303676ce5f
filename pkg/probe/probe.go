// Package probe implements reachability probing: ICMP-style ping, a raw TCP
// connect probe, and a single HTTP GET probe (spec.md §4.A). Every probe
// honours a caller deadline and never retries internally — retries are the
// retry engine's job (pkg/retry), matching the layering the reference
// controller uses between pkg/transport (one connection attempt) and
// pkg/connection (retry/backoff policy).
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Result is the outcome of a single probe (spec.md §4.A).
type Result struct {
	Success   bool
	ElapsedMS int64
	Message   string
	RTTMS     int64 // populated only by Ping on success
}

// Config bounds the default deadlines used when a caller doesn't supply a
// tighter one via context.
type Config struct {
	PingTimeout time.Duration
	TCPTimeout  time.Duration
	HTTPTimeout time.Duration
}

// DefaultConfig matches spec.md §4.A's defaults.
func DefaultConfig() Config {
	return Config{
		PingTimeout: 2 * time.Second,
		TCPTimeout:  1 * time.Second,
		HTTPTimeout: 1 * time.Second,
	}
}

// fallbackPort is the well-known port used for the TCP-SYN fallback when
// platform ICMP is unavailable (spec.md §4.A).
const fallbackPort = 7

// Prober issues ping/tcp/http reachability probes against a device IP.
type Prober struct {
	cfg Config
}

// New creates a Prober with the given config. A zero Config is replaced with
// DefaultConfig.
func New(cfg Config) *Prober {
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultConfig().PingTimeout
	}
	if cfg.TCPTimeout <= 0 {
		cfg.TCPTimeout = DefaultConfig().TCPTimeout
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultConfig().HTTPTimeout
	}
	return &Prober{cfg: cfg}
}

// Ping fires one reachability probe with a deadline <= PingTimeout. Pure ICMP
// echo requires raw-socket privilege on most platforms; rather than require
// root, this implementation always uses the TCP-SYN fallback against
// fallbackPort, which is success-equivalent for a LAN-resident A/V device and
// matches spec.md §4.A's explicit fallback clause ("if platform ICMP is
// unavailable, fall back to a single TCP SYN probe on a well-known port").
func (p *Prober) Ping(ctx context.Context, ip string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PingTimeout)
	defer cancel()

	start := time.Now()
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", fallbackPort)))
	elapsed := time.Since(start)

	if err != nil {
		// A "connection refused" on the fallback port still proves the host
		// answered at the IP layer, which is what a ping cares about.
		if isRefused(err) {
			return Result{Success: true, ElapsedMS: elapsed.Milliseconds(), RTTMS: elapsed.Milliseconds(), Message: "host reachable (port closed)"}
		}
		return Result{Success: false, ElapsedMS: elapsed.Milliseconds(), Message: err.Error()}
	}
	defer conn.Close()

	return Result{Success: true, ElapsedMS: elapsed.Milliseconds(), RTTMS: elapsed.Milliseconds(), Message: "reachable"}
}

// TCPProbe opens a TCP connection with a deadline <= TCPTimeout and closes it
// immediately; success iff connect returns without error.
func (p *Prober) TCPProbe(ctx context.Context, ip string, port int) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TCPTimeout)
	defer cancel()

	start := time.Now()
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
	elapsed := time.Since(start)

	if err != nil {
		return Result{Success: false, ElapsedMS: elapsed.Milliseconds(), Message: err.Error()}
	}
	defer conn.Close()
	return Result{Success: true, ElapsedMS: elapsed.Milliseconds(), Message: "connected"}
}

// HTTPProbe issues a single GET http://ip:port/ with a deadline <=
// HTTPTimeout; success iff the response status is < 500.
func (p *Prober) HTTPProbe(ctx context.Context, ip string, port int) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.HTTPTimeout)
	defer cancel()

	start := time.Now()
	url := fmt.Sprintf("http://%s/", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Success: false, ElapsedMS: time.Since(start).Milliseconds(), Message: err.Error()}
	}

	client := &http.Client{Timeout: p.cfg.HTTPTimeout}
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsed.Milliseconds(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{Success: false, ElapsedMS: elapsed.Milliseconds(), Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Result{Success: true, ElapsedMS: elapsed.Milliseconds(), Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
