package adapter_test

import (
	"context"
	"testing"
	"time"

	"github.com/venuecontrol/avctl/pkg/adapter"
)

func TestSemicolonAdapter_PowerOn_SendsExactCommand(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
	}()

	a := &adapter.SemicolonAdapter{ReadDelay: 10 * time.Millisecond, ReadDeadline: 100 * time.Millisecond}
	target := adapter.Target{IP: "127.0.0.1", Port: port, Timeout: time.Second}
	outcome := a.PowerOn(context.Background(), target)

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if got := <-received; got != "SET(0;Power;1)\r\n" {
		t.Errorf("unexpected command: %q", got)
	}
}

func TestSemicolonAdapter_Status_InterpretsOnOffUnknown(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"1", "on"},
		{"on", "on"},
		{"0", "off"},
		{"off", "off"},
		{"xyz", "unknown"},
	}

	for _, tc := range tests {
		ln, port := listen(t)
		go func(reply string) {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 64)
			conn.Read(buf)
			conn.Write([]byte(reply))
		}(tc.reply)

		a := &adapter.SemicolonAdapter{ReadDelay: 10 * time.Millisecond, ReadDeadline: 200 * time.Millisecond}
		target := adapter.Target{IP: "127.0.0.1", Port: port, Timeout: time.Second}
		outcome := a.Status(context.Background(), target)
		ln.Close()

		if !outcome.Success {
			t.Fatalf("reply %q: expected success, got %+v", tc.reply, outcome)
		}
		if outcome.Response != tc.want {
			t.Errorf("reply %q: got %q, want %q", tc.reply, outcome.Response, tc.want)
		}
	}
}
