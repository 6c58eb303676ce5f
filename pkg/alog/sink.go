package alog

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/venuecontrol/avctl/pkg/orchestrator"
)

// FileSink appends action-log Records to a CBOR-encoded file. It satisfies
// orchestrator.Sink, mirroring the reference controller's FileLogger —
// one append-only encoder guarded by a mutex, degraded from "protocol
// frame log" to "device action log".
type FileSink struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileSink opens (creating if absent) path for append and returns a
// FileSink that writes to it. Existing records are preserved.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f, encoder: newEncoder(f)}, nil
}

// RecordDevice implements orchestrator.Sink, expanding result into one
// Record per attempt and appending each in order.
func (s *FileSink) RecordDevice(result orchestrator.DeviceResult, action orchestrator.Action, trigger orchestrator.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for _, rec := range recordsForResult(result, action, trigger) {
		// Encoding errors are not surfaced: a logging failure must never
		// fail a dispatch (spec.md §6 persisted state is best-effort).
		_ = s.encoder.Encode(rec)
	}
}

// Close closes the underlying file. Safe to call multiple times; after
// Close, RecordDevice is silently ignored.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

var _ orchestrator.Sink = (*FileSink)(nil)
