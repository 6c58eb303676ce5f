package logevent

import (
	"context"
	"log/slog"
)

// SlogAdapter writes Events to an *slog.Logger. Useful for console output
// during development and as one leg of a MultiLogger in production.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes event at Info level for everything except CategoryError,
// which logs at Error level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.GroupID != "" {
		attrs = append(attrs, slog.String("group_id", event.GroupID))
	}
	if event.JobID != "" {
		attrs = append(attrs, slog.String("job_id", event.JobID))
	}
	for k, v := range event.Detail {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelInfo
	if event.Category == CategoryError {
		level = slog.LevelError
	}
	a.logger.LogAttrs(context.Background(), level, event.Message, attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
