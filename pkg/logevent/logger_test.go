package logevent

import "testing"

type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.events = append(c.events, e)
}

func TestMultiLogger_FansOutToAllLoggers(t *testing.T) {
	a := &captureLogger{}
	b := &captureLogger{}
	m := NewMultiLogger(a, b)

	m.Log(Event{Category: CategoryAlert, DeviceID: "d1"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both loggers to receive the event, got a=%d b=%d", len(a.events), len(b.events))
	}
	if a.events[0].DeviceID != "d1" {
		t.Errorf("unexpected event: %+v", a.events[0])
	}
}

func TestNoopLogger_DiscardsEvents(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{Category: CategoryError, Message: "should vanish"})
}

func TestCategory_String(t *testing.T) {
	tests := map[Category]string{
		CategoryDispatch: "DISPATCH",
		CategoryAttempt:  "ATTEMPT",
		CategoryHealth:   "HEALTH",
		CategoryAlert:    "ALERT",
		CategoryJob:      "JOB",
		CategoryError:    "ERROR",
	}
	for cat, want := range tests {
		if got := cat.String(); got != want {
			t.Errorf("Category(%d).String() = %q, want %q", cat, got, want)
		}
	}
}
