// Package events records the append-only pipeline event log.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Pipeline steps.
const (
	StepConfiguration = "Configuration"
	StepRecording     = "Recording"
	StepTranscription = "Transcription"
	StepGeneration    = "AI Processing"
	StepPlayback      = "Playback"
	StepComplete      = "Complete"
	StepError         = "Error"
)

// Event is one immutable entry in the log.
type Event struct {
	ID        string
	Timestamp time.Time
	Step      string
	Message   string
	Severity  Severity
	Duration  *time.Duration
}

// DurationMS reports the attached duration in milliseconds, if any.
func (e Event) DurationMS() (int64, bool) {
	if e.Duration == nil {
		return 0, false
	}
	return e.Duration.Milliseconds(), true
}

// Log keeps events in strictly increasing timestamp order.
type Log struct {
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	events      []Event
	subscribers []func(Event)
}

type Option func(*Log)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates an empty log mirrored into logger.
func New(logger *slog.Logger, opts ...Option) *Log {
	l := &Log{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers fn to receive every future event, in order. fn is
// called with the log locked and must not call back into it.
func (l *Log) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

func (l *Log) Info(step, message string) Event {
	return l.Append(step, message, SeverityInfo, nil)
}

func (l *Log) Success(step, message string, d time.Duration) Event {
	return l.Append(step, message, SeveritySuccess, &d)
}

func (l *Log) Warning(step, message string) Event {
	return l.Append(step, message, SeverityWarning, nil)
}

func (l *Log) Error(step, message string) Event {
	return l.Append(step, message, SeverityError, nil)
}

// Append records an event. Timestamps that do not advance past the previous
// event are nudged forward by one nanosecond.
func (l *Log) Append(step, message string, severity Severity, duration *time.Duration) Event {
	l.mu.Lock()
	ts := l.now()
	if n := len(l.events); n > 0 {
		if last := l.events[n-1].Timestamp; !ts.After(last) {
			ts = last.Add(time.Nanosecond)
		}
	}

	var d *time.Duration
	if duration != nil {
		copied := *duration
		d = &copied
	}

	event := Event{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Step:      step,
		Message:   message,
		Severity:  severity,
		Duration:  d,
	}
	l.events = append(l.events, event)
	for _, fn := range l.subscribers {
		fn(event)
	}
	l.mu.Unlock()

	l.mirror(event)
	return event
}

// Len returns the number of events appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Events returns a copy of every event.
func (l *Log) Events() []Event {
	return l.Since(0)
}

// Since returns a copy of the events appended at or after index mark.
func (l *Log) Since(mark int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if mark < 0 {
		mark = 0
	}
	if mark >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-mark)
	copy(out, l.events[mark:])
	for i := range out {
		if out[i].Duration != nil {
			d := *out[i].Duration
			out[i].Duration = &d
		}
	}
	return out
}

func (l *Log) mirror(e Event) {
	if l.logger == nil {
		return
	}
	level := slog.LevelInfo
	switch e.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	attrs := []any{
		"event_id", e.ID,
		"step", e.Step,
		"severity", string(e.Severity),
		"message", e.Message,
	}
	if ms, ok := e.DurationMS(); ok {
		attrs = append(attrs, "duration_ms", ms)
	}
	l.logger.Log(context.Background(), level, "pipeline event", attrs...)
}
