package interactionlog

import (
	"context"
	"time"

	"github.com/pterm/pterm"
)

// Sink persists entries.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Entry) error
}

// Logger fans entries out to its sinks.
type Logger struct {
	sinks []Sink
	diag  *pterm.Logger
	now   func() time.Time
}

// New creates a Logger. diag receives sink failures.
func New(diag *pterm.Logger, sinks ...Sink) *Logger {
	return &Logger{sinks: sinks, diag: diag, now: time.Now}
}

// WithClock overrides the timestamp source.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

// Log records one dispatch and returns the entry that was built. Every sink
// is attempted; failures are logged as warnings and otherwise ignored.
func (l *Logger) Log(ctx context.Context, c Context, req Request, res Result) Entry {
	if l == nil {
		return NewEntry(time.Now(), c, req, res)
	}
	e := NewEntry(l.now(), c, req, res)
	// Sinks must not be starved by a canceled dispatch.
	ctx = context.WithoutCancel(ctx)
	for _, s := range l.sinks {
		if err := s.Write(ctx, e); err != nil && l.diag != nil {
			l.diag.Warn("interaction log write failed", l.diag.Args("sink", s.Name(), "entry_id", e.ID, "error", err.Error()))
		}
	}
	return e
}
