// Package diag carries the status stream of a split run.
//
// Every block outcome becomes an Event. A Reporter stamps, counts and fans
// events out to sinks: the console renderer, the structured logger and the
// run journal.
package diag

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/relsplit/pkg/core"
)

// Event is one line of the status stream.
type Event struct {
	Level core.Status
	// Input is the release file the event belongs to.
	Input string
	// Block is the pattern name, empty for file-level events.
	Block string
	// Path is the resolved output path, if any.
	Path    string
	Message string
	// Line is the 1-based line of the begin marker, 0 when not applicable.
	Line int
	Time time.Time
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Counts tallies events per level.
type Counts struct {
	Success int `json:"success"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// Total returns the number of counted events.
func (c Counts) Total() int { return c.Success + c.Warning + c.Error }

func (c *Counts) add(s core.Status) {
	switch s {
	case core.StatusSuccess:
		c.Success++
	case core.StatusWarning:
		c.Warning++
	case core.StatusError:
		c.Error++
	}
}

// Reporter fans events out to its sinks.
// A failing sink is logged and does not stop the others.
type Reporter struct {
	sinks  []Sink
	logger *slog.Logger
	counts Counts
	now    func() time.Time
}

// NewReporter creates a Reporter. A nil logger discards sink failures.
func NewReporter(logger *slog.Logger, sinks ...Sink) *Reporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{sinks: sinks, logger: logger, now: time.Now}
}

// AddSink appends a sink.
func (r *Reporter) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Report records ev and forwards it to every sink.
func (r *Reporter) Report(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}
	r.counts.add(ev.Level)
	for _, s := range r.sinks {
		if err := s.Emit(ctx, ev); err != nil {
			r.logger.Warn("diagnostic sink failed", "error", err, "block", ev.Block, "path", ev.Path)
		}
	}
}

// Success reports a written block.
func (r *Reporter) Success(ctx context.Context, ev Event) {
	ev.Level = core.StatusSuccess
	r.Report(ctx, ev)
}

// Warning reports output that needs manual review.
func (r *Reporter) Warning(ctx context.Context, ev Event) {
	ev.Level = core.StatusWarning
	r.Report(ctx, ev)
}

// Error reports a failure.
func (r *Reporter) Error(ctx context.Context, ev Event) {
	ev.Level = core.StatusError
	r.Report(ctx, ev)
}

// Counts returns the tally so far.
func (r *Reporter) Counts() Counts { return r.counts }

// LogSink writes events to a structured logger.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) error {
		attrs := []any{"status", ev.Level.String(), "input", ev.Input}
		if ev.Block != "" {
			attrs = append(attrs, "block", ev.Block)
		}
		if ev.Path != "" {
			attrs = append(attrs, "path", ev.Path)
		}
		if ev.Line > 0 {
			attrs = append(attrs, "line", ev.Line)
		}
		logger.Log(ctx, slogLevel(ev.Level), ev.Message, attrs...)
		return nil
	})
}

func slogLevel(s core.Status) slog.Level {
	switch s {
	case core.StatusWarning:
		return slog.LevelWarn
	case core.StatusError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Collector keeps events in memory.
type Collector struct {
	Events []Event
}

// Emit appends ev.
func (c *Collector) Emit(_ context.Context, ev Event) error {
	c.Events = append(c.Events, ev)
	return nil
}

// Filter returns the collected events at the given level.
func (c *Collector) Filter(level core.Status) []Event {
	var out []Event
	for _, ev := range c.Events {
		if ev.Level == level {
			out = append(out, ev)
		}
	}
	return out
}
