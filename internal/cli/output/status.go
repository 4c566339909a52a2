package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/relsplit/internal/diag"
)

// StatusEvent is the JSON form of one status line.
type StatusEvent struct {
	Event   string `json:"event"`
	Status  string `json:"status"`
	Input   string `json:"input,omitempty"`
	Block   string `json:"block,omitempty"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message,omitempty"`
}

// RunSummary is the JSON form of the end-of-run line.
type RunSummary struct {
	Event    string      `json:"event"`
	RunID    string      `json:"run_id,omitempty"`
	Inputs   []string    `json:"inputs"`
	Blocks   int         `json:"blocks"`
	Counts   diag.Counts `json:"counts"`
	DryRun   bool        `json:"dry_run,omitempty"`
	Duration string      `json:"duration"`
	Error    string      `json:"error,omitempty"`
}

// Emit renders one status event. It makes the Renderer a diag.Sink.
func (r *Renderer) Emit(_ context.Context, ev diag.Event) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(StatusEvent{
			Event:   "block",
			Status:  ev.Level.String(),
			Input:   ev.Input,
			Block:   ev.Block,
			Path:    ev.Path,
			Line:    ev.Line,
			Message: ev.Message,
		})
	}
	_, err := fmt.Fprintln(r.out, r.FormatStatus(ev))
	return err
}

// FormatStatus formats an event as one text line:
//
//	success  model  /out/mis/v_patients.sql  written
//	warning  ddl  /out/ddl/unknown/s1.sql  written; object type not recognized, manual review required
func (r *Renderer) FormatStatus(ev diag.Event) string {
	s := r.styles
	level := fmt.Sprintf("%-7s", ev.Level.String())
	if r.EffectiveMode() == ModeMarkdown {
		level = "- **" + ev.Level.String() + "**"
	}

	parts := []string{s.StatusStyle(ev.Level).Render(level)}
	if ev.Block != "" {
		parts = append(parts, s.Bold.Render(ev.Block))
	}
	switch {
	case ev.Path != "":
		parts = append(parts, s.Path.Render(ev.Path))
	case ev.Input != "":
		parts = append(parts, s.Path.Render(ev.Input))
	}
	if ev.Message != "" {
		parts = append(parts, s.Muted.Render(ev.Message))
	}
	return strings.Join(parts, "  ")
}

// Summary renders the end-of-run summary.
func (r *Renderer) Summary(sum RunSummary, elapsed time.Duration) error {
	sum.Event = "run_complete"
	sum.Duration = elapsed.Round(time.Millisecond).String()
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(sum)
	}

	s := r.styles
	verb := "written"
	if sum.DryRun {
		verb = "planned"
	}
	r.Println("")
	r.Printf("%s %d file(s) %s from %d release(s) in %s\n",
		s.Bold.Render("Done:"), sum.Blocks, verb, len(sum.Inputs), sum.Duration)
	r.Printf("  %s  %s  %s\n",
		s.Success.Render(fmt.Sprintf("%d success", sum.Counts.Success)),
		s.Warning.Render(fmt.Sprintf("%d warning", sum.Counts.Warning)),
		s.Error.Render(fmt.Sprintf("%d error", sum.Counts.Error)))
	if sum.RunID != "" {
		r.Println(s.Muted.Render("  run " + sum.RunID))
	}
	return nil
}
