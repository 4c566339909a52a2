package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/leapstack-labs/relsplit/internal/cli/output"
	"github.com/leapstack-labs/relsplit/internal/state"
	"github.com/spf13/cobra"
)

// RunInfo is the JSON form of a journal run.
type RunInfo struct {
	ID          string   `json:"id"`
	StartedAt   string   `json:"started_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Status      string   `json:"status"`
	Inputs      []string `json:"inputs"`
	DryRun      bool     `json:"dry_run"`
	Successes   int      `json:"successes"`
	Warnings    int      `json:"warnings"`
	Errors      int      `json:"errors"`
	Error       string   `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded split runs",
		Long: `Show the split runs recorded in the journal, newest first.

With a run id (or a unique prefix of one), list the status events of that run.`,
		Example: `  relsplit history
  relsplit history --limit 5
  relsplit history 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			path := cmdCtx.Cfg.JournalPath()
			if path == "" {
				return errors.New("journal is disabled")
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if r.EffectiveMode() == output.ModeJSON {
					return r.JSONIndent([]RunInfo{})
				}
				r.Println("no runs recorded")
				return nil
			}

			journal, err := state.OpenJournal(path)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			if len(args) > 0 {
				return showRun(cmd, r, journal, args[0])
			}
			return listRuns(cmd, r, journal, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func listRuns(cmd *cobra.Command, r *output.Renderer, j *state.Journal, limit int) error {
	runs, err := j.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]RunInfo, len(runs))
		for i, run := range runs {
			infos[i] = runInfo(run)
		}
		return r.JSONIndent(infos)
	}

	if len(runs) == 0 {
		r.Println("no runs recorded")
		return nil
	}

	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		status := run.Status
		if run.DryRun {
			status += " (dry run)"
		}
		rows = append(rows, []any{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			strings.Join(run.Inputs, ", "),
			run.Counts.Success,
			run.Counts.Warning,
			run.Counts.Error,
		})
	}
	r.Table([]string{"Run", "Started", "Status", "Inputs", "OK", "Warn", "Err"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, r *output.Renderer, j *state.Journal, prefix string) error {
	run, err := findRun(cmd, j, prefix)
	if err != nil {
		return err
	}
	events, err := j.Events(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := struct {
			Run    RunInfo              `json:"run"`
			Events []output.StatusEvent `json:"events"`
		}{Run: runInfo(run), Events: make([]output.StatusEvent, 0, len(events))}
		for _, ev := range events {
			out.Events = append(out.Events, output.StatusEvent{
				Event:   "block",
				Status:  ev.Level.String(),
				Input:   ev.Input,
				Block:   ev.Block,
				Path:    ev.Path,
				Line:    ev.Line,
				Message: ev.Message,
			})
		}
		return r.JSONIndent(out)
	}

	s := r.Styles()
	r.Printf("%s %s  %s\n", s.Header1.Render("Run"), run.ID, run.Status)
	if run.Error != "" {
		r.Println(s.Error.Render("  " + run.Error))
	}
	r.Println("")
	for _, ev := range events {
		r.Println(r.FormatStatus(ev))
	}
	return nil
}

// findRun resolves a full run id or a unique prefix of one.
func findRun(cmd *cobra.Command, j *state.Journal, prefix string) (*state.Run, error) {
	runs, err := j.ListRuns(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var found *state.Run
	for _, run := range runs {
		if run.ID == prefix {
			return run, nil
		}
		if strings.HasPrefix(run.ID, prefix) {
			if found != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
			}
			found = run
		}
	}
	if found == nil {
		return nil, fmt.Errorf("run %q not found", prefix)
	}
	return found, nil
}

func runInfo(run *state.Run) RunInfo {
	info := RunInfo{
		ID:        run.ID,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Status:    run.Status,
		Inputs:    run.Inputs,
		DryRun:    run.DryRun,
		Successes: run.Counts.Success,
		Warnings:  run.Counts.Warning,
		Errors:    run.Counts.Error,
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
