package commands

import (
	"context"
	"time"

	"github.com/leapstack-labs/relsplit/internal/cli/output"
	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/internal/engine"
	"github.com/leapstack-labs/relsplit/internal/state"
	"github.com/spf13/cobra"
)

// NewSplitCommand creates the split command.
func NewSplitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "split",
		Aliases: []string{"run", "build"},
		Short:   "Split release files into per-object SQL files",
		Long: `Split every configured release file into one file per block.

Blocks are found with the begin/end patterns of the rule document, classified
by their DDL keyword and written under the rendered output path. Each block
produces a status line: success, warning (manual review required) or error.`,
		Example: `  # Split using relsplit.yaml found in the current directory or above
  relsplit split

  # Split one release into a given tree
  relsplit split -i releases/2024-06.sql --output-dir out

  # Show the planned files without writing anything
  relsplit split --dry-run

  # Machine-readable status lines
  relsplit split -o json`,
		Args: cobra.NoArgs,
		RunE: runSplit,
	}

	cmd.Flags().Bool("dry-run", false, "Report the planned files without writing them")
	cmd.Flags().Bool("no-journal", false, "Do not record this run in the journal")

	return cmd
}

func runSplit(cmd *cobra.Command, _ []string) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger, r := cmdCtx.Cfg, cmdCtx.Logger, cmdCtx.Renderer

	if err := cfg.Validate(); err != nil {
		return err
	}
	rules, err := loadRules(cfg)
	if err != nil {
		return err
	}

	reporter := diag.NewReporter(logger, r, diag.LogSink(logger))

	journal, run := startJournal(ctx, cmdCtx, cfg.Release.Inputs(), cfg.Release.Options.DryRun)
	if journal != nil {
		defer func() { _ = journal.Close() }()
		reporter.AddSink(journal.Sink(run))
	}

	eng, err := engine.New(engine.Config{
		Release:  &cfg.Release,
		Rules:    rules,
		Logger:   logger,
		Reporter: reporter,
	})
	if err != nil {
		return err
	}
	logger.Debug("starting split", "engine", eng.String())

	res, runErr := eng.Run(ctx)

	if journal != nil {
		if err := journal.FinishRun(context.WithoutCancel(ctx), run, reporter.Counts(), runErr); err != nil {
			logger.Warn("failed to finish journal run", "run_id", run.ID, "error", err)
		}
	}

	sum := output.RunSummary{
		Inputs: cfg.Release.Inputs(),
		Counts: reporter.Counts(),
		DryRun: cfg.Release.Options.DryRun,
	}
	if res != nil {
		if len(res.Inputs) > 0 {
			sum.Inputs = res.Inputs
		}
		sum.Blocks = res.Blocks
		sum.DryRun = res.DryRun
	}
	if run != nil {
		sum.RunID = run.ID
	}
	if runErr != nil {
		sum.Error = runErr.Error()
	}
	if err := r.Summary(sum, time.Since(start)); err != nil {
		return err
	}

	return runErr
}

// startJournal opens the run journal and starts a run. Failures are logged
// and yield a nil journal; the split itself continues unrecorded.
func startJournal(ctx context.Context, cmdCtx *CommandContext, inputs []string, dryRun bool) (*state.Journal, *state.Run) {
	path := cmdCtx.Cfg.JournalPath()
	if path == "" {
		return nil, nil
	}

	journal, err := state.OpenJournal(path)
	if err != nil {
		cmdCtx.Logger.Warn("journal unavailable, run will not be recorded", "path", path, "error", err)
		return nil, nil
	}
	run, err := journal.StartRun(ctx, inputs, dryRun)
	if err != nil {
		cmdCtx.Logger.Warn("failed to start journal run", "path", path, "error", err)
		_ = journal.Close()
		return nil, nil
	}
	return journal, run
}
