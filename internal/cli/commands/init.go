package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/relsplit/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new relsplit project",
		Long: `Initialize a new relsplit project with a working configuration.

This creates:
  - relsplit.yaml run configuration
  - rules.yaml block patterns (model, ddl and dag blocks)
  - templates/header.sql header prepended to split files
  - releases/example.sql sample release to try "relsplit split" on`,
		Example: `  # Initialize in current directory
  relsplit init

  # Initialize in a new directory
  relsplit init my-release

  # Force overwrite existing files
  relsplit init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputMode(cmd))
			return runInit(cmd.Context(), r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

// outputMode reads the -o flag without loading a configuration, since init
// runs before one exists.
func outputMode(cmd *cobra.Command) output.Mode {
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		return output.Mode(f.Value.String())
	}
	return output.ModeAuto
}

func runInit(ctx context.Context, r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, sharedcfg.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.DefaultConfigFile)
	}

	written, err := copyTemplate("minimal", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		ev := diag.Event{Level: core.StatusSuccess, Path: f, Message: "created"}
		if !slices.Contains(written, f) {
			ev = diag.Event{Level: core.StatusWarning, Path: f, Message: "exists, skipped"}
		}
		if err := r.Emit(ctx, ev); err != nil {
			return err
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return nil
	}
	r.Println("")
	r.Println(r.Styles().Success.Render("relsplit project initialized!"))
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Adjust the block patterns in rules.yaml")
	r.Println("  2. Point release_config.input_release_path at your release")
	r.Println("  3. Run 'relsplit split --dry-run' to preview the files")
	r.Println("  4. Run 'relsplit split' to write them")

	return nil
}
