package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/relsplit/internal/cli/config"
	"github.com/leapstack-labs/relsplit/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer prepared by the
// root command. A command run on its own loads the config from the working
// directory instead.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

// Helper functions shared across commands

// getConfig returns the configuration stored by the root command, or loads
// it when the command runs without one.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Context() != nil {
		if cfg := config.GetConfig(cmd.Context()); cfg != nil {
			return cfg, nil
		}
	}
	return config.LoadConfig("", cmd.Flags())
}

// loadRules reads the block patterns: from options.rules_path when set,
// otherwise from a blocks section inside the config file itself.
func loadRules(cfg *config.Config) (core.RuleSet, error) {
	x, err := sharedcfg.NewExpander(&cfg.Release)
	if err != nil {
		return nil, err
	}

	if path := cfg.Release.Options.RulesPath; path != "" {
		return sharedcfg.LoadRules(path, x)
	}

	if cfg.ConfigFile != "" {
		data, err := os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if sharedcfg.HasRules(data) {
			return sharedcfg.ParseRules(data, cfg.ConfigFile, x)
		}
	}

	return nil, sharedcfg.MissingKey("release_config.options.rules_path")
}
