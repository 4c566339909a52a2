// Package cli provides the command-line interface for relsplit.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/relsplit/internal/cli/commands"
	"github.com/leapstack-labs/relsplit/internal/cli/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	closeLog = func() error { return nil }
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relsplit",
		Short: "relsplit - SQL release splitter",
		Long: `relsplit splits a monolithic SQL release file into one file per database
object.

Blocks are delimited by configurable begin/end marker lines. Each block is
classified by its DDL keyword (table, view, function, ...) and written to a
path rendered from a template, optionally wrapped in a header and footer.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "init" {
				return nil
			}

			// Load configuration with CLI flags
			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, closer, err := config.NewLogger(cfg.Logging, cmd.ErrOrStderr(), cfg.Verbose)
			if err != nil {
				return err
			}
			closeLog = closer

			// Store config and logger in context
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.ConfigFile != "" {
				logger.Debug("using config file", "path", cfg.ConfigFile)
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
SQL release splitter
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./relsplit.yaml, searched upward)")
	pf.StringP("input", "i", "", "Release file or directory to split")
	pf.String("output-dir", "", "Output base path ({base} in path templates)")
	pf.String("dag-dir", "", "Secondary output root ({dag_folder} in path templates)")
	pf.StringP("rules", "r", "", "Rule document with the block patterns")
	pf.String("encoding", "", "Charset of releases, templates and output (default utf-8)")
	pf.String("env-file", "", "dotenv file for ${VAR} substitution in rule documents")
	pf.String("journal", "", "Path to the run journal database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("log-format", "", "Log format (text|json)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for enumerated flags
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("encoding", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"utf-8", "windows-1251", "koi8-r", "cp866", "iso-8859-1"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewSplitCommand())
	rootCmd.AddCommand(commands.NewMatchCommand())
	rootCmd.AddCommand(commands.NewClassifyCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if cerr := closeLog(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close log file: %w", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for relsplit.

To load completions:

Bash:
  $ source <(relsplit completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ relsplit completion bash > /etc/bash_completion.d/relsplit
  # macOS:
  $ relsplit completion bash > $(brew --prefix)/etc/bash_completion.d/relsplit

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ relsplit completion zsh > "${fpath[1]}/_relsplit"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ relsplit completion fish | source

  # To load completions for each session, execute once:
  $ relsplit completion fish > ~/.config/fish/completions/relsplit.fish

PowerShell:
  PS> relsplit completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> relsplit completion powershell > relsplit.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
