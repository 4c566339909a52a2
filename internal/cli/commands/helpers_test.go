package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/relsplit/internal/cli/config"
	"github.com/leapstack-labs/relsplit/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/testutil"
)

const testRules = `
blocks:
  - name: model
    begin: "--model {object}"
    end: "--end model"
    output_path:
      template: "{base}/{schema}/{object_name}.sql"
    lowercase: [object]
  - name: ddl
    begin: "--ddl {object}"
    end: "--end ddl"
    output_path:
      template: "{base}/ddl/{object_type}/{object_name}.sql"
    object_type_map:
      table: tables
      materialized view: mviews
`

// newTestConfig writes testRules and a release into a temp project and
// returns a config pointing at them with the journal disabled.
func newTestConfig(t *testing.T, release string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Release: config.ReleaseConfig{
			InputReleasePath: testutil.WriteFile(t, dir, "release.sql", release),
			OutputBasePath:   filepath.Join(dir, "out"),
			ObjectTypeMap:    map[string]string{"view": "views", "table": "tables"},
			Options: sharedcfg.Options{
				RulesPath: testutil.WriteFile(t, dir, "rules.yaml", testRules),
			},
		},
		Journal:      config.JournalConfig{Disabled: true},
		OutputFormat: string(output.ModeText),
		ProjectRoot:  dir,
	}
	sharedcfg.ApplyDefaults(&cfg.Release)
	sharedcfg.ApplyLoggingDefaults(&cfg.Logging)
	return cfg
}

// runCommand executes cmd with cfg in its context and returns the combined
// output.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
	cmd.SetContext(ctx)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func newTestRenderer(mode output.Mode) (*output.Renderer, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return output.NewRendererWithTTY(buf, buf, mode, false), buf
}
