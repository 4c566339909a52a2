package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/internal/testutil"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

const testRules = `
blocks:
  - name: model
    begin: "--model {object}"
    end: "--end model"
    params: [object]
    output_path:
      template: "{base}/{schema}/{object_name}.sql"
      params: [base, schema, object_name]
  - name: ddl
    begin: "--ddl {object}"
    end: "--end ddl"
    output_path:
      template: "{base}/ddl/{object_type}/{object_name}.sql"
    header_template_path: templates/header.sql
    object_type_map:
      table: tables
      view: views
    lowercase: [object]
  - name: typed
    begin: "--obj {object_type} {object}"
    end: "--end obj"
    output_path:
      template: "{base}/typed/{object_type}/{object_name}.sql"
  - name: dag
    begin: "--dag {object}"
    end: "--end dag"
    output_path:
      template: "{dag_folder}/{object_type}/{object_name}.py"
  - name: anchor
    begin: "--anchor"
    end: "--end anchor"
    output_path:
      template: "{base}/anchors/{object_type}.sql"
  - name: step
    begin: "--step"
    end: "--end step"
    output_path:
      template: "{base}/steps/{seq}_{object_type}.sql"
`

type fixture struct {
	dir      string
	out      string
	rules    core.RuleSet
	release  *config.ReleaseConfig
	events   *diag.Collector
	reporter *diag.Reporter
}

func newFixture(t *testing.T, release string) *fixture {
	t.Helper()
	dir := t.TempDir()
	rulesPath := testutil.WriteFile(t, dir, "rules.yaml", testRules)
	testutil.WriteFile(t, dir, "templates/header.sql", "-- deploy {schema}.{object_name} {unknown}\n")

	rules, err := config.ParseRules([]byte(testRules), rulesPath, nil)
	require.NoError(t, err)

	f := &fixture{
		dir:    dir,
		out:    filepath.Join(dir, "out"),
		rules:  rules,
		events: &diag.Collector{},
	}
	f.release = &config.ReleaseConfig{
		InputReleasePath: testutil.WriteFile(t, dir, "release.sql", release),
		OutputBasePath:   f.out,
		DagOutputPath:    filepath.Join(dir, "dags"),
		ObjectTypeMap:    map[string]string{"view": "views", "table": "tables"},
	}
	config.ApplyDefaults(f.release)
	f.reporter = diag.NewReporter(nil, f.events)
	return f
}

func (f *fixture) engine(t *testing.T, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		Release:  f.release,
		Rules:    f.rules,
		Logger:   testutil.NewTestLogger(t),
		Reporter: f.reporter,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestEngine_ModelBlock(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"-- release 42",
		"--model mis.v_patients",
		"create view mis.v_patients as",
		"select * from mis.patients;",
		"--end model",
	))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	dest := filepath.Join(f.out, "mis", "v_patients.sql")
	assert.Equal(t, "create view mis.v_patients as\nselect * from mis.patients;\n", testutil.ReadFile(t, dest))

	require.Len(t, res.Files, 1)
	assert.Equal(t, dest, res.Files[0].Path)
	assert.False(t, res.Files[0].Review)
	assert.Equal(t, 1, res.Blocks)
	assert.Equal(t, []string{f.release.InputReleasePath}, res.Inputs)
	assert.Equal(t, diag.Counts{Success: 1}, res.Counts)

	require.Len(t, f.events.Events, 1)
	ev := f.events.Events[0]
	assert.Equal(t, core.StatusSuccess, ev.Level)
	assert.Equal(t, "model", ev.Block)
	assert.Equal(t, dest, ev.Path)
	assert.Equal(t, 2, ev.Line)
}

func TestEngine_ClassifiedBlockWithHeader(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--ddl CORE.T1",
		"CREATE OR REPLACE TABLE core.t1 (id int);",
		"--end ddl",
	))

	_, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	got := testutil.ReadFile(t, filepath.Join(f.out, "ddl", "tables", "t1.sql"))
	assert.Equal(t, "-- deploy core.t1 {unknown}\nCREATE OR REPLACE TABLE core.t1 (id int);\n", got)
}

func TestEngine_UnknownObjectType(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--ddl core.s1",
		"create sequence core.s1;",
		"--end ddl",
	))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.out, "ddl", "unknown", "s1.sql"))
	require.Len(t, res.Files, 1)
	assert.True(t, res.Files[0].Review)
	assert.Equal(t, diag.Counts{Warning: 1}, res.Counts)
	assert.Contains(t, f.events.Events[0].Message, "manual review")
}

func TestEngine_CapturedObjectType(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--obj VIEW rep.daily",
		"create view rep.daily as select 1;",
		"--end obj",
		"--obj matview rep.weekly",
		"create materialized view rep.weekly as select 1;",
		"--end obj",
	))

	_, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	// Pattern without its own map falls back to the run-level map.
	assert.Equal(t, []string{"typed/matview/weekly.sql", "typed/views/daily.sql"},
		testutil.Tree(t, f.out))
}

func TestEngine_SecondaryRoot(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--dag etl.load_orders",
		"with DAG('load_orders') as dag:",
		"    pass",
		"--end dag",
	))

	_, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	// No create statement: the bucket is unknown.
	got := testutil.ReadFile(t, filepath.Join(f.dir, "dags", "unknown", "load_orders.py"))
	assert.Equal(t, "with DAG('load_orders') as dag:\n    pass\n", got)
}

func TestEngine_UnterminatedBlock(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.a",
		"select 1;",
		"--end model",
		"--model mis.b",
		"select 2;",
	))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "select 2;\n", testutil.ReadFile(t, filepath.Join(f.out, "mis", "b.sql")))
	assert.Equal(t, 2, res.Blocks)
	assert.Equal(t, diag.Counts{Success: 2, Warning: 1}, res.Counts)

	warnings := f.events.Filter(core.StatusWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "not closed")
	assert.Equal(t, 4, warnings[0].Line)
	assert.Equal(t, filepath.Join(f.out, "mis", "b.sql"), warnings[0].Path)
}

func TestEngine_DangerWords(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.cleanup",
		"drop table mis.tmp;",
		"truncate mis.stage;",
		"--end model",
	))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	warnings := f.events.Filter(core.StatusWarning)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, "DROP")
	assert.Contains(t, warnings[1].Message, "TRUNCATE")
	assert.True(t, res.Files[0].Review)
}

func TestEngine_DryRun(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.v",
		"select 1;",
		"--end model",
	))

	res, err := f.engine(t, func(c *Config) { c.DryRun = true }).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(f.out, "mis", "v.sql"), res.Files[0].Path)
	assert.Equal(t, len("select 1;\n"), res.Files[0].Bytes)
	assert.NoDirExists(t, f.out)
	assert.Contains(t, f.events.Events[0].Message, "dry run")
}

func TestEngine_ReplacedOutputIsReported(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--anchor",
		"create table a.t1 (x int);",
		"--end anchor",
		"--anchor",
		"create table a.t2 (y int);",
		"--end anchor",
		"--ddl CORE.T1",
		"create table core.t1 (id int);",
		"--end ddl",
		"--ddl core.t1",
		"create table core.t1 (id bigint);",
		"--end ddl",
	))
	logger, logs := testutil.NewBufferLogger()

	res, err := f.engine(t, func(c *Config) { c.Logger = logger }).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Blocks)
	assert.Equal(t, diag.Counts{Success: 2, Warning: 2}, res.Counts)
	assert.Equal(t, []string{"anchors/tables.sql", "ddl/tables/t1.sql"}, testutil.Tree(t, f.out))
	assert.Equal(t, "create table a.t2 (y int);\n",
		testutil.ReadFile(t, filepath.Join(f.out, "anchors", "tables.sql")))

	review := []bool{res.Files[0].Review, res.Files[1].Review, res.Files[2].Review, res.Files[3].Review}
	assert.Equal(t, []bool{false, true, false, true}, review)

	warnings := f.events.Filter(core.StatusWarning)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, "replaces the output of the block at "+f.release.InputReleasePath+":1")
	assert.Equal(t, filepath.Join(f.out, "anchors", "tables.sql"), warnings[0].Path)
	assert.Contains(t, warnings[1].Message, f.release.InputReleasePath+":7")
	assert.Contains(t, logs.String(), "output replaced within run")
}

func TestEngine_SeqKeepsBlocksApart(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--step",
		"create table a.t (x int);",
		"--end step",
		"--step",
		"create table a.u (y int);",
		"--end step",
	))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, diag.Counts{Success: 2}, res.Counts)
	assert.Equal(t, []string{"steps/1_tables.sql", "steps/2_tables.sql"}, testutil.Tree(t, f.out))
	assert.Equal(t, "create table a.u (y int);\n",
		testutil.ReadFile(t, filepath.Join(f.out, "steps", "2_tables.sql")))
}

func TestEngine_ReplacedOutputResetsPerRun(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.v",
		"select 1;",
		"--end model",
	))
	e := f.engine(t)

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Files[0].Review)
	assert.Empty(t, f.events.Filter(core.StatusWarning))
}

func TestEngine_FileMode(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.v",
		"select 1;",
		"--end model",
	))
	f.release.Options.FileMode = "0600"

	_, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(f.out, "mis", "v.sql"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEngine_InvalidUTF8Aborts(t *testing.T) {
	f := newFixture(t, "")
	// windows-1251 bytes read as UTF-8
	require.NoError(t, os.WriteFile(f.release.InputReleasePath, []byte("--model mis.v\n-- \xcf\xf0\n--end model\n"), 0o600))

	_, err := f.engine(t).Run(context.Background())
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
	assert.Contains(t, err.Error(), "invalid byte sequence")
	assert.NoDirExists(t, f.out)
}

func TestEngine_MissingSingleInputAborts(t *testing.T) {
	f := newFixture(t, "")
	f.release.InputReleasePath = filepath.Join(f.dir, "missing.sql")

	res, err := f.engine(t).Run(context.Background())
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, res.Counts.Error)
}

func TestEngine_MultipleInputsContinue(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.first",
		"select 1;",
		"--end model",
	))
	second := testutil.WriteFile(t, f.dir, "release_2.sql", testutil.Release(
		"--model mis.second",
		"select 2;",
		"--end model",
	))
	f.release.InputReleasePaths = []string{filepath.Join(f.dir, "missing.sql"), second}

	res, err := f.engine(t).Run(context.Background())
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, filepath.Join(f.dir, "missing.sql"), ioErr.Path)

	assert.Equal(t, []string{"mis/first.sql", "mis/second.sql"}, testutil.Tree(t, f.out))
	assert.Equal(t, diag.Counts{Success: 2, Error: 1}, res.Counts)
	assert.Len(t, res.Inputs, 2)
}

func TestEngine_DirectoryInput(t *testing.T) {
	f := newFixture(t, "")
	releases := filepath.Join(f.dir, "releases")
	testutil.WriteFile(t, releases, "b.sql", testutil.Release("--model s.b", "select 2;", "--end model"))
	testutil.WriteFile(t, releases, "a.sql", testutil.Release("--model s.a", "select 1;", "--end model"))
	testutil.WriteFile(t, releases, ".hidden.sql", testutil.Release("--model s.h", "select 3;", "--end model"))
	f.release.InputReleasePath = releases

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(releases, "a.sql"), filepath.Join(releases, "b.sql")}, res.Inputs)
	assert.Equal(t, []string{"s/a.sql", "s/b.sql"}, testutil.Tree(t, f.out))
}

func TestEngine_WriteFailure(t *testing.T) {
	f := newFixture(t, testutil.Release(
		"--model mis.a",
		"select 1;",
		"--end model",
		"--model mis.b",
		"select 2;",
		"--end model",
	))
	// A file where the output directory should be.
	testutil.WriteFile(t, f.dir, "out/mis", "not a directory")

	res, err := f.engine(t).Run(context.Background())
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, filepath.Join(f.out, "mis", "a.sql"), ioErr.Path)
	assert.Empty(t, res.Files)
}

func TestEngine_Cancelled(t *testing.T) {
	f := newFixture(t, testutil.Release("--model mis.a", "select 1;", "--end model"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine(t).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, f.out)
}

func TestEngine_NoBlocks(t *testing.T) {
	f := newFixture(t, testutil.Release("select 1;", "-- nothing to split"))

	res, err := f.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Blocks)
	assert.Empty(t, f.events.Events)
}

func TestNew_Errors(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name string
		cfg  Config
		key  string
	}{
		{"no release", Config{Rules: f.rules}, "release_config"},
		{"no rules", Config{Release: f.release}, "blocks"},
		{
			name: "bad file mode",
			cfg: Config{
				Release: &config.ReleaseConfig{Options: config.Options{FileMode: "999"}},
				Rules:   f.rules,
			},
			key: "options.file_mode",
		},
		{
			name: "bad encoding",
			cfg: Config{
				Release: &config.ReleaseConfig{Options: config.Options{Encoding: "no-such-charset"}},
				Rules:   f.rules,
			},
			key: "options.encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrConfig)

			var cfgErr *config.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestIOError(t *testing.T) {
	err := &IOError{Path: "/out/a.sql", Op: "write", Err: os.ErrPermission}
	assert.Equal(t, "write /out/a.sql: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}
