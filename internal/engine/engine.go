// Package engine splits release files into per-object output files.
// It wires the block extractor, the object classifier, the path renderer and
// the writer together and reports every outcome to a diag.Reporter.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/relsplit/internal/charset"
	"github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/internal/extract"
	"github.com/leapstack-labs/relsplit/internal/loader"
	"github.com/leapstack-labs/relsplit/internal/writer"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

// Engine runs the split pipeline over the configured inputs.
type Engine struct {
	release  *config.ReleaseConfig
	rules    core.RuleSet
	logger   *slog.Logger
	reporter *diag.Reporter
	cs       *charset.Charset
	writer   *writer.Writer
	dryRun   bool

	fallback  core.ObjectTypeMap
	templates map[string]string
	// written maps each destination of the current run to the block that
	// produced it, as "input:line".
	written map[string]string
}

// Config holds engine configuration.
type Config struct {
	// Release is the run-level configuration.
	Release *config.ReleaseConfig
	// Rules is the ordered block pattern set.
	Rules core.RuleSet
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Reporter receives status events (optional, counts only if nil)
	Reporter *diag.Reporter
	// DryRun reports the planned output without writing.
	// Release.Options.DryRun enables it as well.
	DryRun bool
}

// RunResult summarizes a run.
type RunResult struct {
	// Inputs are the release files that were processed, in order.
	Inputs []string
	// Files are the written (or, in dry-run mode, planned) outputs.
	Files  []writer.Result
	Blocks int
	Counts diag.Counts
	DryRun bool
}

// New creates a new engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Release == nil {
		return nil, config.MissingKey("release_config")
	}
	if len(cfg.Rules) == 0 {
		return nil, config.InvalidKey("blocks", nil, "no block patterns configured")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = diag.NewReporter(logger)
	}

	cs, err := charset.Lookup(cfg.Release.Options.Encoding)
	if err != nil {
		return nil, config.InvalidKey("options.encoding", err, "unsupported encoding %q", cfg.Release.Options.Encoding)
	}

	wopts, err := writerOptions(cfg.Release.Options)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing engine",
		"patterns", cfg.Rules.Names(),
		"encoding", cs.Name(),
		"output_base_path", cfg.Release.OutputBasePath)

	return &Engine{
		release:   cfg.Release,
		rules:     cfg.Rules,
		logger:    logger,
		reporter:  reporter,
		cs:        cs,
		writer:    writer.New(cs, wopts...),
		dryRun:    cfg.DryRun || cfg.Release.Options.DryRun,
		fallback:  cfg.Release.FallbackObjectTypes(),
		templates: make(map[string]string),
		written:   make(map[string]string),
	}, nil
}

// Run processes every configured input.
//
// With a single input a read or write failure aborts the run with an
// *IOError. With several inputs the failing file is reported and the others
// are still processed; the failures are returned joined at the end.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	inputs := loader.ExpandInputs(e.release.Inputs())
	if len(inputs) == 0 {
		return nil, config.MissingKey("release_config.input_release_path")
	}

	res := &RunResult{DryRun: e.dryRun}
	clear(e.written)
	single := len(inputs) == 1
	var errs []error

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return e.finish(res), err
		}

		err := in.Err
		if err != nil {
			err = &IOError{Path: in.Path, Op: "read", Err: err}
		} else {
			err = e.processFile(ctx, in.Path, res)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return e.finish(res), err
		}

		e.reporter.Error(ctx, diag.Event{Input: in.Path, Message: err.Error()})
		if single {
			return e.finish(res), err
		}
		e.logger.Warn("release file failed, continuing with remaining inputs", "input", in.Path, "error", err)
		errs = append(errs, err)
	}

	return e.finish(res), errors.Join(errs...)
}

func (e *Engine) finish(res *RunResult) *RunResult {
	res.Counts = e.reporter.Counts()
	return res
}

// processFile splits one release file.
func (e *Engine) processFile(ctx context.Context, path string, res *RunResult) error {
	doc, err := loader.LoadDocument(path, e.cs)
	if err != nil {
		return &IOError{Path: path, Op: "read", Err: err}
	}
	res.Inputs = append(res.Inputs, path)
	e.logger.Info("processing release", "input", path, "lines", doc.Len())

	files, err := e.Split(ctx, doc)
	res.Files = append(res.Files, files...)
	res.Blocks += len(files)
	if err != nil {
		return err
	}

	e.logger.Info("release processed", "input", path, "blocks", len(files))
	return nil
}

// Split extracts every block of doc and writes it.
// It returns the outputs produced before the first failure.
func (e *Engine) Split(ctx context.Context, doc *core.Document) ([]writer.Result, error) {
	var out []writer.Result
	x := extract.New(e.rules, doc)
	for x.Next() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := e.emit(ctx, doc.Path, x.Block())
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// writerOptions converts the configured permission bits into writer options.
func writerOptions(o config.Options) ([]writer.Option, error) {
	var opts []writer.Option
	fm, err := config.ParseMode(o.FileMode)
	if err != nil {
		return nil, config.InvalidKey("options.file_mode", err, "expected octal permission bits")
	}
	if fm != 0 {
		opts = append(opts, writer.WithFileMode(fm))
	}
	dm, err := config.ParseMode(o.DirMode)
	if err != nil {
		return nil, config.InvalidKey("options.dir_mode", err, "expected octal permission bits")
	}
	if dm != 0 {
		opts = append(opts, writer.WithDirMode(dm))
	}
	return opts, nil
}

// usesObjectType reports whether the pattern's output path needs a bucket.
func usesObjectType(p *core.BlockPattern) bool {
	return slices.Contains(p.OutputPath.Params, config.ParamObjectType)
}

// template returns the decoded header or footer at path, cached per run.
func (e *Engine) template(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if t, ok := e.templates[path]; ok {
		return t, nil
	}
	t, err := loader.LoadTemplate(path, e.cs)
	if err != nil {
		return "", &IOError{Path: path, Op: "read", Err: err}
	}
	e.templates[path] = t
	return t, nil
}

// String describes the engine for debug output.
func (e *Engine) String() string {
	return fmt.Sprintf("engine(%d patterns, %s, dry_run=%t)", len(e.rules), e.cs.Name(), e.dryRun)
}
