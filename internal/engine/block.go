package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/classify"
	"github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/internal/layout"
	"github.com/leapstack-labs/relsplit/internal/template"
	"github.com/leapstack-labs/relsplit/internal/writer"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

// emit renders, composes and writes one block, reporting the outcome.
func (e *Engine) emit(ctx context.Context, input string, b *core.Block) (writer.Result, error) {
	p := b.Pattern
	ev := diag.Event{Input: input, Block: p.Name, Line: b.BeginLine + 1}

	objectType := ""
	if usesObjectType(p) {
		objectType = e.objectType(b)
	}

	params := layout.Params(b, e.release.RunValues(), objectType)
	dest := layout.RenderBlock(b, params)
	ev.Path = dest

	if !b.Terminated {
		w := ev
		w.Message = fmt.Sprintf("block %q is not closed before end of file; written up to line %d", p.Name, b.EndLine+1)
		e.reporter.Warning(ctx, w)
	}

	header, err := e.template(p.HeaderTemplatePath)
	if err != nil {
		return writer.Result{}, err
	}
	footer, err := e.template(p.FooterTemplatePath)
	if err != nil {
		return writer.Result{}, err
	}
	content := writer.Compose(
		template.Substitute(header, params),
		b.Content,
		template.Substitute(footer, params),
	)

	var res writer.Result
	if e.dryRun {
		encoded, err := e.writer.Charset().Encode(writer.Normalize(content))
		if err != nil {
			return writer.Result{}, &IOError{Path: dest, Op: "write", Err: err}
		}
		res = writer.Result{Path: dest, Bytes: len(encoded)}
	} else {
		res, err = e.writer.Write(ctx, dest, content)
		if err != nil {
			return writer.Result{}, &IOError{Path: dest, Op: "write", Err: err}
		}
	}

	for _, word := range classify.DangerWords(b.Content, e.release.Options.DangerWords) {
		w := ev
		w.Message = fmt.Sprintf("potentially dangerous statement %s in block", word)
		e.reporter.Warning(ctx, w)
		res.Review = true
	}

	ev.Message = "written"
	if e.dryRun {
		ev.Message = "planned (dry run)"
	}
	var notes []string
	if objectType == core.UnknownObjectType {
		notes = append(notes, "object type not recognized, manual review required")
	}
	if prev, ok := e.claim(dest, fmt.Sprintf("%s:%d", input, ev.Line)); ok {
		notes = append(notes, fmt.Sprintf("replaces the output of the block at %s", prev))
		e.logger.Warn("output replaced within run", "path", dest, "previous", prev, "block", p.Name)
	}
	if len(notes) > 0 {
		ev.Message += "; " + strings.Join(notes, "; ")
		e.reporter.Warning(ctx, ev)
		res.Review = true
	} else {
		e.reporter.Success(ctx, ev)
	}

	e.logger.Debug("block emitted",
		"block", p.Name,
		"path", dest,
		"bytes", res.Bytes,
		"object_type", objectType,
		"terminated", b.Terminated)
	return res, nil
}

// objectType resolves the folder bucket of a block. A captured object_type
// is mapped through the keyword map; otherwise the content is classified.
// The pattern's own map wins over the run-level fallback map.
func (e *Engine) objectType(b *core.Block) string {
	m := b.Pattern.ObjectTypeMap
	if !b.Pattern.HasObjectTypeMap() {
		m = e.fallback
	}
	if raw, ok := b.Params[config.ParamObjectType]; ok && raw != "" {
		return classify.Resolve(raw, m)
	}
	return classify.Classify(b.Content, m)
}

// claim records dest as produced by the block at loc. When an earlier block
// of the same run already produced dest, its location is returned.
func (e *Engine) claim(dest, loc string) (string, bool) {
	key := filepath.Clean(dest)
	prev, ok := e.written[key]
	e.written[key] = loc
	return prev, ok
}
