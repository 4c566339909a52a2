// Package layout computes the destination path of a block.
package layout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

var repeatedSlash = regexp.MustCompile(`/{2,}`)

// Params gathers the template parameters for a block, lowest priority first:
// run-level values (base, dag_folder), the block number (seq), the block
// captures, the schema and object_name split of the pattern's SplitObject
// capture, and finally the resolved object type when objectType is not empty.
func Params(b *core.Block, run map[string]string, objectType string) map[string]string {
	params := make(map[string]string, len(run)+len(b.Params)+4)
	for k, v := range run {
		params[k] = v
	}
	if b.Seq > 0 {
		params[config.ParamSeq] = strconv.Itoa(b.Seq)
	}
	for k, v := range b.Params {
		params[k] = v
	}

	if b.Pattern != nil && b.Pattern.SplitObject != "" {
		if obj, ok := b.Params[b.Pattern.SplitObject]; ok {
			schema, name := SplitObject(obj)
			setDefault(params, config.ParamSchema, schema)
			setDefault(params, config.ParamObjectName, name)
		}
	}

	if objectType != "" {
		params[config.ParamObjectType] = objectType
	}
	return params
}

// setDefault sets k unless a capture of the same name already provided it.
func setDefault(params map[string]string, k, v string) {
	if _, ok := params[k]; !ok {
		params[k] = v
	}
}

// SplitObject splits "schema.name" on its first ".". Without a "." the
// schema is core.UnknownObjectType and the whole value is the name.
func SplitObject(obj string) (schema, name string) {
	if s, n, ok := strings.Cut(obj, "."); ok {
		return s, n
	}
	return core.UnknownObjectType, obj
}

// Render substitutes params into tpl and collapses repeated "/" separators.
// Missing parameters render as empty strings.
func Render(tpl core.Matcher, params map[string]string) string {
	return CollapseSeparators(tpl.Render(params))
}

// CollapseSeparators replaces every run of "/" with a single "/".
func CollapseSeparators(p string) string {
	return repeatedSlash.ReplaceAllString(p, "/")
}

// RenderBlock renders the block's output path and stores it on the block.
// Only the parameters the output template declares are offered to it.
func RenderBlock(b *core.Block, params map[string]string) string {
	op := b.Pattern.OutputPath
	offered := make(map[string]string, len(op.Params))
	for _, name := range op.Params {
		offered[name] = params[name]
	}
	b.OutputPath = Render(op.Template, offered)
	return b.OutputPath
}
