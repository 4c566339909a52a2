package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/template"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"gopkg.in/yaml.v3"
)

// rulesDocument is the YAML layout of a rule document.
// The document may also carry release_config; it is read by the CLI loader.
type rulesDocument struct {
	Blocks []blockYAML `yaml:"blocks"`
}

type blockYAML struct {
	Name               string         `yaml:"name"`
	Begin              string         `yaml:"begin"`
	End                string         `yaml:"end"`
	Params             []string       `yaml:"params"`
	OutputPath         outputPathYAML `yaml:"output_path"`
	HeaderTemplatePath string         `yaml:"header_template_path"`
	FooterTemplatePath string         `yaml:"footer_template_path"`
	ObjectTypeMap      yaml.Node      `yaml:"object_type_map"`
	Lowercase          []string       `yaml:"lowercase"`
	SplitObject        *string        `yaml:"split_object"`
}

type outputPathYAML struct {
	Template string   `yaml:"template"`
	Params   []string `yaml:"params"`
}

// LoadRules reads a rule document from path.
// Relative header/footer paths are resolved against the document directory.
func LoadRules(path string, x *Expander) (core.RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, InvalidKey("release_config.options.rules_path", err, "cannot read rule document %s", path)
	}
	return ParseRules(data, path, x)
}

// HasRules reports whether a YAML document declares a non-empty blocks list.
func HasRules(data []byte) bool {
	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	return len(doc.Blocks) > 0
}

// ParseRules parses a rule document. file is used for error positions and to
// resolve relative template paths; it may be empty.
func ParseRules(data []byte, file string, x *Expander) (core.RuleSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, InvalidKey("blocks", err, "invalid YAML in %s", displayName(file))
	}
	if x != nil {
		x.ExpandNode(&root)
	}

	var doc rulesDocument
	if err := root.Decode(&doc); err != nil {
		return nil, InvalidKey("blocks", err, "cannot decode rule document %s", displayName(file))
	}
	if len(doc.Blocks) == 0 {
		return nil, MissingKey("blocks")
	}

	baseDir := ""
	if file != "" {
		baseDir = filepath.Dir(file)
	}

	rules := make(core.RuleSet, 0, len(doc.Blocks))
	seen := make(map[string]bool)
	for i := range doc.Blocks {
		p, err := buildPattern(&doc.Blocks[i], i, file, baseDir)
		if err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, InvalidKey(fmt.Sprintf("blocks[%d].name", i), nil, "duplicate block name %q", p.Name)
		}
		seen[p.Name] = true
		rules = append(rules, p)
	}
	return rules, nil
}

func buildPattern(b *blockYAML, i int, file, baseDir string) (*core.BlockPattern, error) {
	key := func(field string) string { return fmt.Sprintf("blocks[%d].%s", i, field) }

	if strings.TrimSpace(b.Name) == "" {
		return nil, MissingKey(key("name"))
	}
	if b.Begin == "" {
		return nil, MissingKey(key("begin"))
	}
	if b.End == "" {
		return nil, MissingKey(key("end"))
	}
	if b.OutputPath.Template == "" {
		return nil, MissingKey(key("output_path.template"))
	}

	begin, err := template.CompileFile(b.Begin, file)
	if err != nil {
		return nil, InvalidKey(key("begin"), err, "invalid template")
	}
	end, err := template.CompileFile(b.End, file)
	if err != nil {
		return nil, InvalidKey(key("end"), err, "invalid template")
	}
	out, err := template.CompileFile(b.OutputPath.Template, file)
	if err != nil {
		return nil, InvalidKey(key("output_path.template"), err, "invalid template")
	}

	params, err := declaredParams(b.Params, begin.Placeholders())
	if err != nil {
		return nil, InvalidKey(key("params"), err, "does not match begin template %q", b.Begin)
	}
	outParams, err := coveringParams(b.OutputPath.Params, out.Placeholders())
	if err != nil {
		return nil, InvalidKey(key("output_path.params"), err, "does not cover output template %q", b.OutputPath.Template)
	}

	otm, err := objectTypeMap(&b.ObjectTypeMap)
	if err != nil {
		return nil, InvalidKey(key("object_type_map"), err, "expected a mapping of keyword to folder")
	}

	split := DefaultSplitObject
	if b.SplitObject != nil {
		split = *b.SplitObject
	}

	return &core.BlockPattern{
		Name:               b.Name,
		Begin:              begin,
		End:                end,
		Params:             params,
		OutputPath:         core.OutputPath{Template: out, Params: outParams},
		HeaderTemplatePath: resolvePath(b.HeaderTemplatePath, baseDir),
		FooterTemplatePath: resolvePath(b.FooterTemplatePath, baseDir),
		ObjectTypeMap:      otm,
		Lowercase:          b.Lowercase,
		SplitObject:        split,
	}, nil
}

// declaredParams checks the declared capture list against the begin
// template. Both must name the same placeholders, the same number of times.
// An omitted list is derived from the template.
func declaredParams(declared, placeholders []string) ([]string, error) {
	if len(declared) == 0 {
		return placeholders, nil
	}
	if len(declared) != len(placeholders) {
		return nil, fmt.Errorf("declared %d params, template has %d placeholders", len(declared), len(placeholders))
	}
	for _, name := range declared {
		if !slices.Contains(placeholders, name) {
			return nil, fmt.Errorf("param %q has no placeholder", name)
		}
	}
	return declared, nil
}

// coveringParams checks that every placeholder of the output template is
// declared. An omitted list is derived from the template.
func coveringParams(declared, placeholders []string) ([]string, error) {
	if len(declared) == 0 {
		return uniq(placeholders), nil
	}
	var missing []string
	for _, name := range placeholders {
		if !slices.Contains(declared, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("undeclared placeholders: %s", strings.Join(missing, ", "))
	}
	return declared, nil
}

func uniq(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// objectTypeMap converts a YAML mapping node into an ordered map.
func objectTypeMap(n *yaml.Node) (core.ObjectTypeMap, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.New("not a mapping")
	}
	m := make(core.ObjectTypeMap, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: keyword and folder must be scalars", k.Line)
		}
		m = append(m, core.ObjectTypeEntry{Keyword: k.Value, Folder: v.Value})
	}
	return m, nil
}

func resolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func displayName(file string) string {
	if file == "" {
		return "<inline>"
	}
	return file
}
