package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/cli/output"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"github.com/spf13/cobra"
)

// PatternInfo is the JSON form of a block pattern.
type PatternInfo struct {
	Name          string            `json:"name"`
	Begin         string            `json:"begin"`
	End           string            `json:"end"`
	Params        []string          `json:"params"`
	OutputPath    string            `json:"output_path"`
	OutputParams  []string          `json:"output_params"`
	Header        string            `json:"header_template_path,omitempty"`
	Footer        string            `json:"footer_template_path,omitempty"`
	ObjectTypeMap map[string]string `json:"object_type_map,omitempty"`
	Lowercase     []string          `json:"lowercase,omitempty"`
	SplitObject   string            `json:"split_object,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rules [pattern]",
		Aliases: []string{"patterns"},
		Short:   "List the configured block patterns",
		Long: `List the block patterns of the rule document in match priority order.

With a pattern name, show that pattern in detail including its object type
map. Use -o json for machine-readable output.`,
		Example: `  # List all patterns
  relsplit rules

  # Show one pattern
  relsplit rules ddl

  # Output as JSON
  relsplit rules -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			rules, err := loadRules(cmdCtx.Cfg)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return showPattern(cmdCtx.Renderer, rules, args[0])
			}
			return listPatterns(cmdCtx.Renderer, rules)
		},
	}
}

func listPatterns(r *output.Renderer, rules core.RuleSet) error {
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]PatternInfo, len(rules))
		for i, p := range rules {
			infos[i] = patternInfo(p)
		}
		return r.JSONIndent(infos)
	}

	rows := make([][]any, 0, len(rules))
	for i, p := range rules {
		types := "-"
		if p.HasObjectTypeMap() {
			types = fmt.Sprintf("%d", len(p.ObjectTypeMap))
		}
		rows = append(rows, []any{i + 1, p.Name, p.Begin.String(), p.End.String(), p.OutputPath.Template.String(), types})
	}
	r.Table([]string{"#", "Name", "Begin", "End", "Output path", "Types"}, rows)
	return nil
}

func showPattern(r *output.Renderer, rules core.RuleSet, name string) error {
	p := rules.Lookup(name)
	if p == nil {
		return fmt.Errorf("block pattern %q not found (available: %s)", name, strings.Join(rules.Names(), ", "))
	}
	info := patternInfo(p)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSONIndent(info)
	}

	s := r.Styles()
	r.Println(s.Header1.Render(info.Name))
	r.Println("")
	field := func(label, value string) {
		if value == "" {
			value = s.Muted.Render("-")
		}
		r.Printf("  %-14s %s\n", s.Bold.Render(label), value)
	}
	field("begin", info.Begin)
	field("end", info.End)
	field("params", strings.Join(info.Params, ", "))
	field("output path", info.OutputPath)
	field("output params", strings.Join(info.OutputParams, ", "))
	field("header", info.Header)
	field("footer", info.Footer)
	field("lowercase", strings.Join(info.Lowercase, ", "))
	field("split object", info.SplitObject)

	if !p.HasObjectTypeMap() {
		r.Println("")
		r.Println(s.Muted.Render("  no object type map, the release-level map applies"))
		return nil
	}
	r.Println("")
	rows := make([][]any, 0, len(p.ObjectTypeMap))
	for _, e := range p.ObjectTypeMap {
		rows = append(rows, []any{e.Keyword, e.Folder})
	}
	r.Table([]string{"Keyword", "Folder"}, rows)
	return nil
}

func patternInfo(p *core.BlockPattern) PatternInfo {
	info := PatternInfo{
		Name:         p.Name,
		Begin:        p.Begin.String(),
		End:          p.End.String(),
		Params:       p.Params,
		OutputPath:   p.OutputPath.Template.String(),
		OutputParams: p.OutputPath.Params,
		Header:       p.HeaderTemplatePath,
		Footer:       p.FooterTemplatePath,
		Lowercase:    p.Lowercase,
		SplitObject:  p.SplitObject,
	}
	if p.HasObjectTypeMap() {
		info.ObjectTypeMap = make(map[string]string, len(p.ObjectTypeMap))
		for _, e := range p.ObjectTypeMap {
			info.ObjectTypeMap[e.Keyword] = e.Folder
		}
	}
	return info
}
