package commands

import (
	"errors"

	"github.com/leapstack-labs/relsplit/internal/cli/output"
	"github.com/leapstack-labs/relsplit/internal/template"
	"github.com/spf13/cobra"
)

// errNoMatch is returned when the line does not match the template.
var errNoMatch = errors.New("line does not match template")

// MatchResult is the JSON form of a match.
type MatchResult struct {
	Template string            `json:"template"`
	Line     string            `json:"line"`
	Matched  bool              `json:"matched"`
	Captures map[string]string `json:"captures,omitempty"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "match <template> <line>",
		Short: "Test a marker template against a line",
		Long: `Match a line against a placeholder template and print the captured values.

Placeholders are written {name}; {{ and }} stand for literal braces. The
command exits non-zero when the line does not match, so it can be used to
check begin/end markers while writing a rule document.`,
		Example: `  relsplit match '--model {object}' '--model mis.v_patients'
  relsplit match '--[{type}] {object}' '--[view] dbo.v1' -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return runMatch(cmdCtx.Renderer, args[0], args[1])
		},
	}
}

func runMatch(r *output.Renderer, src, line string) error {
	tpl, err := template.Compile(src)
	if err != nil {
		return err
	}
	ok, captures := tpl.Match(line)

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSONIndent(MatchResult{Template: src, Line: line, Matched: ok, Captures: captures}); err != nil {
			return err
		}
	} else if ok {
		s := r.Styles()
		r.Println(s.Success.Render("match"))
		for _, name := range tpl.Placeholders() {
			r.Printf("  %s = %q\n", s.Bold.Render(name), captures[name])
		}
	}

	if !ok {
		return errNoMatch
	}
	return nil
}
