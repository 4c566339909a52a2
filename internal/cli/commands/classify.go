package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/relsplit/internal/classify"
	"github.com/leapstack-labs/relsplit/internal/cli/config"
	"github.com/leapstack-labs/relsplit/internal/cli/output"
	"github.com/leapstack-labs/relsplit/pkg/core"
	"github.com/spf13/cobra"
)

// ClassifyOptions holds options for the classify command.
type ClassifyOptions struct {
	Block string            // Use this pattern's object type map
	Map   map[string]string // Explicit keyword map, overrides config
}

// ClassifyResult is the JSON form of a classification.
type ClassifyResult struct {
	ObjectType  string   `json:"object_type"`
	Review      bool     `json:"review"`
	DangerWords []string `json:"danger_words,omitempty"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	opts := &ClassifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Show the object type bucket for a SQL block",
		Long: `Classify SQL text the way split does and print the folder bucket it would
be written to, together with any danger words found.

The text is read from the file argument or from stdin. The keyword map is
taken from --map, from the object_type_map of the --block pattern, or from
the release-level object_type_map, in that order.`,
		Example: `  echo 'create or replace view s.v as select 1' | relsplit classify
  relsplit classify block.sql --block ddl
  relsplit classify block.sql --map table=tables,view=views`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			var content []byte
			if len(args) > 0 {
				content, err = os.ReadFile(args[0])
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			m, err := classifyMap(cmdCtx.Cfg, opts)
			if err != nil {
				return err
			}
			return runClassify(cmdCtx.Renderer, string(content), m, cmdCtx.Cfg.Release.Options.DangerWords)
		},
	}

	cmd.Flags().StringVarP(&opts.Block, "block", "b", "", "Use the object_type_map of this block pattern")
	cmd.Flags().StringToStringVar(&opts.Map, "map", nil, "Keyword map as keyword=folder pairs")

	return cmd
}

func classifyMap(cfg *config.Config, opts *ClassifyOptions) (core.ObjectTypeMap, error) {
	if len(opts.Map) > 0 {
		return core.ObjectTypeMapFrom(opts.Map), nil
	}
	if opts.Block != "" {
		rules, err := loadRules(cfg)
		if err != nil {
			return nil, err
		}
		p := rules.Lookup(opts.Block)
		if p == nil {
			return nil, fmt.Errorf("block pattern %q not found (available: %v)", opts.Block, rules.Names())
		}
		if p.HasObjectTypeMap() {
			return p.ObjectTypeMap, nil
		}
	}
	return cfg.Release.FallbackObjectTypes(), nil
}

func runClassify(r *output.Renderer, content string, m core.ObjectTypeMap, dangerWords []string) error {
	res := ClassifyResult{
		ObjectType:  classify.Classify(content, m),
		DangerWords: classify.DangerWords(content, dangerWords),
	}
	res.Review = res.ObjectType == core.UnknownObjectType

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSONIndent(res)
	}

	s := r.Styles()
	if res.Review {
		r.Printf("%s  %s\n", s.Warning.Render(res.ObjectType), s.Muted.Render("object type not recognized, manual review required"))
	} else {
		r.Println(s.Success.Render(res.ObjectType))
	}
	for _, w := range res.DangerWords {
		r.Printf("%s  %s\n", s.Warning.Render("danger"), w)
	}
	return nil
}
