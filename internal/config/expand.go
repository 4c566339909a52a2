package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// referencePattern matches ${name} and ${dotted.path} references.
var referencePattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_.]+)\}`)

// Expander resolves ${...} references against a context tree, then against
// extra environment values, then the process environment.
// Unresolved references are kept verbatim.
type Expander struct {
	Context map[string]any
	Env     map[string]string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Expand replaces all resolvable references in s.
func (x *Expander) Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return referencePattern.ReplaceAllStringFunc(s, func(match string) string {
		ref := match[2 : len(match)-1]
		if v, ok := x.lookup(ref); ok {
			return v
		}
		return match
	})
}

func (x *Expander) lookup(ref string) (string, bool) {
	if v, ok := lookupPath(x.Context, strings.Split(ref, ".")); ok {
		return v, true
	}
	if v, ok := x.Env[ref]; ok {
		return v, true
	}
	lookupEnv := x.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return lookupEnv(ref)
}

// lookupPath walks nested maps. Only scalar leaves resolve.
func lookupPath(tree map[string]any, keys []string) (string, bool) {
	var cur any = tree
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return "", false
		}
	}
	switch v := cur.(type) {
	case map[string]any, []any:
		return "", false
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}

// ExpandNode expands references in every scalar value of a YAML node tree,
// in place. Mapping keys are left alone.
func (x *Expander) ExpandNode(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.ScalarNode:
		n.Value = x.Expand(n.Value)
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			x.ExpandNode(n.Content[i])
		}
	default:
		for _, c := range n.Content {
			x.ExpandNode(c)
		}
	}
}
