// Package classify resolves the kind of object a DDL block defines.
package classify

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/relsplit/pkg/core"
)

var (
	orReplacePattern = regexp.MustCompile(`(?i)or\s+replace`)
	separatorPattern = regexp.MustCompile(`[\s_]+`)
)

// Classify returns the folder bucket for the first "create <keyword> "
// statement in content whose keyword is a key of m.
//
// "or replace" is removed first so "create or replace view" reads as
// "create view". Multi-word keys match with any whitespace between the
// words, whether the key spells them with spaces or underscores. When no
// keyword matches, core.UnknownObjectType is returned.
func Classify(content string, m core.ObjectTypeMap) string {
	if len(m) == 0 {
		return core.UnknownObjectType
	}

	re := keywordPattern(m)
	if re == nil {
		return core.UnknownObjectType
	}

	match := re.FindStringSubmatch(orReplacePattern.ReplaceAllString(content, ""))
	if match == nil {
		return core.UnknownObjectType
	}
	if folder, ok := m.Lookup(match[1]); ok {
		return folder
	}
	return core.UnknownObjectType
}

// keywordPattern builds `(?i)create\s+(k1|k2|...)\s` from the map keys.
// Longer keys come first so "external table" wins over "table" when both
// could match at the same position.
func keywordPattern(m core.ObjectTypeMap) *regexp.Regexp {
	alts := make([]string, 0, len(m))
	for _, k := range m.Keywords() {
		words := separatorPattern.Split(strings.TrimSpace(k), -1)
		parts := make([]string, 0, len(words))
		for _, w := range words {
			if w != "" {
				parts = append(parts, regexp.QuoteMeta(w))
			}
		}
		if len(parts) == 0 {
			continue
		}
		alts = append(alts, strings.Join(parts, `\s+`))
	}
	if len(alts) == 0 {
		return nil
	}
	slices.SortStableFunc(alts, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	return regexp.MustCompile(`(?i)create\s+(` + strings.Join(alts, "|") + `)\s`)
}

// Resolve maps a captured object type through m. Unmapped values are
// returned lower-cased and trimmed, so a marker that already names the
// folder still routes somewhere sensible.
func Resolve(raw string, m core.ObjectTypeMap) string {
	if folder, ok := m.Lookup(raw); ok {
		return folder
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
