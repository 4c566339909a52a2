package core

import (
	"slices"
	"strings"
)

// UnknownObjectType is the bucket for objects whose kind cannot be resolved.
const UnknownObjectType = "unknown"

// ObjectTypeEntry maps one DDL keyword to a folder bucket.
type ObjectTypeEntry struct {
	// Keyword is the raw key, e.g. "table", "external table" or "materialized_view".
	Keyword string
	// Folder is the destination bucket, e.g. "tables".
	Folder string
}

// ObjectTypeMap is an ordered keyword to folder mapping.
// Lookups ignore case and treat spaces and underscores as the same separator.
type ObjectTypeMap []ObjectTypeEntry

// CanonicalKeyword lower-cases k and collapses separator runs to "_".
func CanonicalKeyword(k string) string {
	fields := strings.FieldsFunc(strings.ToLower(k), func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.Join(fields, "_")
}

// Lookup resolves a keyword to its folder.
func (m ObjectTypeMap) Lookup(keyword string) (string, bool) {
	want := CanonicalKeyword(keyword)
	if want == "" {
		return "", false
	}
	for _, e := range m {
		if CanonicalKeyword(e.Keyword) == want {
			return e.Folder, true
		}
	}
	return "", false
}

// Keywords returns the raw keys in map order.
func (m ObjectTypeMap) Keywords() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Keyword
	}
	return keys
}

// ObjectTypeMapFrom builds a map from plain key/value pairs, sorted by key
// so the result is deterministic.
func ObjectTypeMapFrom(m map[string]string) ObjectTypeMap {
	out := make(ObjectTypeMap, 0, len(m))
	for k, v := range m {
		out = append(out, ObjectTypeEntry{Keyword: k, Folder: v})
	}
	slices.SortFunc(out, func(a, b ObjectTypeEntry) int {
		return strings.Compare(a.Keyword, b.Keyword)
	})
	return out
}
