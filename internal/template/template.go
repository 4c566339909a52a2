package template

import (
	"strings"
)

// Template is a compiled placeholder template.
//
// The segments always alternate literal, placeholder, literal, ... and both
// ends are literals (possibly empty), so a template with k placeholders has
// k+1 literals.
type Template struct {
	src      string
	literals []string
	names    []string
	segments []Segment
}

// Compile parses src into a Template.
func Compile(src string) (*Template, error) {
	return CompileFile(src, "")
}

// CompileFile parses src, attributing errors to file.
func CompileFile(src, file string) (*Template, error) {
	tokens, err := NewLexer(src, file).Tokenize()
	if err != nil {
		return nil, err
	}

	t := &Template{src: src}
	pending := ""
	for _, tok := range tokens {
		switch tok.Type {
		case TokenText:
			pending += tok.Value
			t.segments = append(t.segments, Segment{Kind: SegmentLiteral, Value: tok.Value, Pos: tok.Pos})
		case TokenPlaceholder:
			t.literals = append(t.literals, pending)
			pending = ""
			t.names = append(t.names, tok.Value)
			t.segments = append(t.segments, Segment{Kind: SegmentPlaceholder, Value: tok.Value, Pos: tok.Pos})
		}
	}
	t.literals = append(t.literals, pending)

	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Template {
	t, err := Compile(src)
	if err != nil {
		panic("template: Compile(" + src + "): " + err.Error())
	}
	return t
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Placeholders returns the placeholder names in template order.
// A name used twice appears twice.
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Segments returns the compiled segments.
func (t *Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Match extracts placeholder values from line.
//
// Literals are searched left to right from a cursor starting at 0; each
// literal is taken at its first occurrence at or after the cursor. A
// placeholder value is the text between the preceding literal and the next
// one, or the rest of the line for a trailing placeholder. Values are
// whitespace-trimmed. If a literal cannot be found the line does not match.
//
// A template without placeholders matches any line containing it and returns
// an empty, non-nil map.
//
// A value that itself contains the following literal is split at that first
// occurrence; callers that need such values must pick delimiters that cannot
// appear in them.
func (t *Template) Match(line string) (bool, map[string]string) {
	captures := make(map[string]string, len(t.names))

	idx := strings.Index(line, t.literals[0])
	if idx < 0 {
		return false, nil
	}
	cursor := idx + len(t.literals[0])

	for i, name := range t.names {
		next := t.literals[i+1]
		last := i == len(t.names)-1

		if last && next == "" {
			captures[name] = strings.TrimSpace(line[cursor:])
			cursor = len(line)
			continue
		}

		idx := strings.Index(line[cursor:], next)
		if idx < 0 {
			return false, nil
		}
		captures[name] = strings.TrimSpace(line[cursor : cursor+idx])
		cursor += idx + len(next)
	}

	return true, captures
}

// Render substitutes params into the template.
// Missing names render as the empty string, so Render never fails.
func (t *Template) Render(params map[string]string) string {
	var sb strings.Builder
	sb.WriteString(t.literals[0])
	for i, name := range t.names {
		sb.WriteString(params[name])
		sb.WriteString(t.literals[i+1])
	}
	return sb.String()
}
