// Package template implements placeholder templates such as "--model {object}".
//
// A template is compiled once into an ordered list of literal and placeholder
// segments. The same compiled template is used in both directions: Match
// extracts placeholder values from a concrete line, Render substitutes values
// back into the template. There are no expressions, conditionals or loops.
package template

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// SegmentKind identifies the type of a compiled segment.
type SegmentKind int

// SegmentKind constants.
const (
	SegmentLiteral     SegmentKind = iota // Literal text matched verbatim
	SegmentPlaceholder                    // {name}
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Segment is one piece of a compiled template.
// For literals Value is the text; for placeholders it is the name.
type Segment struct {
	Kind  SegmentKind
	Value string
	Pos   Position
}
