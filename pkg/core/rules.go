package core

// RuleSet is the ordered list of block patterns for one run.
// Order is match priority: the first pattern whose begin template matches wins.
type RuleSet []*BlockPattern

// Lookup returns the pattern with the given name, or nil.
func (rs RuleSet) Lookup(name string) *BlockPattern {
	for _, p := range rs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Names returns the pattern names in priority order.
func (rs RuleSet) Names() []string {
	names := make([]string, len(rs))
	for i, p := range rs {
		names[i] = p.Name
	}
	return names
}

// Matcher is a compiled placeholder template.
// It is implemented by *template.Template; core only depends on the behavior.
type Matcher interface {
	// Match reports whether the line matches and returns the named captures.
	Match(line string) (bool, map[string]string)
	// Render substitutes params into the template. Missing names render empty.
	Render(params map[string]string) string
	// Placeholders returns the placeholder names in template order.
	Placeholders() []string
	// String returns the template source.
	String() string
}

// OutputPath describes where a block is written.
type OutputPath struct {
	// Template is the path template, e.g. "{base}/{schema}/{object_name}.sql"
	Template Matcher
	// Params are the parameter names the template consumes, in order.
	Params []string
}

// BlockPattern describes one kind of block in a release.
type BlockPattern struct {
	// Name identifies the block type in diagnostics (e.g. "model", "ddl").
	Name string
	// Begin matches the opening marker line and captures Params.
	Begin Matcher
	// End matches the closing marker line.
	End Matcher
	// Params are the capture names declared for Begin, in order.
	Params []string
	// OutputPath is the destination template.
	OutputPath OutputPath
	// HeaderTemplatePath is an optional file prepended to the content.
	HeaderTemplatePath string
	// FooterTemplatePath is an optional file appended to the content.
	FooterTemplatePath string
	// ObjectTypeMap maps DDL keywords to folder buckets. May be empty.
	ObjectTypeMap ObjectTypeMap
	// Lowercase lists capture names folded to lower case after matching.
	Lowercase []string
	// SplitObject is the capture split on its first "." into schema and object_name.
	SplitObject string
}

// HasObjectTypeMap reports whether the pattern carries its own keyword map.
func (p *BlockPattern) HasObjectTypeMap() bool {
	return len(p.ObjectTypeMap) > 0
}

// Block is one extracted span of the release.
// Blocks are transient: created by the extractor and discarded once written.
type Block struct {
	Pattern *BlockPattern
	// Params holds the captured values; every declared param is present.
	Params map[string]string
	// Content is the buffered lines joined with "\n" and trimmed.
	Content string
	// OutputPath is empty until the block is rendered.
	OutputPath string
	// BeginLine is the 0-based index of the begin marker.
	BeginLine int
	// EndLine is the 0-based index of the end marker, or the last line of
	// the document when the block is unterminated.
	EndLine int
	// Terminated is false when the document ended inside the block.
	Terminated bool
	// Seq is the 1-based position of the block within its document.
	Seq int
}

// Document is a release file loaded as an ordered, read-only sequence of lines.
type Document struct {
	Path  string
	Lines []string
}

// Len returns the number of lines.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Lines)
}
