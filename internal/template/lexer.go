package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText        TokenType = iota // Literal text
	TokenPlaceholder                  // {name}
	TokenEOF                          // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenPlaceholder:
		return "PLACEHOLDER"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer tokenizes a template string.
// "{{" and "}}" are escapes for literal braces.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens.
// Adjacent text is merged, so TEXT tokens never follow each other.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenText && len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenText {
			tokens[len(tokens)-1].Value += tok.Value
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	if l.matchString("{{") || l.matchString("}}") {
		return l.scanEscape(), nil
	}

	if l.matchString("{") {
		return l.scanPlaceholder()
	}

	return l.scanText(), nil
}

// scanEscape turns "{{" or "}}" into a single literal brace.
func (l *Lexer) scanEscape() Token {
	l.markStart()
	brace := l.input[l.pos : l.pos+1]
	l.pos += 2
	l.col += 2
	return Token{Type: TokenText, Value: brace, Pos: l.startPosition()}
}

// scanText scans literal text until a brace or EOF.
func (l *Lexer) scanText() Token {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) {
		if l.matchString("{") || l.matchString("}}") {
			break
		}
		l.advance()
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}
}

// scanPlaceholder scans a {name} placeholder.
func (l *Lexer) scanPlaceholder() (Token, error) {
	l.markStart()

	// Skip {
	l.pos++
	l.col++

	nameStart := l.pos
	for l.pos < len(l.input) {
		r := l.peek()
		if r == '}' {
			name := l.input[nameStart:l.pos]
			l.advance()
			if name == "" {
				return Token{}, NewLexError(l.startPosition(), "empty placeholder name")
			}
			return Token{
				Type:  TokenPlaceholder,
				Value: name,
				Pos:   l.startPosition(),
			}, nil
		}
		if r == '{' || !isNameRune(r) {
			return Token{}, NewLexErrorf(l.position(), "invalid character %q in placeholder name", r)
		}
		l.advance()
	}

	return Token{}, NewLexError(l.startPosition(), "unclosed placeholder: missing '}'")
}

// isNameRune reports whether r may appear in a placeholder name.
func isNameRune(r rune) bool {
	return r == '_' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
