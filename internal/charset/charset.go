// Package charset resolves character encodings by name and converts between
// them and UTF-8.
package charset

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset is a resolved character encoding.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the default charset.
var UTF8 = &Charset{name: "utf-8", enc: unicode.UTF8}

// Lookup resolves a charset by its WHATWG or IANA name, e.g. "utf-8",
// "windows-1251", "cp1251" or "koi8-r". An empty name means UTF-8.
func Lookup(name string) (*Charset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "utf-8" || n == "utf8" {
		return UTF8, nil
	}
	if enc, err := htmlindex.Get(n); err == nil {
		return &Charset{name: n, enc: enc}, nil
	}
	enc, err := ianaindex.IANA.Encoding(n)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return &Charset{name: n, enc: enc}, nil
}

// Name returns the normalized name the charset was looked up with.
func (c *Charset) Name() string { return c.name }

// IsUTF8 reports whether no conversion is needed.
func (c *Charset) IsUTF8() bool { return c == UTF8 }

// Decode converts data in this charset to a UTF-8 string.
// A leading UTF-8 byte order mark is dropped. For UTF-8, invalid byte
// sequences are an error.
func (c *Charset) Decode(data []byte) (string, error) {
	if c.IsUTF8() {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decode %s: invalid byte sequence at offset %d", c.name, invalidOffset(data))
		}
		return strings.TrimPrefix(string(data), "\uFEFF"), nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), c.enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.name, err)
	}
	return string(out), nil
}

// Encode converts a UTF-8 string to this charset. Characters the charset
// cannot represent are an error rather than being silently replaced.
func (c *Charset) Encode(s string) ([]byte, error) {
	if c.IsUTF8() {
		return []byte(s), nil
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	return out, nil
}

func invalidOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}
