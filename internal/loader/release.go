// Package loader reads release files and header/footer templates from disk.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/charset"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

// LoadDocument reads a release file in the given charset and splits it into
// lines. Line terminators ("\n" or "\r\n") are not part of the lines, and a
// final terminator does not produce an empty trailing line.
func LoadDocument(path string, cs *charset.Charset) (*core.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // release path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read release: %w", err)
	}
	text, err := cs.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read release %s: %w", path, err)
	}
	return &core.Document{Path: path, Lines: SplitLines(text)}, nil
}

// SplitLines splits text into lines without terminators.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LoadTemplate reads a header or footer template.
// An empty path or a missing file yields an empty template.
func LoadTemplate(path string, cs *charset.Charset) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // template path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return cs.Decode(data)
}

// Input is one release file resolved from the configured inputs.
// Err is set when the configured path could not be resolved.
type Input struct {
	Path string
	Err  error
}

// ExpandInputs resolves configured input paths. A directory contributes its
// regular, non-hidden files in name order; a file contributes itself.
func ExpandInputs(paths []string) []Input {
	var out []Input
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			out = append(out, Input{Path: p, Err: err})
			continue
		}
		if !info.IsDir() {
			out = append(out, Input{Path: p})
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			out = append(out, Input{Path: p, Err: err})
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			out = append(out, Input{Path: filepath.Join(p, e.Name())})
		}
	}
	return out
}
