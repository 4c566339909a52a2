// Package writer persists block content to the output tree.
//
// Every write replaces the destination in full: content goes to a temporary
// file in the destination directory which is then renamed over the target,
// so a reader never observes a partially written file.
package writer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/charset"
)

// Default permissions for created files and directories.
const (
	DefaultFileMode os.FileMode = 0o644
	DefaultDirMode  os.FileMode = 0o755
)

// Result describes one written file.
type Result struct {
	Path  string
	Bytes int
	// Review is set by the caller when the output needs manual review.
	Review bool
}

// Writer writes encoded text files.
type Writer struct {
	cs    *charset.Charset
	permF os.FileMode
	permD os.FileMode
}

// Option configures a Writer.
type Option func(*Writer)

// WithFileMode sets the permission bits of written files.
func WithFileMode(m os.FileMode) Option {
	return func(w *Writer) { w.permF = m }
}

// WithDirMode sets the permission bits of created directories.
func WithDirMode(m os.FileMode) Option {
	return func(w *Writer) { w.permD = m }
}

// New creates a Writer encoding output with cs. A nil cs means UTF-8.
func New(cs *charset.Charset, opts ...Option) *Writer {
	if cs == nil {
		cs = charset.UTF8
	}
	w := &Writer{cs: cs, permF: DefaultFileMode, permD: DefaultDirMode}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Charset returns the output charset.
func (w *Writer) Charset() *charset.Charset { return w.cs }

// Write stores content at dest, creating parent directories as needed.
// The stored text always ends in exactly one "\n".
func (w *Writer) Write(ctx context.Context, dest, content string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(dest) == "" {
		return Result{}, fmt.Errorf("write: empty destination path")
	}

	data, err := w.cs.Encode(Normalize(content))
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", dest, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return Result{}, err
	}
	if err := w.writeAtomic(dest, data); err != nil {
		return Result{}, err
	}
	return Result{Path: dest, Bytes: len(data)}, nil
}

func (w *Writer) writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".relsplit-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriter(tmp)
	if _, err := bw.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Normalize trims trailing newlines from text and appends exactly one.
func Normalize(text string) string {
	return strings.TrimRight(text, "\r\n") + "\n"
}

// Compose joins an optional header and footer around content.
// The header is followed by a single newline; the footer is set off from the
// content by one blank line. Empty parts are omitted.
func Compose(header, content, footer string) string {
	var sb strings.Builder
	if h := strings.TrimRight(header, "\r\n"); h != "" {
		sb.WriteString(h)
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.TrimRight(content, "\r\n"))
	if f := strings.Trim(footer, "\r\n"); f != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(f)
	}
	return sb.String()
}
