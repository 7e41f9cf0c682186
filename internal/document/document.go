// Package document holds the text of a source file being assisted
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrLineOutOfRange is returned when a 1-based line number falls outside the document
var ErrLineOutOfRange = errors.New("line out of range")

// Document is a file's text kept in memory until Save
type Document struct {
	path  string
	text  string
	mode  os.FileMode
	dirty bool
}

// Load reads path into a new document
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return &Document{path: abs, text: string(data), mode: info.Mode().Perm()}, nil
}

// New creates an unsaved document for path holding text
func New(path, text string) *Document {
	return &Document{path: path, text: text, mode: 0o644, dirty: true}
}

// Path returns the absolute file path
func (d *Document) Path() string { return d.path }

// Text returns the full document text
func (d *Document) Text() string { return d.text }

// Dirty reports whether the text changed since it was loaded or saved
func (d *Document) Dirty() bool { return d.dirty }

// Extension returns the file extension including the dot
func (d *Document) Extension() string { return filepath.Ext(d.path) }

// Lines splits the text on newlines. A trailing newline does not produce an
// extra empty line.
func (d *Document) Lines() []string {
	if d.text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(d.text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineCount returns the number of lines
func (d *Document) LineCount() int {
	return len(d.Lines())
}

// Line returns the 1-based line n
func (d *Document) Line(n int) (string, error) {
	lines := d.Lines()
	if n < 1 || n > len(lines) {
		return "", fmt.Errorf("%w: %d (document has %d lines)", ErrLineOutOfRange, n, len(lines))
	}
	return lines[n-1], nil
}

// ContextBefore returns up to count lines preceding the 0-based line,
// each terminated by a newline
func (d *Document) ContextBefore(line, count int) string {
	lines := d.Lines()
	if line > len(lines) {
		line = len(lines)
	}
	start := line - count
	if start < 0 {
		start = 0
	}
	if line <= start {
		return ""
	}

	var b strings.Builder
	for _, l := range lines[start:line] {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// PrefixAt returns the 0-based line's text up to the 0-based column.
// Columns count characters, not bytes.
func (d *Document) PrefixAt(line, col int) string {
	lines := d.Lines()
	if line < 0 || line >= len(lines) {
		return ""
	}
	return prefixRunes(lines[line], col)
}

// InsertAt inserts text at the 0-based line and column. A column past the end
// of the line appends to it.
func (d *Document) InsertAt(line, col int, text string) error {
	start, end, ok := d.lineBounds(line)
	if !ok {
		return fmt.Errorf("%w: %d (document has %d lines)", ErrLineOutOfRange, line+1, d.LineCount())
	}

	pos := start + len(prefixRunes(d.text[start:end], col))
	d.ReplaceAll(d.text[:pos] + text + d.text[pos:])
	return nil
}

// ReplaceLine replaces the 1-based line n with text. The line's terminator
// and every other line are left as they were.
func (d *Document) ReplaceLine(n int, text string) error {
	start, end, ok := d.lineBounds(n - 1)
	if !ok {
		return fmt.Errorf("%w: %d (document has %d lines)", ErrLineOutOfRange, n, d.LineCount())
	}
	d.ReplaceAll(d.text[:start] + text + d.text[end:])
	return nil
}

// ReplaceAll swaps the whole text
func (d *Document) ReplaceAll(text string) {
	if text == d.text {
		return
	}
	d.text = text
	d.dirty = true
}

// Save writes the text back through a temp file and rename, keeping the
// original permissions
func (d *Document) Save() error {
	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(d.text); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, d.mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("replacing %s: %w", d.path, err)
	}

	d.dirty = false
	return nil
}

// Diff returns a unified diff from the current text to newText, empty when
// they match
func (d *Document) Diff(newText string) (string, error) {
	if newText == d.text {
		return "", nil
	}
	name := filepath.Base(d.path)
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(d.text),
		B:        difflib.SplitLines(newText),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", name, err)
	}
	return out, nil
}

// lineBounds returns the byte range of the 0-based line without its "\n" or
// "\r\n" terminator
func (d *Document) lineBounds(line int) (start, end int, ok bool) {
	if line < 0 {
		return 0, 0, false
	}
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(d.text[start:], '\n')
		if nl < 0 {
			return 0, 0, false
		}
		start += nl + 1
	}
	if start >= len(d.text) {
		return 0, 0, false
	}

	end = len(d.text)
	if nl := strings.IndexByte(d.text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	if end > start && d.text[end-1] == '\r' {
		end--
	}
	return start, end, true
}

func prefixRunes(s string, col int) string {
	if col <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= col {
		return s
	}
	i := 0
	for pos := range s {
		if i == col {
			return s[:pos]
		}
		i++
	}
	return s
}
