// Package runner detects source languages and runs their toolchains
package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// ErrUnsupportedLanguage is returned when no command is known for a file
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is a language name as shown to the user and sent in prompts
type Language string

// Languages with test commands
const (
	Python     Language = "Python"
	Java       Language = "Java"
	C          Language = "C"
	CPP        Language = "C++"
	Go         Language = "Go"
	Rust       Language = "Rust"
	JavaScript Language = "JavaScript"
	TypeScript Language = "TypeScript"
)

var languageByExtension = map[string]Language{
	".py":   Python,
	".java": Java,
	".c":    C,
	".cpp":  CPP,
	".go":   Go,
	".rs":   Rust,
	".js":   JavaScript,
	".ts":   TypeScript,
}

// Supported reports whether l has a test command
func (l Language) Supported() bool {
	_, ok := testCommands[l]
	return ok
}

func (l Language) String() string { return string(l) }

// LanguageByExtension maps a file extension to a language. The second return
// value is false for unknown extensions.
func LanguageByExtension(path string) (Language, bool) {
	lang, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// DetectLanguage picks the language for path from its extension, falling back
// to content detection (shebangs, heuristics) when the extension is unknown.
func DetectLanguage(path string, content []byte) (Language, error) {
	if lang, ok := LanguageByExtension(path); ok {
		return lang, nil
	}

	if content == nil {
		sample, err := readSample(path, 8*1024)
		if err != nil {
			return "", err
		}
		content = sample
	}
	if enry.IsBinary(content) {
		return "", fmt.Errorf("%w: %s is binary", ErrUnsupportedLanguage, filepath.Base(path))
	}

	detected := Language(enry.GetLanguage(filepath.Base(path), content))
	if detected.Supported() {
		return detected, nil
	}
	if detected == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Base(path))
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedLanguage, detected, filepath.Base(path))
}

func readSample(path string, maxSize int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, maxSize)
	n, err := f.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return buf[:n], nil
}
