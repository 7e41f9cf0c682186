package extractor

import "fmt"

// Suggestion is one "line - type - fix" entry parsed from a model reply.
// Line is 1-based; 0 means the entry named no line.
type Suggestion struct {
	Line int    `json:"line,omitempty"`
	Type string `json:"type"`
	Fix  string `json:"fix"`
}

// HasLine reports whether the suggestion points at a specific line
func (s Suggestion) HasLine() bool {
	return s.Line > 0
}

func (s Suggestion) String() string {
	if s.HasLine() {
		return fmt.Sprintf("%d - %s - %s", s.Line, s.Type, s.Fix)
	}
	return fmt.Sprintf("%s - %s", s.Type, s.Fix)
}

// TestCase is one generated input/expected-output pair
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}
