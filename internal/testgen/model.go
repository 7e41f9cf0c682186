// Package testgen asks the model for input/output test cases and runs a
// program against them
package testgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

// FailureHint is appended to the summary when any case fails
const FailureHint = "⚠ Some tests failed. Ensure your program does not print any input() statements."

// Case is one executed test case
type Case struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	Position int    `json:"position"` // 1-based order in the generated list
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// Run is one execution of a generated test set
type Run struct {
	ID        string          `json:"id"`
	FilePath  string          `json:"file_path"`
	Language  runner.Language `json:"language"`
	Passed    int             `json:"passed"`
	Failed    int             `json:"failed"`
	CreatedAt time.Time       `json:"created_at"`
	Cases     []*Case         `json:"cases,omitempty"`
}

// NewRun starts a run for path
func NewRun(path string, lang runner.Language) *Run {
	return &Run{
		ID:        ulid.TestRunID(),
		FilePath:  path,
		Language:  lang,
		CreatedAt: time.Now(),
	}
}

// Total is the number of executed cases
func (r *Run) Total() int {
	return r.Passed + r.Failed
}

// Summary renders the pass/fail lines shown after a run
func (r *Run) Summary() []string {
	lines := []string{
		fmt.Sprintf("✅ %d/%d test cases passed.", r.Passed, r.Total()),
		fmt.Sprintf("❌ %d/%d test cases failed.", r.Failed, r.Total()),
	}
	if r.Failed > 0 {
		lines = append(lines, FailureHint)
	}
	return lines
}

// normalize turns literal \n sequences into newlines and trims
func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
}

// normalizeOutput trims program output and unifies line endings
func normalizeOutput(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", "\n")
}
