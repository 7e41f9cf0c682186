// Package assist provides the completion, bug fix and suggestion features
package assist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/extractor"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

// Severity mirrors editor diagnostic severities
type Severity string

const (
	SeverityError       Severity = "Error"
	SeverityWarning     Severity = "Warning"
	SeverityInformation Severity = "Information"
	SeverityHint        Severity = "Hint"
)

// SuggestionStatus tracks what happened to a stored suggestion
type SuggestionStatus string

const (
	// SuggestionStatusOpen is part of the latest analysis of its file
	SuggestionStatusOpen SuggestionStatus = "open"
	// SuggestionStatusApplied was written into the file
	SuggestionStatusApplied SuggestionStatus = "applied"
	// SuggestionStatusSuperseded belongs to an older analysis
	SuggestionStatusSuperseded SuggestionStatus = "superseded"
)

// Position is a 0-based line/character pair
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans two positions
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is an editor-style problem marker for one suggestion
type Diagnostic struct {
	Line     int      `json:"line"` // 1-based
	Range    Range    `json:"range"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source"`
}

// Suggestion is a stored line - type - fix triple
type Suggestion struct {
	ID         string           `json:"id"`
	AnalysisID string           `json:"analysis_id"`
	Line       int              `json:"line,omitempty"` // 1-based, 0 when the model named no line
	IssueType  string           `json:"issue_type"`
	Fix        string           `json:"fix"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	AppliedAt  *time.Time       `json:"applied_at,omitempty"`
}

// NewSuggestion builds an open suggestion from a parsed line
func NewSuggestion(analysisID string, parsed extractor.Suggestion) *Suggestion {
	return &Suggestion{
		ID:         ulid.SuggestionID(),
		AnalysisID: analysisID,
		Line:       parsed.Line,
		IssueType:  parsed.Type,
		Fix:        parsed.Fix,
		Status:     SuggestionStatusOpen,
		CreatedAt:  time.Now(),
	}
}

// HasLine reports whether the suggestion can be applied by line
func (s *Suggestion) HasLine() bool {
	return s.Line > 0
}

// Message is the diagnostic text shown for the suggestion
func (s *Suggestion) Message() string {
	return fmt.Sprintf("CodeBoost: %s: %s", s.IssueType, s.Fix)
}

// Analysis is one suggest-fix pass over a file
type Analysis struct {
	ID          string        `json:"id"`
	FilePath    string        `json:"file_path"`
	ContentHash string        `json:"content_hash"`
	Model       string        `json:"model"`
	RawResponse string        `json:"raw_response,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Suggestions []*Suggestion `json:"suggestions"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// NewAnalysis starts an analysis of the document's current text
func NewAnalysis(doc *document.Document, model string) *Analysis {
	return &Analysis{
		ID:          ulid.AnalysisID(),
		FilePath:    doc.Path(),
		ContentHash: ContentHash(doc.Text()),
		Model:       model,
		CreatedAt:   time.Now(),
	}
}

// ContentHash fingerprints document text
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// BuildDiagnostics turns line-numbered suggestions into diagnostics spanning
// the whole line. Suggestions without a line produce none.
func BuildDiagnostics(doc *document.Document, suggestions []*Suggestion, source string) []Diagnostic {
	lines := doc.Lines()
	diags := make([]Diagnostic, 0, len(suggestions))

	for _, s := range suggestions {
		if !s.HasLine() {
			continue
		}
		idx := s.Line - 1
		end := 0
		if idx < len(lines) {
			end = len([]rune(lines[idx]))
		}
		diags = append(diags, Diagnostic{
			Line: s.Line,
			Range: Range{
				Start: Position{Line: idx, Character: 0},
				End:   Position{Line: idx, Character: end},
			},
			Message:  s.Message(),
			Severity: SeverityInformation,
			Source:   source,
		})
	}

	return diags
}

// ApplyMessage is the applyFix payload sent by the panel or given on the
// command line
type ApplyMessage struct {
	SuggestionID string `json:"suggestion_id,omitempty"`
	Line         *int   `json:"line"`
	Type         string `json:"type,omitempty"`
	Fix          string `json:"fix"`
}

// ApplyMessageFor builds the payload for a stored suggestion
func ApplyMessageFor(s *Suggestion) ApplyMessage {
	msg := ApplyMessage{SuggestionID: s.ID, Type: s.IssueType, Fix: s.Fix}
	if s.HasLine() {
		line := s.Line
		msg.Line = &line
	}
	return msg
}

// FixResult describes a whole-document fix
type FixResult struct {
	Original string `json:"original"`
	Fixed    string `json:"fixed"`
	Changed  bool   `json:"changed"`
	NoIssues bool   `json:"no_issues"` // The model returned nothing
	Model    string `json:"model,omitempty"`
}
