package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/extractor"
	"github.com/tildaslashalef/codeboost/internal/llm"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/prompt"
)

// ErrNoLine is returned when a suggestion names no line to replace
var ErrNoLine = errors.New("suggestion has no line number")

// Service runs the model-backed editing features
type Service struct {
	repo      Repository
	llmClient llm.Client
	config    config.AssistConfig
	logger    *loggy.Logger
}

// NewService creates a new assist service. repo may be nil, in which case
// analyses are not persisted.
func NewService(repo Repository, llmClient llm.Client, cfg *config.Config, logger *loggy.Logger) *Service {
	return &Service{
		repo:      repo,
		llmClient: llmClient,
		config:    cfg.Assist,
		logger:    logger,
	}
}

// Complete returns the text to insert at the 0-based line and column. An
// empty cursor prefix yields no completion without calling the model.
func (s *Service) Complete(ctx context.Context, doc *document.Document, line, col int) (string, error) {
	prefix := doc.PrefixAt(line, col)
	if strings.TrimSpace(prefix) == "" {
		return "", nil
	}

	p, err := prompt.Completion(doc.ContextBefore(line, s.config.ContextLines), prefix)
	if err != nil {
		return "", err
	}

	resp, err := s.llmClient.GenerateText(ctx, llm.GenerateRequest{Prompt: p, Feature: "completion"})
	if err != nil {
		if llm.IsEmpty(err) {
			return "", nil
		}
		s.logger.Error("Completion request failed", "path", doc.Path(), "error", err)
		return "", fmt.Errorf("requesting completion: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}

// Fix asks the model for a corrected version of the whole document and
// swaps it in. errorMessage may be empty. The document is not saved.
func (s *Service) Fix(ctx context.Context, doc *document.Document, errorMessage string) (*FixResult, error) {
	original := doc.Text()
	result := &FixResult{Original: original, Fixed: original, Model: s.llmClient.Model()}

	p, err := prompt.BugFix(original, errorMessage)
	if err != nil {
		return nil, err
	}

	resp, err := s.llmClient.GenerateText(ctx, llm.GenerateRequest{Prompt: p, Feature: "bugfix"})
	if err != nil {
		if llm.IsEmpty(err) {
			result.NoIssues = true
			return result, nil
		}
		s.logger.Error("Bug fix request failed", "path", doc.Path(), "error", err)
		return nil, fmt.Errorf("requesting bug fix: %w", err)
	}

	fixed := extractor.StripCodeFence(resp.Content)
	if strings.TrimSpace(fixed) == "" {
		result.NoIssues = true
		return result, nil
	}
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(fixed, "\n") {
		fixed += "\n"
	}

	doc.ReplaceAll(fixed)
	result.Fixed = fixed
	result.Changed = fixed != original

	s.logger.Info("Applied bug fix", "path", doc.Path(), "changed", result.Changed)
	return result, nil
}

// Suggest analyses doc and persists the result as the file's active
// suggestions
func (s *Service) Suggest(ctx context.Context, doc *document.Document) (*Analysis, error) {
	analysis, err := s.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Analyze asks the model for line-level problems and returns the analysis
// with its diagnostics. Nothing is stored.
func (s *Service) Analyze(ctx context.Context, doc *document.Document) (*Analysis, error) {
	p, err := prompt.SuggestFix(doc.Text())
	if err != nil {
		return nil, err
	}

	analysis := NewAnalysis(doc, s.llmClient.Model())

	resp, err := s.llmClient.GenerateText(ctx, llm.GenerateRequest{Prompt: p, Feature: "suggest"})
	switch {
	case err == nil:
		analysis.RawResponse = resp.Content
		if resp.Model != "" {
			analysis.Model = resp.Model
		}
		for _, parsed := range extractor.ParseSuggestions(resp.Content) {
			analysis.Suggestions = append(analysis.Suggestions, NewSuggestion(analysis.ID, parsed))
		}
	case llm.IsEmpty(err):
	default:
		s.logger.Error("Suggestion request failed", "path", doc.Path(), "error", err)
		return nil, fmt.Errorf("requesting suggestions: %w", err)
	}

	analysis.Diagnostics = BuildDiagnostics(doc, analysis.Suggestions, s.config.DiagnosticSource)

	s.logger.Info("Analysed file",
		"path", doc.Path(),
		"analysis_id", analysis.ID,
		"suggestions", len(analysis.Suggestions),
		"diagnostics", len(analysis.Diagnostics))

	return analysis, nil
}

// Save stores the analysis, superseding the file's previous suggestions
func (s *Service) Save(ctx context.Context, analysis *Analysis) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// Apply replaces the suggestion's line with its fix. The document is not saved.
func (s *Service) Apply(ctx context.Context, doc *document.Document, suggestion *Suggestion) error {
	if !suggestion.HasLine() {
		return ErrNoLine
	}
	if err := doc.ReplaceLine(suggestion.Line, suggestion.Fix); err != nil {
		return err
	}

	if s.repo != nil && suggestion.ID != "" {
		now := time.Now()
		if err := s.repo.MarkApplied(ctx, suggestion.ID, now); err != nil {
			if !errors.Is(err, ErrSuggestionNotFound) {
				return fmt.Errorf("marking suggestion applied: %w", err)
			}
			s.logger.Warn("Applied suggestion is not stored", "id", suggestion.ID)
		} else {
			suggestion.Status = SuggestionStatusApplied
			suggestion.AppliedAt = &now
		}
	}

	s.logger.Info("Applied fix", "path", doc.Path(), "line", suggestion.Line)
	return nil
}

// ApplyMessage applies an applyFix payload
func (s *Service) ApplyMessage(ctx context.Context, doc *document.Document, msg ApplyMessage) (*Suggestion, error) {
	if msg.Line == nil {
		return nil, ErrNoLine
	}
	suggestion := &Suggestion{ID: msg.SuggestionID, Line: *msg.Line, IssueType: msg.Type, Fix: msg.Fix}
	if err := s.Apply(ctx, doc, suggestion); err != nil {
		return nil, err
	}
	return suggestion, nil
}

// LatestSuggestions returns the suggestions of the file's newest analysis
// in the order they were listed, applied ones included. A file that was never
// analysed has none.
func (s *Service) LatestSuggestions(ctx context.Context, filePath string) ([]*Suggestion, error) {
	if s.repo == nil {
		return nil, nil
	}
	analysis, err := s.repo.LatestAnalysis(ctx, filePath)
	if err != nil {
		if errors.Is(err, ErrAnalysisNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return analysis.Suggestions, nil
}

// SuggestionAt returns the 1-based index-th suggestion of the file's newest
// analysis. Positions match the listing printed by suggest, so applying one
// suggestion does not shift the others. Suggestions that are no longer open
// are refused.
func (s *Service) SuggestionAt(ctx context.Context, filePath string, index int) (*Suggestion, error) {
	latest, err := s.LatestSuggestions(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(latest) {
		return nil, fmt.Errorf("%w: index %d of %d suggestions in the last analysis", ErrSuggestionNotFound, index, len(latest))
	}
	suggestion := latest[index-1]
	if suggestion.Status != SuggestionStatusOpen {
		return nil, fmt.Errorf("%w: suggestion %d is %s", ErrSuggestionNotOpen, index, suggestion.Status)
	}
	return suggestion, nil
}

// ListAnalyses returns recent analyses, newest first
func (s *Service) ListAnalyses(ctx context.Context, filePath string, limit int) ([]*Analysis, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListAnalyses(ctx, filePath, limit)
}
