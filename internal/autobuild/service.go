package autobuild

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
)

// Fixer rewrites a document given an error message
type Fixer interface {
	Fix(ctx context.Context, doc *document.Document, errorMessage string) (*assist.FixResult, error)
}

// Executor runs a compile/run plan
type Executor interface {
	RunPlan(ctx context.Context, plan runner.Plan, stdin string) *runner.Result
}

// Service drives the run-and-fix loop
type Service struct {
	fixer       Fixer
	executor    Executor
	repo        Repository
	maxAttempts int
	logger      *loggy.Logger
}

// NewService creates the loop. repo may be nil.
func NewService(fixer Fixer, executor Executor, repo Repository, maxAttempts int, logger *loggy.Logger) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		fixer:       fixer,
		executor:    executor,
		repo:        repo,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// MaxAttempts returns the loop bound
func (s *Service) MaxAttempts() int {
	return s.maxAttempts
}

// WithMaxAttempts returns a copy of the service bounded by n attempts.
// Values below one keep the current bound.
func (s *Service) WithMaxAttempts(n int) *Service {
	c := *s
	if n > 0 {
		c.maxAttempts = n
	}
	return &c
}

// Run saves and runs doc, asking for a fix after every failing run. notify
// may be nil.
func (s *Service) Run(ctx context.Context, doc *document.Document, notify func(Event)) (*Report, error) {
	if notify == nil {
		notify = func(Event) {}
	}

	plan, err := runner.BuildPlan(doc.Path())
	if err != nil {
		notify(Event{Level: LevelError, Message: "Unsupported file type."})
		return nil, err
	}

	report := &Report{FilePath: doc.Path()}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if doc.Dirty() {
			if err := doc.Save(); err != nil {
				return report, fmt.Errorf("saving %s: %w", doc.Path(), err)
			}
		}

		res := s.executor.RunPlan(ctx, plan, "")
		report.Attempts = append(report.Attempts, s.record(ctx, doc.Path(), attempt, res))

		if res.OK() {
			report.Success = true
			report.Message = MessageSuccess
			notify(Event{Level: LevelInfo, Attempt: attempt, Max: s.maxAttempts, Message: MessageSuccess, Result: res})
			return report, nil
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		notify(Event{
			Level:   LevelWarning,
			Attempt: attempt,
			Max:     s.maxAttempts,
			Message: fmt.Sprintf("Errors found. Attempting fix... (%d/%d)", attempt, s.maxAttempts),
			Result:  res,
		})

		fix, err := s.fixer.Fix(ctx, doc, res.ErrorText())
		if err != nil {
			return report, fmt.Errorf("fixing attempt %d: %w", attempt, err)
		}
		if !fix.Changed {
			s.logger.Debug("Fix left the file unchanged", "path", doc.Path(), "attempt", attempt)
		}
	}

	// Keep the last fix on disk even though it was never run
	if doc.Dirty() {
		if err := doc.Save(); err != nil {
			return report, fmt.Errorf("saving %s: %w", doc.Path(), err)
		}
	}

	report.Message = MessageMaxReached
	notify(Event{Level: LevelError, Attempt: s.maxAttempts, Max: s.maxAttempts, Message: MessageMaxReached})
	return report, nil
}

func (s *Service) record(ctx context.Context, path string, n int, res *runner.Result) *Attempt {
	attempt := NewAttempt(path, n, res)
	s.logger.Info("Build attempt finished",
		"path", path,
		"attempt", n,
		"kind", res.Kind,
		"exit_code", res.ExitCode)

	if s.repo != nil {
		if err := s.repo.SaveAttempt(ctx, attempt); err != nil {
			s.logger.Warn("Failed to record build attempt", "path", path, "attempt", n, "error", err)
		}
	}
	return attempt
}

// ListAttempts returns recent attempts, newest first
func (s *Service) ListAttempts(ctx context.Context, filePath string, limit int) ([]*Attempt, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListAttempts(ctx, filePath, limit)
}
