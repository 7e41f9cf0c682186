package testgen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/extractor"
	"github.com/tildaslashalef/codeboost/internal/llm"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/prompt"
	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

// Executor is the part of the runner the test loop needs
type Executor interface {
	Compile(ctx context.Context, plan runner.Plan) *runner.Result
	Execute(ctx context.Context, command, stdin, dir string) *runner.Result
}

// Service generates and runs test cases
type Service struct {
	llmClient llm.Client
	executor  Executor
	repo      Repository
	count     int
	logger    *loggy.Logger
}

// NewService creates a test service. repo may be nil.
func NewService(llmClient llm.Client, executor Executor, repo Repository, count int, logger *loggy.Logger) *Service {
	if count <= 0 {
		count = 15
	}
	return &Service{
		llmClient: llmClient,
		executor:  executor,
		repo:      repo,
		count:     count,
		logger:    logger,
	}
}

// Generate asks the model for count test cases for the document's code. A
// count of zero uses the configured default.
func (s *Service) Generate(ctx context.Context, doc *document.Document, lang runner.Language, count int) ([]extractor.TestCase, error) {
	if count <= 0 {
		count = s.count
	}

	p, err := prompt.TestCases(lang.String(), doc.Text(), count)
	if err != nil {
		return nil, err
	}

	resp, err := s.llmClient.GenerateText(ctx, llm.GenerateRequest{Prompt: p, Feature: "testcases", JSON: true})
	if err != nil {
		if llm.IsEmpty(err) {
			return nil, extractor.ErrNoTestCases
		}
		s.logger.Error("Test case request failed", "path", doc.Path(), "error", err)
		return nil, fmt.Errorf("requesting test cases: %w", err)
	}

	cases, err := extractor.ParseTestCases(resp.Content)
	if err != nil {
		s.logger.Warn("Unparseable test cases", "path", doc.Path(), "error", err)
		return nil, err
	}

	s.logger.Info("Generated test cases", "path", doc.Path(), "language", lang, "count", len(cases))
	return cases, nil
}

// Run executes path once per case and compares trimmed stdout with the
// expected output. The program is compiled once up front; a failed compile
// fails every case. parallel above 1 runs that many cases at a time, the
// report keeps generation order either way.
func (s *Service) Run(ctx context.Context, path string, lang runner.Language, cases []extractor.TestCase, parallel int) (*Run, error) {
	plan, err := runner.TestPlan(lang, path)
	if err != nil {
		return nil, err
	}

	run := NewRun(path, lang)
	run.Cases = make([]*Case, len(cases))
	for i, tc := range cases {
		run.Cases[i] = &Case{
			ID:       ulid.TestCaseID(),
			RunID:    run.ID,
			Position: i + 1,
			Input:    normalize(tc.Input),
			Expected: normalize(tc.Output),
		}
	}

	compiled := s.executor.Compile(ctx, plan)
	if !compiled.OK() {
		s.logger.Warn("Test target failed to compile", "path", path, "kind", compiled.Kind)
		for _, c := range run.Cases {
			c.Error = compiled.ErrorText()
		}
	} else {
		if parallel < 1 {
			parallel = 1
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallel)
		for _, c := range run.Cases {
			g.Go(func() error {
				s.runCase(gctx, plan, c)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, c := range run.Cases {
		if c.Passed {
			run.Passed++
		} else {
			run.Failed++
		}
	}

	if err := ctx.Err(); err != nil {
		return run, err
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, run); err != nil {
			s.logger.Warn("Failed to record test run", "path", path, "error", err)
		}
	}

	s.logger.Info("Test run finished", "path", path, "passed", run.Passed, "failed", run.Failed)
	return run, nil
}

func (s *Service) runCase(ctx context.Context, plan runner.Plan, c *Case) {
	res := s.executor.Execute(ctx, plan.Run, c.Input, plan.Dir)
	if !res.OK() {
		c.Actual = normalizeOutput(res.Stdout)
		c.Error = res.ErrorText()
		return
	}
	c.Actual = normalizeOutput(res.Stdout)
	c.Passed = c.Actual == c.Expected
}

// ListRuns returns recent runs, newest first
func (s *Service) ListRuns(ctx context.Context, filePath string, limit int) ([]*Run, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListRuns(ctx, filePath, limit)
}
