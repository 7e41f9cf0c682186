package testgen

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/extractor"
	"github.com/tildaslashalef/codeboost/internal/llm"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) GenerateText(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*llm.GenerateResponse)
	return resp, args.Error(1)
}

func (m *mockLLM) Model() string { return "gemini-test" }

// doublingExecutor behaves like a program that prints twice its integer input
type doublingExecutor struct {
	compile  *runner.Result
	delay    time.Duration
	mu       sync.Mutex
	commands []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (e *doublingExecutor) Compile(_ context.Context, plan runner.Plan) *runner.Result {
	if e.compile != nil {
		return e.compile
	}
	return &runner.Result{Command: plan.Compile, Kind: runner.KindOK}
}

func (e *doublingExecutor) Execute(_ context.Context, command, stdin, _ string) *runner.Result {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}

	e.mu.Lock()
	e.commands = append(e.commands, command)
	e.mu.Unlock()

	time.Sleep(e.delay)

	v, err := strconv.Atoi(strings.TrimSpace(stdin))
	if err != nil {
		return &runner.Result{Command: command, Stderr: "ValueError: invalid literal\r\n", ExitCode: 1, Kind: runner.KindRuntimeError}
	}
	return &runner.Result{Command: command, Stdout: strconv.Itoa(v*2) + "\r\n", Kind: runner.KindOK}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	doc := document.New("/w/double.py", "print(int(input()) * 2)\n")

	t.Run("parses the fenced array", func(t *testing.T) {
		client := &mockLLM{}
		client.On("GenerateText", ctx, mock.MatchedBy(func(req llm.GenerateRequest) bool {
			return req.Feature == "testcases" && req.JSON &&
				strings.Contains(req.Prompt, "Analyze the following Python code and generate 15 diverse test cases.")
		})).Return(&llm.GenerateResponse{Content: "```json\n[{\"input\": \"2\", \"output\": \"4\"}]\n```"}, nil)

		svc := NewService(client, &doublingExecutor{}, nil, 15, loggy.NewNoopLogger())
		cases, err := svc.Generate(ctx, doc, runner.Python, 0)
		require.NoError(t, err)
		assert.Equal(t, []extractor.TestCase{{Input: "2", Output: "4"}}, cases)
	})

	t.Run("explicit count", func(t *testing.T) {
		client := &mockLLM{}
		client.On("GenerateText", ctx, mock.MatchedBy(func(req llm.GenerateRequest) bool {
			return strings.Contains(req.Prompt, "generate 3 diverse test cases")
		})).Return(&llm.GenerateResponse{Content: "[]"}, nil)

		svc := NewService(client, &doublingExecutor{}, nil, 15, loggy.NewNoopLogger())
		cases, err := svc.Generate(ctx, doc, runner.Python, 3)
		require.NoError(t, err)
		assert.Empty(t, cases)
	})

	t.Run("bad json", func(t *testing.T) {
		client := &mockLLM{}
		client.On("GenerateText", ctx, mock.Anything).Return(&llm.GenerateResponse{Content: "sorry"}, nil)

		svc := NewService(client, &doublingExecutor{}, nil, 15, loggy.NewNoopLogger())
		_, err := svc.Generate(ctx, doc, runner.Python, 0)
		assert.ErrorIs(t, err, extractor.ErrNoTestCases)
	})

	t.Run("empty reply", func(t *testing.T) {
		client := &mockLLM{}
		client.On("GenerateText", ctx, mock.Anything).Return(nil, llm.ErrEmptyResponse)

		svc := NewService(client, &doublingExecutor{}, nil, 15, loggy.NewNoopLogger())
		_, err := svc.Generate(ctx, doc, runner.Python, 0)
		assert.ErrorIs(t, err, extractor.ErrNoTestCases)
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cases := []extractor.TestCase{
		{Input: "2", Output: "4"},
		{Input: " 5 ", Output: "10\n"},
		{Input: "3", Output: "7"},
		{Input: "abc", Output: "0"},
	}

	t.Run("sequential", func(t *testing.T) {
		exec := &doublingExecutor{}
		svc := NewService(&mockLLM{}, exec, nil, 15, loggy.NewNoopLogger())

		run, err := svc.Run(ctx, "/w/double.py", runner.Python, cases, 0)
		require.NoError(t, err)

		assert.Equal(t, 2, run.Passed)
		assert.Equal(t, 2, run.Failed)
		require.Len(t, run.Cases, 4)
		assert.Equal(t, "5", run.Cases[1].Input)
		assert.Equal(t, "10", run.Cases[1].Expected)
		assert.True(t, run.Cases[1].Passed)
		assert.Equal(t, "6", run.Cases[2].Actual)
		assert.False(t, run.Cases[2].Passed)
		assert.Empty(t, run.Cases[2].Error)
		assert.Contains(t, run.Cases[3].Error, "ValueError")
		assert.Equal(t, int32(1), exec.peak.Load())
		assert.Equal(t, `python "/w/double.py"`, exec.commands[0])

		assert.Equal(t, []string{
			"✅ 2/4 test cases passed.",
			"❌ 2/4 test cases failed.",
			FailureHint,
		}, run.Summary())
	})

	t.Run("parallel keeps order", func(t *testing.T) {
		var many []extractor.TestCase
		for i := 0; i < 12; i++ {
			many = append(many, extractor.TestCase{Input: strconv.Itoa(i), Output: strconv.Itoa(i * 2)})
		}
		exec := &doublingExecutor{delay: 20 * time.Millisecond}
		svc := NewService(&mockLLM{}, exec, nil, 15, loggy.NewNoopLogger())

		run, err := svc.Run(ctx, "/w/double.py", runner.Python, many, 4)
		require.NoError(t, err)

		assert.Equal(t, 12, run.Passed)
		assert.LessOrEqual(t, exec.peak.Load(), int32(4))
		for i, c := range run.Cases {
			assert.Equal(t, i+1, c.Position)
			assert.Equal(t, strconv.Itoa(i), c.Input)
		}
		assert.Equal(t, []string{"✅ 12/12 test cases passed.", "❌ 0/12 test cases failed."}, run.Summary())
	})

	t.Run("literal newline escapes", func(t *testing.T) {
		exec := &doublingExecutor{}
		svc := NewService(&mockLLM{}, exec, nil, 15, loggy.NewNoopLogger())

		run, err := svc.Run(ctx, "/w/double.py", runner.Python, []extractor.TestCase{{Input: `4\n`, Output: `8\n`}}, 1)
		require.NoError(t, err)
		assert.Equal(t, "4", run.Cases[0].Input)
		assert.True(t, run.Cases[0].Passed)
	})

	t.Run("compile failure fails every case", func(t *testing.T) {
		exec := &doublingExecutor{compile: &runner.Result{Stderr: "error: expected ';'", ExitCode: 1, Kind: runner.KindCompileError}}
		svc := NewService(&mockLLM{}, exec, nil, 15, loggy.NewNoopLogger())

		run, err := svc.Run(ctx, "/w/double.cpp", runner.CPP, cases, 1)
		require.NoError(t, err)
		assert.Equal(t, 4, run.Failed)
		assert.Equal(t, "error: expected ';'", run.Cases[0].Error)
		assert.Empty(t, exec.commands)
	})

	t.Run("unsupported language aborts", func(t *testing.T) {
		exec := &doublingExecutor{}
		svc := NewService(&mockLLM{}, exec, nil, 15, loggy.NewNoopLogger())

		_, err := svc.Run(ctx, "/w/a.rb", "Ruby", cases, 1)
		assert.ErrorIs(t, err, runner.ErrUnsupportedLanguage)
		assert.Empty(t, exec.commands)
	})
}

func TestRunIsRecorded(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec("INSERT INTO test_runs").
		WithArgs(sqlmock.AnyArg(), "/w/double.py", "Python", 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectExec("INSERT INTO test_cases").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, "2", "4", "4", true, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	svc := NewService(&mockLLM{}, &doublingExecutor{}, NewSQLRepository(db, loggy.NewNoopLogger()), 15, loggy.NewNoopLogger())
	run, err := svc.Run(context.Background(), "/w/double.py", runner.Python, []extractor.TestCase{{Input: "2", Output: "4"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Passed)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSQLRepository(db, loggy.NewNoopLogger())
	now := time.Now()

	sqlMock.ExpectQuery(`SELECT .+ FROM test_runs WHERE id = \?`).
		WithArgs("trn-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_path", "language", "passed", "failed", "created_at"}).
			AddRow("trn-1", "/w/a.py", "Python", 1, 1, now))
	sqlMock.ExpectQuery(`SELECT .+ FROM test_cases WHERE run_id = \? ORDER BY position`).
		WithArgs("trn-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "position", "input", "expected", "actual", "passed", "error"}).
			AddRow("tcs-1", "trn-1", 1, "1", "2", "2", true, nil).
			AddRow("tcs-2", "trn-1", 2, "x", "0", "", false, "ValueError"))

	run, err := repo.GetRun(context.Background(), "trn-1")
	require.NoError(t, err)
	assert.Equal(t, runner.Python, run.Language)
	require.Len(t, run.Cases, 2)
	assert.True(t, run.Cases[0].Passed)
	assert.Equal(t, "ValueError", run.Cases[1].Error)
	assert.NoError(t, sqlMock.ExpectationsWereMet())

	sqlMock.ExpectQuery("SELECT .+ FROM test_runs").WillReturnError(errors.New("boom"))
	_, err = repo.GetRun(context.Background(), "trn-2")
	assert.Error(t, err)
}
