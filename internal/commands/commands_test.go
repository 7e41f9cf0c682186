package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/testgen"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

func plainOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	text.DisableColors()
	noColor := color.NoColor
	color.NoColor = true

	buf := &bytes.Buffer{}
	prev := utils.Output
	utils.Output = buf
	t.Cleanup(func() {
		utils.Output = prev
		color.NoColor = noColor
		text.EnableColors()
	})
	return buf
}

// testApp runs commands against an application without a database or model
func testApp(commands ...*cli.Command) *cli.App {
	application := &app.App{
		Config: config.New(),
		Assist: assist.NewService(nil, nil, config.New(), loggy.NewNoopLogger()),
	}
	return &cli.App{
		Name:           "codeboost",
		Metadata:       map[string]interface{}{"app": application},
		Commands:       commands,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyCommandWithLine(t *testing.T) {
	out := plainOutput(t)
	path := writeFile(t, "calc.py", "a = 1\nb = a +\nprint(b)\n")

	err := testApp(ApplyCommand()).Run([]string{"codeboost", "apply", "--line", "2", "--fix", "b = a + 1", path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\nb = a + 1\nprint(b)\n", string(data))
	assert.Contains(t, out.String(), "Applied fix to line 2")
}

func TestApplyCommandErrors(t *testing.T) {
	plainOutput(t)
	path := writeFile(t, "calc.py", "a = 1\n")
	run := func(args ...string) error {
		return testApp(ApplyCommand()).Run(append([]string{"codeboost", "apply"}, args...))
	}

	err := run(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--index")

	err = run("--line", "7", "--fix", "x", path)
	require.ErrorIs(t, err, document.ErrLineOutOfRange)

	err = run("--line", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing FILE")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", string(data))
}

func TestSuggestionRows(t *testing.T) {
	rows := suggestionRows([]*assist.Suggestion{
		{Line: 3, IssueType: "Syntax Error", Fix: "x = 1", Status: assist.SuggestionStatusOpen},
		{IssueType: "Style", Fix: "use snake_case", Status: assist.SuggestionStatusApplied},
	})
	assert.Equal(t, [][]string{
		{"1", "3", "Syntax Error", "x = 1", "open"},
		{"2", "-", "Style", "use snake_case", "applied"},
	}, rows)
}

func TestPrintAnalysis(t *testing.T) {
	out := plainOutput(t)

	printAnalysis("/w", &assist.Analysis{
		FilePath: "/w/pkg/main.py",
		Suggestions: []*assist.Suggestion{
			{Line: 2, IssueType: "NameError", Fix: "print(x)", Status: assist.SuggestionStatusOpen},
			{IssueType: "Style", Fix: "add docstring", Status: assist.SuggestionStatusOpen},
		},
		Diagnostics: []assist.Diagnostic{{
			Line:     2,
			Range:    assist.Range{Start: assist.Position{Line: 1, Character: 4}, End: assist.Position{Line: 1, Character: 12}},
			Message:  "NameError: print(x)",
			Severity: assist.SeverityError,
		}},
	})

	s := out.String()
	assert.Contains(t, s, "pkg/main.py: 2 suggestions")
	assert.Contains(t, s, "NameError")
	assert.Contains(t, s, "pkg/main.py:2:5: Error NameError: print(x)")
	assert.Contains(t, s, "1 suggestion without a line number cannot be applied")

	out.Reset()
	printAnalysis("/w", &assist.Analysis{FilePath: "/w/clean.go"})
	assert.Contains(t, out.String(), "clean.go: no issues found")
}

func TestPrintTestRun(t *testing.T) {
	out := plainOutput(t)

	run := testgen.NewRun("/w/sum.py", runner.Python)
	run.Cases = []*testgen.Case{
		{Position: 1, Input: "1 2", Expected: "3", Actual: "3", Passed: true},
		{Position: 2, Input: "2 2", Expected: "4", Error: "Traceback (most recent call last):\n  boom"},
	}
	run.Passed, run.Failed = 1, 1

	printTestRun(run)
	s := out.String()
	assert.Contains(t, s, "Traceback (most recent call last):")
	assert.NotContains(t, s, "boom")
	assert.Contains(t, s, "1/2 test cases passed.")
	assert.Contains(t, s, "1/2 test cases failed.")
}

func TestRenderDiffWithoutTerminal(t *testing.T) {
	plainOutput(t)
	diff := "--- a/x.py\n+++ b/x.py\n@@ -1 +1 @@\n-a\n+b\n"
	assert.Equal(t, diff, renderDiff(diff))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb\n", "  "))
}

func TestSince(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", since(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", since(now.Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", since(now.Add(-3*time.Hour)))

	old := now.Add(-72 * time.Hour)
	assert.Equal(t, old.Local().Format(historyTimeFormat), since(old))
}

func TestNextMigrationNumber(t *testing.T) {
	dir := t.TempDir()
	n, err := nextMigrationNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_add_index.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_add_index.down.sql"), nil, 0o644))
	n, err = nextMigrationNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(5), n)
}

func TestCreateMigration(t *testing.T) {
	plainOutput(t)
	dir := filepath.Join(t.TempDir(), "sql")

	create := func(name string) error {
		cmd := MigrateCommand()
		cmd.Before, cmd.After = nil, nil
		a := &cli.App{Name: "codeboost", Commands: []*cli.Command{cmd}, ExitErrHandler: func(*cli.Context, error) {}}
		return a.Run([]string{"codeboost", "migrate", "create", "--name", name, "--path", dir})
	}

	require.NoError(t, create("add_tags"))
	require.NoError(t, create("add_notes"))

	for _, name := range []string{
		"000001_add_tags.up.sql", "000001_add_tags.down.sql",
		"000002_add_notes.up.sql", "000002_add_notes.down.sql",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}
