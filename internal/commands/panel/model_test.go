package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/watcher"
)

type applyRecorder struct {
	mu       sync.Mutex
	paths    []string
	messages []assist.ApplyMessage
	err      error
}

func (r *applyRecorder) apply(_ context.Context, path string, msg assist.ApplyMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.messages = append(r.messages, msg)
	return r.err
}

func analysis(path string, suggestions ...*assist.Suggestion) *assist.Analysis {
	return &assist.Analysis{FilePath: path, Suggestions: suggestions}
}

func suggestion(id string, line int, issue, fix string) *assist.Suggestion {
	return &assist.Suggestion{ID: id, Line: line, IssueType: issue, Fix: fix, Status: assist.SuggestionStatusOpen}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	quit  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestApplySendsMessage(t *testing.T) {
	rec := &applyRecorder{}
	m := sized(t, NewModel(context.Background(), Options{Apply: rec.apply, Root: "/w"},
		analysis("/w/main.py",
			suggestion("sug-1", 2, "Syntax Error", "print('x')"),
			suggestion("sug-2", 5, "Logic Error", "return a + b"),
		)))

	view := m.View()
	assert.Contains(t, view, "CodeBoost Suggestions")
	assert.Contains(t, view, "main.py")
	assert.Contains(t, view, "Syntax Error")

	m, _ = press(t, m, down)
	m, cmd := press(t, m, enter)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Applying fix to line 5")

	msg := cmd()
	require.Len(t, rec.messages, 1)
	assert.Equal(t, "/w/main.py", rec.paths[0])
	require.NotNil(t, rec.messages[0].Line)
	assert.Equal(t, 5, *rec.messages[0].Line)
	assert.Equal(t, "return a + b", rec.messages[0].Fix)
	assert.Equal(t, "sug-2", rec.messages[0].SuggestionID)

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.Equal(t, assist.SuggestionStatusApplied, m.files[0].suggestions[1].Status)
	assert.Contains(t, m.View(), "Applied fix to line 5 of main.py")

	m, cmd = press(t, m, enter)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "already applied")
}

func TestApplyWithoutLine(t *testing.T) {
	rec := &applyRecorder{}
	m := sized(t, NewModel(context.Background(), Options{Apply: rec.apply},
		analysis("/w/a.js", suggestion("sug-1", 0, "Style", "use const"))))

	m, cmd := press(t, m, enter)
	assert.Nil(t, cmd)
	assert.Empty(t, rec.messages)
	assert.Contains(t, m.View(), "suggestion has no line number")
}

func TestApplyFailure(t *testing.T) {
	rec := &applyRecorder{err: errors.New("line 9 out of range")}
	m := sized(t, NewModel(context.Background(), Options{Apply: rec.apply},
		analysis("/w/a.py", suggestion("sug-1", 9, "Bug", "x = 1"))))

	m, cmd := press(t, m, enter)
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Equal(t, assist.SuggestionStatusOpen, m.files[0].suggestions[0].Status)
	assert.Contains(t, m.View(), "Failed to apply fix: line 9 out of range")
}

func TestWatchResults(t *testing.T) {
	results := make(chan watcher.Result, 2)
	m := sized(t, NewModel(context.Background(), Options{Apply: (&applyRecorder{}).apply, Results: results}))
	assert.Contains(t, m.View(), "Waiting for changes")

	cmd := m.Init()
	require.NotNil(t, cmd)

	results <- watcher.Result{Path: "/w/b.c", Analysis: analysis("/w/b.c", suggestion("sug-9", 1, "Compile Error", "int x = 0;"))}
	updated, next := m.Update(cmd())
	m = updated.(Model)
	require.NotNil(t, next)
	assert.Contains(t, m.View(), "Compile Error")
	assert.Contains(t, m.View(), "Analysed /w/b.c: 1 suggestion(s)")

	// A newer analysis replaces the old suggestions for the same file
	results <- watcher.Result{Path: "/w/b.c", Analysis: analysis("/w/b.c")}
	updated, next = m.Update(next())
	m = updated.(Model)
	assert.Len(t, m.files, 1)
	assert.Empty(t, m.files[0].suggestions)

	close(results)
	updated, _ = m.Update(next())
	m = updated.(Model)
	assert.Contains(t, m.View(), "Watcher stopped")
}

func TestWatchErrors(t *testing.T) {
	results := make(chan watcher.Result, 1)
	m := sized(t, NewModel(context.Background(), Options{Results: results}))

	results <- watcher.Result{Path: "/w/x.py", Err: errors.New("quota exceeded")}
	updated, _ := m.Update(m.Init()())
	m = updated.(Model)
	assert.Contains(t, m.View(), "Analysis of /w/x.py failed: quota exceeded")
	assert.Contains(t, m.View(), "last analysis failed")
}

func TestSwitchFiles(t *testing.T) {
	m := sized(t, NewModel(context.Background(), Options{},
		analysis("/w/one.py", suggestion("a", 1, "First", "x")),
		analysis("/w/two.py", suggestion("b", 1, "Second", "y")),
	))
	assert.Contains(t, m.View(), "First")
	assert.Contains(t, m.View(), "file 1 of 2")

	m, _ = press(t, m, tab)
	assert.Contains(t, m.View(), "Second")
	assert.Contains(t, m.View(), "file 2 of 2")

	m, _ = press(t, m, tab)
	assert.Contains(t, m.View(), "First")

	m, cmd := press(t, m, enter)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "read-only")
}

func TestQuit(t *testing.T) {
	m := sized(t, NewModel(context.Background(), Options{}))
	_, cmd := press(t, m, quit)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Error(t, m.ctx.Err())
}
