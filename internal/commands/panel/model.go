// Package panel is the interactive suggestion panel: a table of a file's
// suggestions where each row can send its fix back to be applied
package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/watcher"
)

// ApplyFunc applies one applyFix message to the file at path
type ApplyFunc func(ctx context.Context, path string, msg assist.ApplyMessage) error

// Options configures the panel
type Options struct {
	Apply ApplyFunc
	// Results feeds analyses from watch mode. Nil shows only the initial ones.
	Results <-chan watcher.Result
	// Root shortens displayed paths
	Root string
}

// fileState is the latest analysis shown for one file
type fileState struct {
	path        string
	suggestions []*assist.Suggestion
	err         error
}

// Model represents the panel state
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	files   []*fileState
	current int

	table    table.Model
	help     help.Model
	showHelp bool
	styles   Styles

	width  int
	height int
	ready  bool

	statusMessage string
	errorMsg      string
	watching      bool
}

// NewModel creates a panel showing the given analyses
func NewModel(ctx context.Context, opts Options, analyses ...*assist.Analysis) Model {
	ctx, cancel := context.WithCancel(ctx)
	styles := DefaultStyles()

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(styles.Table)

	h := help.New()
	h.ShowAll = false

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		table:    t,
		help:     h,
		styles:   styles,
		watching: opts.Results != nil,
	}
	for _, a := range analyses {
		m.setAnalysis(a)
	}
	if len(m.files) > 0 {
		m.current = 0
		m.refreshRows()
	}
	return m
}

// Run shows the panel full screen until the user quits
func Run(ctx context.Context, opts Options, analyses ...*assist.Analysis) error {
	if opts.Apply == nil {
		return errors.New("panel needs an apply function")
	}
	m := NewModel(ctx, opts, analyses...)
	defer m.cancel()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running suggestion panel: %w", err)
	}
	return nil
}

func columns(width int) []table.Column {
	fixed := 4 + 6 + 18 + 9
	fixWidth := width - fixed - 10
	if fixWidth < 20 {
		fixWidth = 20
	}
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Line", Width: 6},
		{Title: "Issue", Width: 18},
		{Title: "Status", Width: 9},
		{Title: "Fix", Width: fixWidth},
	}
}

// setAnalysis shows a file's newest analysis, replacing any older one
func (m *Model) setAnalysis(a *assist.Analysis) {
	st := m.fileFor(a.FilePath)
	st.suggestions = a.Suggestions
	st.err = nil
}

func (m *Model) fileFor(path string) *fileState {
	for _, f := range m.files {
		if f.path == path {
			return f
		}
	}
	f := &fileState{path: path}
	m.files = append(m.files, f)
	return f
}

func (m *Model) currentFile() *fileState {
	if m.current < 0 || m.current >= len(m.files) {
		return nil
	}
	return m.files[m.current]
}

// selected returns the suggestion under the cursor
func (m *Model) selected() *assist.Suggestion {
	f := m.currentFile()
	if f == nil {
		return nil
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(f.suggestions) {
		return nil
	}
	return f.suggestions[i]
}

func (m *Model) refreshRows() {
	f := m.currentFile()
	if f == nil {
		m.table.SetRows(nil)
		return
	}

	rows := make([]table.Row, 0, len(f.suggestions))
	for i, s := range f.suggestions {
		line := "-"
		if s.HasLine() {
			line = fmt.Sprintf("%d", s.Line)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			line,
			s.IssueType,
			string(s.Status),
			s.Fix,
		})
	}
	m.table.SetRows(rows)

	if c := m.table.Cursor(); c >= len(rows) || c < 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	if len(rows) > 0 && m.table.Cursor() < 0 {
		m.table.SetCursor(0)
	}
}
