package panel

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// chrome is the number of rows used around the table
const chrome = 12

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		m.table.SetWidth(msg.Width)
		height := msg.Height - chrome
		if height < 3 {
			height = 3
		}
		m.table.SetHeight(height)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, Keys.Quit):
			loggy.Debug("Closing suggestion panel")
			m.cancel()
			return m, tea.Quit

		case key.Matches(msg, Keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil

		case key.Matches(msg, Keys.Apply):
			return m.apply()

		case key.Matches(msg, Keys.NextFile):
			if len(m.files) > 1 {
				m.current = (m.current + 1) % len(m.files)
				m.table.SetCursor(0)
				m.refreshRows()
			}
			return m, nil

		case key.Matches(msg, Keys.PrevFile):
			if len(m.files) > 1 {
				m.current = (m.current - 1 + len(m.files)) % len(m.files)
				m.table.SetCursor(0)
				m.refreshRows()
			}
			return m, nil
		}

		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case resultMsg:
		r := msg.result
		if r.Err != nil {
			m.fileFor(r.Path).err = r.Err
			m.errorMsg = fmt.Sprintf("Analysis of %s failed: %v", m.displayPath(r.Path), r.Err)
		} else if r.Analysis != nil {
			m.setAnalysis(r.Analysis)
			m.errorMsg = ""
			m.statusMessage = fmt.Sprintf("Analysed %s: %d suggestion(s)", m.displayPath(r.Path), len(r.Analysis.Suggestions))
		}
		m.selectPath(r.Path)
		return m, waitForResult(m.opts.Results)

	case resultsClosedMsg:
		m.watching = false
		m.statusMessage = "Watcher stopped"
		return m, nil

	case appliedMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Failed to apply fix: %v", msg.err)
			loggy.Warn("Panel apply failed", "path", msg.path, "line", msg.line, "error", msg.err)
			return m, nil
		}
		for _, s := range m.fileFor(msg.path).suggestions {
			if s.ID == msg.suggestionID {
				s.Status = assist.SuggestionStatusApplied
			}
		}
		m.errorMsg = ""
		m.statusMessage = fmt.Sprintf("Applied fix to line %d of %s", msg.line, m.displayPath(msg.path))
		m.refreshRows()
		return m, nil
	}

	return m, nil
}

func (m Model) apply() (tea.Model, tea.Cmd) {
	s := m.selected()
	if s == nil {
		return m, nil
	}
	if !s.HasLine() {
		m.errorMsg = "Cannot apply: " + assist.ErrNoLine.Error()
		return m, nil
	}
	if s.Status == assist.SuggestionStatusApplied {
		m.statusMessage = fmt.Sprintf("Fix for line %d is already applied", s.Line)
		return m, nil
	}
	if m.opts.Apply == nil {
		m.errorMsg = "This panel is read-only"
		return m, nil
	}

	path := m.currentFile().path
	m.errorMsg = ""
	m.statusMessage = fmt.Sprintf("Applying fix to line %d...", s.Line)
	return m, applyCmd(m.ctx, m.opts.Apply, path, s)
}

// selectPath shows path unless the user is already looking at another file
// that has suggestions
func (m *Model) selectPath(path string) {
	if cur := m.currentFile(); cur != nil && cur.path != path && len(cur.suggestions) > 0 {
		m.refreshRows()
		return
	}
	for i, f := range m.files {
		if f.path == path {
			if i != m.current {
				m.current = i
				m.table.SetCursor(0)
			}
			break
		}
	}
	m.refreshRows()
}
