package panel

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Init starts listening for watcher results when the panel has a source
func (m Model) Init() tea.Cmd {
	if m.opts.Results == nil {
		return nil
	}
	return waitForResult(m.opts.Results)
}
