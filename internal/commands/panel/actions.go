package panel

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/watcher"
)

// waitForResult blocks on the next watcher result
func waitForResult(results <-chan watcher.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return resultsClosedMsg{}
		}
		return resultMsg{result: r}
	}
}

// applyCmd sends the applyFix message for s
func applyCmd(ctx context.Context, apply ApplyFunc, path string, s *assist.Suggestion) tea.Cmd {
	msg := assist.ApplyMessageFor(s)
	return func() tea.Msg {
		err := apply(ctx, path, msg)
		return appliedMsg{path: path, suggestionID: s.ID, line: s.Line, err: err}
	}
}
