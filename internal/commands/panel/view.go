package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tildaslashalef/codeboost/internal/utils"
)

// View renders the panel
func (m Model) View() string {
	if !m.ready {
		return "Initializing...\n"
	}

	sections := []string{m.renderHeader(), m.table.View(), m.renderDetail(), m.renderStatus()}
	if m.showHelp {
		sections = append(sections, m.help.View(Keys))
	} else {
		sections = append(sections, m.help.ShortHelpView(Keys.ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("CodeBoost Suggestions")
	f := m.currentFile()
	if f == nil {
		hint := "No suggestions yet."
		if m.watching {
			hint = "Waiting for changes..."
		}
		return title + "\n" + m.styles.Subtle.Render(hint)
	}

	file := m.styles.File.Render(m.displayPath(f.path))
	counter := ""
	if len(m.files) > 1 {
		counter = m.styles.Subtle.Render(fmt.Sprintf("  (file %d of %d)", m.current+1, len(m.files)))
	}
	summary := m.styles.Subtle.Render(fmt.Sprintf("%d %s", len(f.suggestions), utils.Plural(len(f.suggestions), "suggestion")))
	if f.err != nil {
		summary = m.styles.Error.Render("last analysis failed")
	}
	return title + "\n" + file + counter + "  " + summary
}

func (m Model) renderDetail() string {
	s := m.selected()
	if s == nil {
		return ""
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	line := "none"
	if s.HasLine() {
		line = fmt.Sprintf("%d", s.Line)
	}
	b.WriteString(m.styles.DetailKey.Render("Line: "))
	b.WriteString(line)
	b.WriteString("   ")
	b.WriteString(m.styles.DetailKey.Render("Issue: "))
	b.WriteString(s.IssueType)
	b.WriteString("\n")
	b.WriteString(wordwrap.String(s.Fix, width))

	return m.styles.Detail.Width(width).Render(b.String())
}

func (m Model) renderStatus() string {
	if m.errorMsg != "" {
		return m.styles.Error.Render(m.errorMsg)
	}
	if m.statusMessage != "" {
		return m.styles.Status.Render(m.statusMessage)
	}
	return ""
}

func (m Model) displayPath(path string) string {
	return utils.RelativePath(m.opts.Root, path)
}
