package panel

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Theme represents the color theme for the panel
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	TextDim   lipgloss.AdaptiveColor
}

// GruvboxTheme creates a new Gruvbox-inspired theme
func GruvboxTheme() Theme {
	return Theme{
		Primary:   lipgloss.AdaptiveColor{Light: "#79740e", Dark: "#b8bb26"},
		Secondary: lipgloss.AdaptiveColor{Light: "#af3a03", Dark: "#fe8019"},
		Success:   lipgloss.AdaptiveColor{Light: "#98971a", Dark: "#b8bb26"},
		Warning:   lipgloss.AdaptiveColor{Light: "#d79921", Dark: "#fabd2f"},
		Error:     lipgloss.AdaptiveColor{Light: "#cc241d", Dark: "#fb4934"},
		Border:    lipgloss.AdaptiveColor{Light: "#d5c4a1", Dark: "#504945"},
		Highlight: lipgloss.AdaptiveColor{Light: "#d5c4a1", Dark: "#3c3836"},
		Text:      lipgloss.AdaptiveColor{Light: "#3c3836", Dark: "#fbf1c7"},
		TextDim:   lipgloss.AdaptiveColor{Light: "#7c6f64", Dark: "#a89984"},
	}
}

// Styles contains predefined styles for the panel
type Styles struct {
	Title     lipgloss.Style
	File      lipgloss.Style
	Subtle    lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Applied   lipgloss.Style
	Detail    lipgloss.Style
	DetailKey lipgloss.Style
	Table     table.Styles
}

// DefaultStyles returns default styles for the panel
func DefaultStyles() Styles {
	theme := GruvboxTheme()

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(theme.Primary)
	ts.Selected = ts.Selected.
		Foreground(theme.Text).
		Background(theme.Highlight).
		Bold(true)

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		File: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Subtle: lipgloss.NewStyle().
			Foreground(theme.TextDim),

		Status: lipgloss.NewStyle().
			Foreground(theme.Success),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Error),

		Applied: lipgloss.NewStyle().
			Foreground(theme.Success),

		Detail: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		DetailKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning),

		Table: ts,
	}
}
