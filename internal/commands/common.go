// Package commands implements the codeboost CLI commands
package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// fileArg returns the absolute path of the first positional argument
func fileArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", cli.Exit(fmt.Sprintf("missing FILE argument\n\nUsage: codeboost %s %s", c.Command.Name, c.Command.ArgsUsage), 1)
	}
	return filepath.Abs(c.Args().First())
}

// loadDocument opens the file named by the first argument
func loadDocument(c *cli.Context) (*document.Document, error) {
	path, err := fileArg(c)
	if err != nil {
		return nil, err
	}
	doc, err := document.Load(path)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to open %s: %s", path, err))
		return nil, err
	}
	return doc, nil
}

// modelApp returns the application and fails early when the model cannot
// be reached
func modelApp(c *cli.Context) (*app.App, error) {
	application, err := app.FromContext(c)
	if err != nil {
		return nil, err
	}
	if err := application.RequireLLM(); err != nil {
		utils.PrintError(err.Error())
		utils.PrintInfo("Set " + color.CyanString("CODEBOOST_GEMINI_API_KEY") + " or run " + color.CyanString("codeboost init") + " and edit the generated .env")
		return nil, cli.Exit("", 1)
	}
	return application, nil
}

// renderDiff shows a unified diff, through glamour when stdout is a terminal
func renderDiff(diff string) string {
	if color.NoColor {
		return diff
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return diff
	}
	out, err := r.Render("```diff\n" + diff + "```\n")
	if err != nil {
		return diff
	}
	return out
}

// severityLabel colours a diagnostic severity
func severityLabel(s assist.Severity) string {
	switch s {
	case assist.SeverityError:
		return color.RedString(string(s))
	case assist.SeverityWarning:
		return color.YellowString(string(s))
	default:
		return color.CyanString(string(s))
	}
}

// suggestionRows builds table rows for a list of suggestions
func suggestionRows(suggestions []*assist.Suggestion) [][]string {
	rows := make([][]string, 0, len(suggestions))
	for i, s := range suggestions {
		line := "-"
		if s.HasLine() {
			line = strconv.Itoa(s.Line)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			line,
			s.IssueType,
			s.Fix,
			string(s.Status),
		})
	}
	return rows
}

// printAnalysis prints the diagnostics of one analysis
func printAnalysis(root string, analysis *assist.Analysis) {
	name := utils.RelativePath(root, analysis.FilePath)
	if len(analysis.Suggestions) == 0 {
		utils.PrintSuccess(fmt.Sprintf("%s: no issues found", name))
		return
	}

	utils.PrintHeading(fmt.Sprintf("%s: %d %s", name, len(analysis.Suggestions), utils.Plural(len(analysis.Suggestions), "suggestion")))
	utils.PrintTable(
		[]string{"#", "Line", "Issue", "Fix", "Status"},
		suggestionRows(analysis.Suggestions),
		utils.TableOptions{WrapColumns: map[int]int{3: 30, 4: 60}, AlignRight: []int{1, 2}},
	)

	for _, d := range analysis.Diagnostics {
		fmt.Fprintf(utils.Output, "%s:%d:%d: %s %s\n",
			name, d.Line, d.Range.Start.Character+1, severityLabel(d.Severity), d.Message)
	}
	if lineless := len(analysis.Suggestions) - len(analysis.Diagnostics); lineless > 0 {
		utils.PrintWarning(fmt.Sprintf("%d %s without a line number cannot be applied", lineless, utils.Plural(lineless, "suggestion")))
	}
}

// indent prefixes every line of s
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
