package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

const historyTimeFormat = "2006-01-02 15:04"

// HistoryCommand returns the CLI command listing stored activity
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show past analyses, test runs and build attempts",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Rows per table",
				Value:   10,
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	path := ""
	if c.NArg() > 0 {
		if path, err = filepath.Abs(c.Args().First()); err != nil {
			return err
		}
	}
	limit := c.Int("limit")
	cwd, _ := os.Getwd()

	if err := printAnalysisHistory(c, application, cwd, path, limit); err != nil {
		return err
	}
	if err := printTestHistory(c, application, cwd, path, limit); err != nil {
		return err
	}
	return printBuildHistory(c, application, cwd, path, limit)
}

func printAnalysisHistory(c *cli.Context, application *app.App, root, path string, limit int) error {
	analyses, err := application.Assist.ListAnalyses(c.Context, path, limit)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list analyses: %s", err))
		return err
	}

	utils.PrintHeading("Analyses")
	if len(analyses) == 0 {
		utils.PrintInfo("No analyses recorded")
	} else {
		rows := make([][]string, 0, len(analyses))
		for _, a := range analyses {
			rows = append(rows, []string{
				since(a.CreatedAt),
				utils.RelativePath(root, a.FilePath),
				a.Model,
				a.ID,
			})
		}
		utils.PrintTable([]string{"When", "File", "Model", "ID"}, rows, utils.TableOptions{WrapColumns: map[int]int{2: 50}})
	}

	if path == "" {
		return nil
	}
	latest, err := application.Assist.LatestSuggestions(c.Context, path)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list suggestions: %s", err))
		return err
	}
	if len(latest) > 0 {
		utils.PrintHeading("Latest suggestions")
		utils.PrintTable(
			[]string{"#", "Line", "Issue", "Fix", "Status"},
			suggestionRows(latest),
			utils.TableOptions{WrapColumns: map[int]int{3: 30, 4: 60}, AlignRight: []int{1, 2}},
		)
		utils.PrintInfo("Apply one with: codeboost apply " + c.Args().First() + " --index N")
	}
	return nil
}

func printTestHistory(c *cli.Context, application *app.App, root, path string, limit int) error {
	runs, err := application.Tests.ListRuns(c.Context, path, limit)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list test runs: %s", err))
		return err
	}

	utils.PrintHeading("Test runs")
	if len(runs) == 0 {
		utils.PrintInfo("No test runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			since(r.CreatedAt),
			utils.RelativePath(root, r.FilePath),
			r.Language.String(),
			fmt.Sprintf("%d/%d", r.Passed, r.Total()),
		})
	}
	utils.PrintTable([]string{"When", "File", "Language", "Passed"}, rows, utils.TableOptions{AlignRight: []int{4}})
	return nil
}

func printBuildHistory(c *cli.Context, application *app.App, root, path string, limit int) error {
	attempts, err := application.AutoBuild.ListAttempts(c.Context, path, limit)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list build attempts: %s", err))
		return err
	}

	utils.PrintHeading("Build attempts")
	if len(attempts) == 0 {
		utils.PrintInfo("No build attempts recorded")
		return nil
	}
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{
			since(a.CreatedAt),
			utils.RelativePath(root, a.FilePath),
			strconv.Itoa(a.Attempt),
			string(a.Kind),
			strconv.Itoa(a.ExitCode),
			utils.Truncate(utils.FirstLine(a.Output), 60),
		})
	}
	utils.PrintTable(
		[]string{"When", "File", "Attempt", "Result", "Exit", "Output"},
		rows,
		utils.TableOptions{AlignRight: []int{3, 5}},
	)
	return nil
}

// since formats how long ago t was
func since(t time.Time) string {
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format(historyTimeFormat)
	}
}
