package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/extractor"
	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/testgen"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// TestCommand returns the CLI command that generates and runs test cases
func TestCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Aliases:   []string{"t"},
		Usage:     "Generate stdin/stdout test cases with the model and run them",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of test cases to request (default from config)",
			},
			&cli.IntFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "Number of cases run at the same time",
				Value:   1,
			},
		},
		Action: testAction,
	}
}

func testAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	lang, err := runner.DetectLanguage(doc.Path(), []byte(doc.Text()))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Cannot test %s: %s", doc.Path(), err))
		return cli.Exit("", 1)
	}

	utils.PrintInfo(fmt.Sprintf("Generating test cases for %s (%s)", doc.Path(), lang))
	cases, err := application.Tests.Generate(c.Context, doc, lang, c.Int("count"))
	if err != nil {
		if errors.Is(err, extractor.ErrNoTestCases) {
			utils.PrintWarning("The model returned no usable test cases")
			return cli.Exit("", 1)
		}
		utils.PrintError(fmt.Sprintf("Test generation failed: %s", err))
		return err
	}

	utils.PrintInfo(fmt.Sprintf("Running %d %s", len(cases), utils.Plural(len(cases), "test case")))
	run, err := application.Tests.Run(c.Context, doc.Path(), lang, cases, c.Int("parallel"))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Test run failed: %s", err))
		return err
	}

	printTestRun(run)
	if run.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// printTestRun prints a case table followed by the summary lines
func printTestRun(run *testgen.Run) {
	rows := make([][]string, 0, len(run.Cases))
	for _, tc := range run.Cases {
		status := color.GreenString("pass")
		if !tc.Passed {
			status = color.RedString("fail")
		}
		actual := tc.Actual
		if tc.Error != "" {
			actual = utils.FirstLine(tc.Error)
		}
		rows = append(rows, []string{strconv.Itoa(tc.Position), tc.Input, tc.Expected, actual, status})
	}

	utils.PrintTable(
		[]string{"#", "Input", "Expected", "Actual", "Result"},
		rows,
		utils.TableOptions{
			Title:       "Test cases",
			WrapColumns: map[int]int{2: 30, 3: 30, 4: 40},
			AlignRight:  []int{1},
		},
	)
	for _, line := range run.Summary() {
		fmt.Fprintln(utils.Output, line)
	}
}
