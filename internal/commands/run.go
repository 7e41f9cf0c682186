package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/autobuild"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// RunCommand returns the CLI command for the run-and-fix loop
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Build and run a file, fixing it with the model until it succeeds",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "attempts",
				Aliases: []string{"n"},
				Usage:   "Maximum run attempts (default from config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print the output of every attempt",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	service := application.AutoBuild.WithMaxAttempts(c.Int("attempts"))
	verbose := c.Bool("verbose")

	utils.PrintHeading("Running " + doc.Path())
	report, err := service.Run(c.Context, doc, func(e autobuild.Event) {
		printEvent(e, verbose)
	})
	if err != nil {
		utils.PrintError(fmt.Sprintf("Run failed: %s", err))
		return err
	}

	if !report.Success {
		return cli.Exit(fmt.Sprintf("%s still fails after %d %s", doc.Path(), len(report.Attempts), utils.Plural(len(report.Attempts), "attempt")), 1)
	}
	return nil
}

// printEvent shows one progress notification of the loop
func printEvent(e autobuild.Event, verbose bool) {
	switch e.Level {
	case autobuild.LevelInfo:
		utils.PrintSuccess(e.Message)
	case autobuild.LevelWarning:
		utils.PrintWarning(e.Message)
	default:
		utils.PrintError(e.Message)
	}

	if e.Result == nil {
		return
	}
	if verbose || !e.Result.OK() {
		utils.PrintKeyValue("Command", e.Result.Command)
		utils.PrintKeyValue("Result", fmt.Sprintf("%s (exit %d, %s)", e.Result.Kind, e.Result.ExitCode, e.Result.Duration.Round(time.Millisecond)))
	}
	if e.Result.OK() {
		if verbose && e.Result.Stdout != "" {
			fmt.Fprintln(utils.Output, indent(e.Result.Stdout, "  "))
		}
		return
	}
	fmt.Fprintln(utils.Output, color.RedString(indent(e.Result.ErrorText(), "  ")))
}
