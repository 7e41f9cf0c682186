package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/commands/panel"
	"github.com/tildaslashalef/codeboost/internal/utils"
	"github.com/tildaslashalef/codeboost/internal/watcher"
)

// WatchCommand returns the CLI command for watch mode
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Analyse files as they are saved",
		ArgsUsage: "[DIR]",
		Description: "Watches DIR (default: the current directory) and re-analyses each supported " +
			"file once it stops changing. A newer save cancels the analysis of the older text.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "panel",
				Aliases: []string{"p"},
				Usage:   "Show results in an interactive panel that can apply fixes",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before a changed file is analysed (default from config)",
			},
			&cli.StringSliceFlag{
				Name:  "touch",
				Usage: "Analyse these files right away",
			},
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}

	root := "."
	if c.NArg() > 0 {
		root = c.Args().First()
	}

	debounce := application.Config.Watch.Debounce
	if c.IsSet("debounce") {
		debounce = c.Duration("debounce")
	}

	w, err := watcher.New(root, application.Assist.Analyze, watcher.Options{
		Save:           application.Assist.Save,
		Debounce:       debounce,
		IgnorePatterns: application.Config.Watch.IgnorePatterns,
		Extensions:     application.Config.Watch.Extensions,
	})
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to create watcher: %s", err))
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		w.Stop()
		utils.PrintError(fmt.Sprintf("Failed to watch %s: %s", root, err))
		return err
	}
	defer w.Stop()

	for _, path := range c.StringSlice("touch") {
		w.Touch(path)
	}

	cwd, _ := os.Getwd()
	if c.Bool("panel") {
		return panel.Run(ctx, panel.Options{
			Apply:   applyFunc(application),
			Results: w.Results(),
			Root:    cwd,
		})
	}

	utils.PrintInfo(fmt.Sprintf("Watching %s (debounce %s), press Ctrl+C to stop", color.YellowString(root), debounce))
	return printResults(ctx, application, cwd, w.Results())
}

// printResults prints analyses until ctx ends or the watcher stops
func printResults(ctx context.Context, application *app.App, root string, results <-chan watcher.Result) error {
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(utils.Output)
			utils.PrintInfo("Stopped watching")
			return nil
		case r, ok := <-results:
			if !ok {
				return nil
			}
			utils.PrintDivider()
			fmt.Fprintln(utils.Output, color.New(color.Faint).Sprint(time.Now().Format("15:04:05")))
			if r.Err != nil {
				utils.PrintError(fmt.Sprintf("Analysis of %s with %s failed: %s",
					utils.RelativePath(root, r.Path), application.LLM.Model(), r.Err))
				continue
			}
			printAnalysis(root, r.Analysis)
		}
	}
}
