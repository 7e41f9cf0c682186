package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/commands/panel"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/git"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// SuggestCommand returns the CLI command for line-level suggestions
func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Aliases:   []string{"s"},
		Usage:     "Analyse files and list line-level fixes",
		ArgsUsage: "[FILE...]",
		Description: "Sends each file to the model and prints its suggestions as diagnostics. " +
			"Without FILE arguments, --changed, --staged or --commit pick the files from git.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "changed",
				Usage: "Analyse files changed in the git working tree",
			},
			&cli.BoolFlag{
				Name:  "staged",
				Usage: "Analyse files staged in the git index",
			},
			&cli.StringFlag{
				Name:  "commit",
				Usage: "Analyse files changed by a commit",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the analyses as JSON",
			},
			&cli.BoolFlag{
				Name:    "panel",
				Aliases: []string{"p"},
				Usage:   "Browse and apply the suggestions in an interactive panel",
			},
		},
		Action: suggestAction,
	}
}

func suggestAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}

	root, targets, err := suggestTargets(c, application)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		utils.PrintWarning("No supported files to analyse")
		return nil
	}

	var analyses []*assist.Analysis
	failed := 0
	for _, path := range targets {
		doc, err := document.Load(path)
		if err != nil {
			utils.PrintError(fmt.Sprintf("Failed to open %s: %s", path, err))
			failed++
			continue
		}

		loggy.Debug("Requesting suggestions", "path", path)
		analysis, err := application.Assist.Suggest(c.Context, doc)
		if err != nil {
			utils.PrintError(fmt.Sprintf("Analysis of %s failed: %s", utils.RelativePath(root, path), err))
			failed++
			continue
		}
		analyses = append(analyses, analysis)
	}

	switch {
	case c.Bool("json"):
		enc := json.NewEncoder(utils.Output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analyses); err != nil {
			return fmt.Errorf("encoding analyses: %w", err)
		}
	case c.Bool("panel") && len(analyses) > 0:
		if err := panel.Run(c.Context, panel.Options{Apply: applyFunc(application), Root: root}, analyses...); err != nil {
			return err
		}
	default:
		for _, analysis := range analyses {
			printAnalysis(root, analysis)
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d %s could not be analysed", failed, len(targets), utils.Plural(len(targets), "file")), 1)
	}
	return nil
}

// suggestTargets resolves the files to analyse and the directory paths are
// shown relative to
func suggestTargets(c *cli.Context, application *app.App) (string, []string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	if c.NArg() > 0 {
		var targets []string
		for _, arg := range c.Args().Slice() {
			path, err := filepath.Abs(arg)
			if err != nil {
				return "", nil, err
			}
			if _, ok := runner.LanguageByExtension(path); !ok {
				utils.PrintWarning(fmt.Sprintf("Skipping %s: unsupported file type", arg))
				continue
			}
			targets = append(targets, path)
		}
		return cwd, targets, nil
	}

	if !c.Bool("changed") && !c.Bool("staged") && c.String("commit") == "" {
		return "", nil, cli.Exit("specify FILE arguments or one of --changed, --staged, --commit", 1)
	}

	if err := application.Git.Open(cwd); err != nil {
		utils.PrintError(fmt.Sprintf("Not a git repository: %s", cwd))
		return "", nil, err
	}

	var files []git.ChangedFile
	switch {
	case c.String("commit") != "":
		files, err = application.Git.CommitFiles(c.String("commit"))
	case c.Bool("staged"):
		files, err = application.Git.ChangedFiles(git.ScopeStaged)
	default:
		files, err = application.Git.ChangedFiles(git.ScopeWorking)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	var targets []string
	for _, f := range files {
		if !f.Exists() {
			continue
		}
		if _, ok := runner.LanguageByExtension(f.Path); !ok {
			continue
		}
		targets = append(targets, f.Path)
	}
	return application.Git.Root(), targets, nil
}
