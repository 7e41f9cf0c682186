package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// FixCommand returns the CLI command for whole-file bug fixes
func FixCommand() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Ask the model for a corrected version of a file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "error",
				Aliases: []string{"e"},
				Usage:   "Compiler or runtime error to fix",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Show the diff without writing the file",
			},
		},
		Action: fixAction,
	}
}

func fixAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	utils.PrintInfo(fmt.Sprintf("Asking %s to fix %s", application.LLM.Model(), doc.Path()))
	result, err := application.Assist.Fix(c.Context, doc, c.String("error"))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Bug fix failed: %s", err))
		return err
	}

	if result.NoIssues || !result.Changed {
		utils.PrintSuccess("No changes suggested")
		return nil
	}

	diff, err := document.New(doc.Path(), result.Original).Diff(result.Fixed)
	if err != nil {
		return err
	}
	fmt.Fprint(utils.Output, renderDiff(diff))

	if c.Bool("dry-run") {
		utils.PrintInfo("Dry run, file left unchanged")
		return nil
	}
	if err := doc.Save(); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to save %s: %s", doc.Path(), err))
		return err
	}
	utils.PrintSuccess("Fixed " + doc.Path())
	return nil
}
