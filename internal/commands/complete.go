package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// CompleteCommand returns the CLI command for inline completion
func CompleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Complete the code at a cursor position",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "line",
				Aliases:  []string{"l"},
				Usage:    "1-based cursor line",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "col",
				Aliases: []string{"c"},
				Usage:   "0-based cursor column in characters (default: end of line)",
				Value:   -1,
			},
			&cli.BoolFlag{
				Name:    "apply",
				Aliases: []string{"a"},
				Usage:   "Insert the completion at the cursor and save the file",
			},
		},
		Action: completeAction,
	}
}

func completeAction(c *cli.Context) error {
	application, err := modelApp(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	line := c.Int("line")
	if line < 1 || line > doc.LineCount() {
		return cli.Exit(fmt.Sprintf("line %d is outside %s (1-%d)", line, doc.Path(), doc.LineCount()), 1)
	}
	col := c.Int("col")
	if col < 0 {
		text, _ := doc.Line(line)
		col = len([]rune(text))
	}

	loggy.Debug("Completing", "path", doc.Path(), "line", line, "col", col)
	completion, err := application.Assist.Complete(c.Context, doc, line-1, col)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Completion failed: %s", err))
		return err
	}
	if completion == "" {
		utils.PrintWarning("The model returned no completion")
		return nil
	}

	if !c.Bool("apply") {
		fmt.Fprintln(utils.Output, completion)
		return nil
	}

	if err := doc.InsertAt(line-1, col, completion); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to insert completion: %s", err))
		return err
	}
	if err := doc.Save(); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to save %s: %s", doc.Path(), err))
		return err
	}
	utils.PrintCode(completion)
	utils.PrintSuccess(fmt.Sprintf("Inserted completion at %d:%d", line, col))
	return nil
}
