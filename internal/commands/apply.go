package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/commands/panel"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// ApplyCommand returns the CLI command that applies one line fix
func ApplyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a suggested fix to a file",
		ArgsUsage: "FILE",
		Description: "Replaces one line with a fix. Use --index to pick one of the open " +
			"suggestions from the last analysis of FILE, or --line and --fix to supply it directly.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "1-based position in the last listing printed by suggest",
			},
			&cli.IntFlag{
				Name:    "line",
				Aliases: []string{"l"},
				Usage:   "1-based line to replace",
			},
			&cli.StringFlag{
				Name:  "fix",
				Usage: "Replacement text for --line",
			},
		},
		Action: applyAction,
	}
}

func applyAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	var msg assist.ApplyMessage
	switch {
	case c.IsSet("index"):
		s, err := application.Assist.SuggestionAt(c.Context, doc.Path(), c.Int("index"))
		if err != nil {
			utils.PrintError(err.Error())
			return cli.Exit("", 1)
		}
		if !s.HasLine() {
			utils.PrintError(fmt.Sprintf("Cannot apply suggestion %d: %s", c.Int("index"), assist.ErrNoLine))
			return cli.Exit("", 1)
		}
		msg = assist.ApplyMessageFor(s)
	case c.IsSet("line") && c.IsSet("fix"):
		line := c.Int("line")
		msg = assist.ApplyMessage{Line: &line, Fix: c.String("fix")}
	default:
		return cli.Exit("specify --index, or --line together with --fix", 1)
	}

	if err := applyAndSave(c.Context, application, doc, msg); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to apply fix: %s", err))
		return err
	}
	utils.PrintSuccess(fmt.Sprintf("Applied fix to line %d of %s", *msg.Line, doc.Path()))
	return nil
}

// applyAndSave applies msg to doc and writes it back
func applyAndSave(ctx context.Context, application *app.App, doc *document.Document, msg assist.ApplyMessage) error {
	if _, err := application.Assist.ApplyMessage(ctx, doc, msg); err != nil {
		return err
	}
	return doc.Save()
}

// applyFunc is the panel's apply hook. The file is reloaded so edits made
// since the analysis are kept.
func applyFunc(application *app.App) panel.ApplyFunc {
	return func(ctx context.Context, path string, msg assist.ApplyMessage) error {
		doc, err := document.Load(path)
		if err != nil {
			return err
		}
		return applyAndSave(ctx, application, doc, msg)
	}
}
