package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/app"
	"github.com/tildaslashalef/codeboost/internal/commands"
)

// Version information - populated at build time
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
	Author     = "unknown"
	Email      = "unknown"
)

// standalone commands manage configuration and schema themselves
var standalone = map[string]bool{
	"":        true,
	"init":    true,
	"migrate": true,
	"help":    true,
	"h":       true,
}

func main() {
	cliApp := &cli.App{
		Name:  "codeboost",
		Usage: "Gemini-powered code completion, fixes and tests",
		Description: "CodeBoost completes code at a cursor, fixes whole files, lists line-level\n" +
			"suggestions, re-analyses files as you save them, runs programs until they work\n" +
			"and generates stdin/stdout test cases.\n\n" +
			"Run 'codeboost init' first to create ~/.codeboost/.env.",
		Version: fmt.Sprintf("%s (%s)", Version, CommitHash),
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Authors: []*cli.Author{
			{
				Name:  Author,
				Email: Email,
			},
		},
		EnableBashCompletion: true,
		Before: func(c *cli.Context) error {
			if standalone[c.Args().First()] {
				return nil
			}

			application, err := app.New()
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			// Store the app instance in the context for later use
			c.App.Metadata = map[string]interface{}{
				"app": application,
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if application, ok := c.App.Metadata["app"].(*app.App); ok {
				return application.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.InitCommand(),
			commands.CompleteCommand(),
			commands.FixCommand(),
			commands.SuggestCommand(),
			commands.ApplyCommand(),
			commands.WatchCommand(),
			commands.RunCommand(),
			commands.TestCommand(),
			commands.HistoryCommand(),
			commands.MigrateCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
