package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/database"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// InitCommand returns the CLI command for initializing CodeBoost
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize or update the CodeBoost environment",
		Description: "Creates the configuration directory, writes a sample .env and prepares " +
			"the history database. Run it once after installing and again after upgrading.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Configuration directory (default: ~/.codeboost)",
			},
			&cli.BoolFlag{
				Name:  "no-backup",
				Usage: "Overwrite an existing .env without keeping a dated copy",
			},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	utils.PrintHeading("Initializing CodeBoost")

	configDir := c.String("dir")
	if configDir == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			utils.PrintError(fmt.Sprintf("Failed to locate config directory: %s", err))
			return err
		}
		configDir = dir
	}
	utils.PrintInfo("Configuration directory: " + color.YellowString("%s", configDir))

	utils.PrintInfo("Extracting default configuration file")
	configFilePath, err := config.SetupConfigDirectory(configDir, !c.Bool("no-backup"))
	if err != nil {
		// The defaults still work without the sample file
		utils.PrintWarning(fmt.Sprintf("Failed to set up configuration files: %s", err))
		configFilePath = filepath.Join(configDir, ".env")
	}

	cfg, err := config.LoadFromEnv(configDir, configFilePath)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	utils.PrintInfo("Initializing database...")
	if err := database.InitDB(cfg); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.CloseDB()

	utils.PrintInfo("Applying database migrations...")
	applied, err := database.RunMigrations()
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	utils.PrintSuccess("CodeBoost initialized successfully!")
	if applied > 0 {
		utils.PrintSuccess(fmt.Sprintf("Applied %d new %s", applied, utils.Plural(applied, "migration")))
	} else {
		utils.PrintInfo("Database schema is already up-to-date")
	}

	utils.PrintKeyValue("Configuration file", color.YellowString("%s", configFilePath))
	utils.PrintKeyValue("Database location", color.YellowString("%s", cfg.Database.Path))
	utils.PrintKeyValue("Log file location", color.YellowString("%s", cfg.Logging.Output))
	fmt.Fprintln(utils.Output)

	if cfg.Gemini.APIKey == "" {
		utils.PrintWarning("No Gemini API key found. Add CODEBOOST_GEMINI_API_KEY to " + configFilePath)
	}
	utils.PrintInfo("Next steps:")
	utils.PrintList([]string{
		color.CyanString("codeboost suggest FILE") + " lists line-level fixes",
		color.CyanString("codeboost watch") + " re-analyses files as you save them",
		color.CyanString("codeboost run FILE") + " runs a program and fixes it until it works",
	}, "")
	return nil
}
