package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/database"
	"github.com/tildaslashalef/codeboost/internal/migrations"
	"github.com/tildaslashalef/codeboost/internal/utils"
)

// MigrateCommand returns the CLI command for database migrations. It runs
// without the application so the schema can be inspected before startup
// migrates it.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Manage database migrations",
		Hidden: true,
		Before: func(c *cli.Context) error {
			return openDatabase()
		},
		After: func(c *cli.Context) error {
			return database.CloseDB()
		},
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					utils.PrintInfo("Applying embedded migrations")

					applied, err := database.RunMigrations()
					if err != nil {
						utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
						return fmt.Errorf("failed to apply migrations: %w", err)
					}

					if applied > 0 {
						utils.PrintSuccess(fmt.Sprintf("Applied %d %s successfully!", applied, utils.Plural(applied, "migration")))
					} else {
						utils.PrintSuccess("Database schema is already up-to-date")
					}
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "Revert the last migration",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to revert",
						Value: 1,
					},
				},
				Action: func(c *cli.Context) error {
					steps := c.Int("steps")
					utils.PrintWarning(fmt.Sprintf("Reverting %d %s", steps, utils.Plural(steps, "migration")))

					if err := database.RevertMigrations(steps); err != nil {
						utils.PrintError(fmt.Sprintf("Failed to revert migrations: %s", err))
						return fmt.Errorf("failed to revert migrations: %w", err)
					}

					utils.PrintSuccess("Migration(s) reverted successfully!")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show the schema version and pending migrations",
				Action: func(c *cli.Context) error {
					status, err := database.MigrationStatus()
					if err != nil {
						utils.PrintError(fmt.Sprintf("Failed to read migration status: %s", err))
						return fmt.Errorf("failed to read migration status: %w", err)
					}

					utils.PrintKeyValue("Version", strconv.FormatUint(uint64(status.Version), 10))
					utils.PrintKeyValue("Dirty", strconv.FormatBool(status.Dirty))
					utils.PrintKeyValue("Pending", strconv.Itoa(status.Pending))
					if status.Dirty {
						utils.PrintWarning("The last migration failed part way. Fix the schema by hand, then run migrate down.")
					}
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a new migration (development only)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Name of the migration (eg: add_suggestion_severity)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Directory the migration files are written to",
						Value: filepath.Join("internal", "migrations", "sql"),
					},
				},
				Action: createMigrationAction,
			},
		},
	}
}

// openDatabase loads configuration and opens the database without migrating
func openDatabase() error {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := database.InitDB(cfg); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

func createMigrationAction(c *cli.Context) error {
	name := strings.TrimSpace(c.String("name"))
	dir := c.String("path")

	utils.PrintWarning("This command is intended for development use only.")

	if err := os.MkdirAll(dir, 0755); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to create migrations directory: %s", err))
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	next, err := nextMigrationNumber(dir)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to determine next migration number: %s", err))
		return fmt.Errorf("failed to determine next migration number: %w", err)
	}

	utils.PrintInfo(fmt.Sprintf("Creating new migration: %s (version %d)", name, next))

	files := map[string]string{
		fmt.Sprintf("%06d_%s.up.sql", next, name):   "-- Write your UP migration SQL here\n",
		fmt.Sprintf("%06d_%s.down.sql", next, name): "-- Write your DOWN migration SQL here\n",
	}
	for file, body := range files {
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			utils.PrintError(fmt.Sprintf("Failed to create %s: %s", path, err))
			return fmt.Errorf("failed to create migration file: %w", err)
		}
		utils.PrintInfo("Created " + path)
	}

	utils.PrintSuccess("Migration created successfully!")
	utils.PrintWarning("Rebuild to embed the new files in the binary.")
	return nil
}

// nextMigrationNumber returns one past the highest version found in dir
func nextMigrationNumber(dir string) (uint, error) {
	versions, err := migrations.VersionsIn(os.DirFS(dir))
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1] + 1, nil
}
