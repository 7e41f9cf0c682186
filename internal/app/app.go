// Package app provides the application initialization and lifecycle management
package app

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/autobuild"
	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/database"
	"github.com/tildaslashalef/codeboost/internal/git"
	"github.com/tildaslashalef/codeboost/internal/llm"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/testgen"
)

// App represents the application instance with its dependencies
type App struct {
	Config    *config.Config
	LLM       llm.Client
	Runner    *runner.Runner
	Assist    *assist.Service
	AutoBuild *autobuild.Service
	Tests     *testgen.Service
	Git       *git.Service
}

// New loads configuration, sets up logging and the database, migrates the
// schema and wires every service. A missing API key is reported when a
// command first needs the model, not here.
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
		"model", cfg.Gemini.Model,
	)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if _, err := database.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	app := initServices(cfg, db)
	loggy.Info("Application initialized successfully")
	return app, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initServices wires the services over an open database
func initServices(cfg *config.Config, db *sql.DB) *App {
	logger := loggy.GetGlobalLogger()

	llmClient := initLLMClient(cfg, logger)

	run := runner.New(runner.Config{
		Shell:         cfg.Runner.Shell,
		Timeout:       cfg.Runner.Timeout,
		MaxOutputSize: cfg.Runner.MaxOutputSize,
	})

	assistService := assist.NewService(
		assist.NewSQLRepository(db, loggy.Component("assist")),
		llmClient,
		cfg,
		loggy.Component("assist"),
	)

	buildService := autobuild.NewService(
		assistService,
		run,
		autobuild.NewSQLRepository(db, loggy.Component("autobuild")),
		cfg.Assist.MaxFixAttempts,
		loggy.Component("autobuild"),
	)

	testService := testgen.NewService(
		llmClient,
		run,
		testgen.NewSQLRepository(db, loggy.Component("testgen")),
		cfg.Assist.TestCaseCount,
		loggy.Component("testgen"),
	)

	return &App{
		Config:    cfg,
		LLM:       llmClient,
		Runner:    run,
		Assist:    assistService,
		AutoBuild: buildService,
		Tests:     testService,
		Git:       git.NewService(loggy.Component("git")),
	}
}

// initLLMClient returns the configured client, or one that reports the
// configuration error on first use
func initLLMClient(cfg *config.Config, logger *loggy.Logger) llm.Client {
	client, err := llm.NewFactory(cfg, logger).DefaultClient()
	if err != nil {
		loggy.Warn("LLM client unavailable, model features are disabled", "error", err)
		return unavailableClient{err: err, model: cfg.Gemini.Model}
	}
	return client
}

// RequireLLM fails when the model client could not be configured
func (app *App) RequireLLM() error {
	if u, ok := app.LLM.(unavailableClient); ok {
		return u.err
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return loggy.Close()
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
