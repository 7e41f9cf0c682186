package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	Gemini    GeminiConfig
	Assist    AssistConfig
	Runner    RunnerConfig
	Watch     WatchConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	configDir string // Directory the config was loaded from
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	// Authentication and connection
	APIKey     string // Gemini API key
	BaseURL    string // Gemini API base URL
	APIVersion string // v1 or v1beta

	// Model settings
	Model string

	// Request settings
	Timeout    time.Duration // Request timeout
	MaxRetries int           // Retries for 429 and 5xx responses

	// Generation parameters, zero leaves the server default
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int

	// Rate limiting
	RequestsPerMinute int
	BurstLimit        int
}

// AssistConfig tunes the completion, fix and test generation features
type AssistConfig struct {
	ContextLines     int    // Lines before the cursor sent with a completion request
	MaxFixAttempts   int    // Run-and-fix loop bound
	TestCaseCount    int    // Number of test cases requested from the model
	DiagnosticSource string // Source tag written on every diagnostic
}

// RunnerConfig controls how compilers and interpreters are invoked
type RunnerConfig struct {
	Shell         string        // Shell used to run command templates
	Timeout       time.Duration // Per-process timeout
	MaxOutputSize int64         // Bytes kept per stream, 0 keeps everything
}

// WatchConfig controls watch mode
type WatchConfig struct {
	Debounce       time.Duration // Quiet period before a changed file is analysed
	IgnorePatterns []string      // Base names or globs skipped by the watcher
	Extensions     []string      // File extensions analysed, empty means all supported
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	CacheSize       int           // Cache size in KiB
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error, none
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// New returns a new empty Config
func New() *Config {
	return &Config{}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate fills defaults and checks the configuration
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return fmt.Errorf("gemini config: %w", err)
	}

	if err := c.validateAssist(); err != nil {
		return fmt.Errorf("assist config: %w", err)
	}

	if err := c.validateRunner(); err != nil {
		return fmt.Errorf("runner config: %w", err)
	}

	if err := c.validateWatch(); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// RequireAPIKey reports a usable error when no Gemini key is configured.
// Commands that never reach the model (init, migrate, history) skip it.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("no Gemini API key configured: set CODEBOOST_GEMINI_API_KEY or GEMINI_API_KEY")
	}
	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateGemini() error {
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}

	if c.Gemini.APIVersion == "" {
		c.Gemini.APIVersion = "v1beta"
	}

	if c.Gemini.APIVersion != "v1" && c.Gemini.APIVersion != "v1beta" {
		return fmt.Errorf("invalid API version: %s (must be v1 or v1beta)", c.Gemini.APIVersion)
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}

	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 60 * time.Second
	}

	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.Gemini.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}

	if c.Gemini.BurstLimit <= 0 {
		c.Gemini.BurstLimit = 1
	}

	return nil
}

func (c *Config) validateAssist() error {
	if c.Assist.ContextLines <= 0 {
		return fmt.Errorf("context_lines must be positive")
	}

	if c.Assist.MaxFixAttempts <= 0 {
		return fmt.Errorf("max_fix_attempts must be positive")
	}

	if c.Assist.TestCaseCount <= 0 {
		return fmt.Errorf("test_case_count must be positive")
	}

	if c.Assist.DiagnosticSource == "" {
		c.Assist.DiagnosticSource = "CodeBoost"
	}

	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.Shell == "" {
		c.Runner.Shell = "sh"
	}

	if c.Runner.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.Runner.MaxOutputSize < 0 {
		return fmt.Errorf("max_output_size cannot be negative")
	}

	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}

	for i, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Watch.Extensions[i] = "." + ext
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Create the directory if it doesn't exist
	dir := filepath.Dir(c.Database.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if err := checkDirectoryWritable(dir); err != nil {
		return fmt.Errorf("database directory: %w", err)
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy timeout must be positive")
	}

	if c.Database.ConnMaxLife <= 0 {
		return fmt.Errorf("connection max life must be positive")
	}

	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first set variable among keys
func getEnvFirst(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 from the environment variable
func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 from the environment variable
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks and comments
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" && !strings.HasPrefix(item, "#") {
			out = append(out, item)
		}
	}
	return out
}

// checkDirectoryWritable tests if a directory is writable
func checkDirectoryWritable(dir string) error {
	testFile := filepath.Join(dir, fmt.Sprintf("test_write_%d", time.Now().UnixNano()))
	f, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}

	f.Close()
	os.Remove(testFile)

	return nil
}
