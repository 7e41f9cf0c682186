package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// DefaultConfigDir returns ~/.codeboost
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".codeboost"), nil
}

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	cfg.configDir = configDir

	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// ENV_FILE_PATH wins over the config directory, which wins over ./.env.
	// godotenv never overrides variables that are already set.
	if envFilePath := getEnvString("ENV_FILE_PATH", ""); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else if err := godotenv.Load(configFilePath); err != nil {
		_ = godotenv.Load()
	}

	cfg.Gemini = GeminiConfig{
		APIKey:            getEnvFirst("", "CODEBOOST_GEMINI_API_KEY", "GEMINI_API_KEY"),
		BaseURL:           getEnvString("CODEBOOST_GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		APIVersion:        getEnvString("CODEBOOST_GEMINI_API_VERSION", "v1beta"),
		Model:             getEnvString("CODEBOOST_GEMINI_MODEL", "gemini-2.0-flash"),
		Timeout:           getEnvDuration("CODEBOOST_GEMINI_TIMEOUT", 60*time.Second),
		MaxRetries:        getEnvInt("CODEBOOST_GEMINI_MAX_RETRIES", 3),
		MaxTokens:         getEnvInt("CODEBOOST_GEMINI_MAX_TOKENS", 0),
		Temperature:       getEnvFloat("CODEBOOST_GEMINI_TEMPERATURE", 0),
		TopP:              getEnvFloat("CODEBOOST_GEMINI_TOP_P", 0),
		TopK:              getEnvInt("CODEBOOST_GEMINI_TOP_K", 0),
		RequestsPerMinute: getEnvInt("CODEBOOST_GEMINI_REQUESTS_PER_MINUTE", 15),
		BurstLimit:        getEnvInt("CODEBOOST_GEMINI_BURST_LIMIT", 2),
	}

	cfg.Assist = AssistConfig{
		ContextLines:     getEnvInt("CODEBOOST_ASSIST_CONTEXT_LINES", 5),
		MaxFixAttempts:   getEnvInt("CODEBOOST_ASSIST_MAX_FIX_ATTEMPTS", 5),
		TestCaseCount:    getEnvInt("CODEBOOST_ASSIST_TEST_CASE_COUNT", 15),
		DiagnosticSource: getEnvString("CODEBOOST_ASSIST_DIAGNOSTIC_SOURCE", "CodeBoost"),
	}

	cfg.Runner = RunnerConfig{
		Shell:         getEnvString("CODEBOOST_RUNNER_SHELL", "sh"),
		Timeout:       getEnvDuration("CODEBOOST_RUNNER_TIMEOUT", 30*time.Second),
		MaxOutputSize: getEnvInt64("CODEBOOST_RUNNER_MAX_OUTPUT_SIZE", 64*1024),
	}

	cfg.Watch = WatchConfig{
		Debounce:       getEnvDuration("CODEBOOST_WATCH_DEBOUNCE", time.Second),
		IgnorePatterns: getEnvList("CODEBOOST_WATCH_IGNORE", []string{".git", "node_modules", ".idea", ".vscode", "__pycache__", "*.swp", "*.tmp", "*~"}),
		Extensions:     getEnvList("CODEBOOST_WATCH_EXTENSIONS", nil),
	}

	cfg.Database = DatabaseConfig{
		Path:            getEnvString("CODEBOOST_DB_PATH", filepath.Join(configDir, "codeboost.db")),
		BusyTimeout:     getEnvInt("CODEBOOST_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("CODEBOOST_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("CODEBOOST_DB_SYNCHRONOUS_MODE", "NORMAL"),
		CacheSize:       getEnvInt("CODEBOOST_DB_CACHE_SIZE", -16000), // ~16MB
		ForeignKeys:     getEnvBool("CODEBOOST_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("CODEBOOST_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("CODEBOOST_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("CODEBOOST_LOG_LEVEL", "info"),
		Format:     getEnvString("CODEBOOST_LOG_FORMAT", "text"),
		Output:     getEnvString("CODEBOOST_LOG_OUTPUT", filepath.Join(configDir, "codeboost.log")),
		AddSource:  getEnvBool("CODEBOOST_LOG_ADD_SOURCE", true),
		TimeFormat: getTimeFormat(getEnvString("CODEBOOST_LOG_TIME_FORMAT", "RFC3339")),
	}

	return cfg, cfg.Validate()
}

// getTimeFormat converts a named time format to its actual format string
func getTimeFormat(name string) string {
	switch name {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Kitchen":
		return time.Kitchen
	case "DateTime":
		return time.DateTime
	case "DateTimeMS":
		return "2006-01-02 15:04:05.000"
	case "Time":
		return time.TimeOnly
	default:
		return name
	}
}
