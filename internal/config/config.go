package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	DBPath  string
	APIPort string

	// LLM provider for inbox classification.
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	// WatchDir is an optional drop folder; markdown files placed there are
	// captured into the inbox. Empty disables the watcher.
	WatchDir string

	LogLevel  string
	LogFormat string
}

// defaultModels maps each provider to the model used when LLM_MODEL is unset.
var defaultModels = map[string]string{
	"anthropic":  "claude-3-5-haiku-latest",
	"openai":     "gpt-4o-mini",
	"openrouter": "openai/gpt-4o-mini",
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotenv()

	provider := getEnv("LLM_PROVIDER", "anthropic")
	model, ok := defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("LLM_PROVIDER must be one of anthropic, openai, openrouter, got %q", provider)
	}
	model = getEnv("LLM_MODEL", model)

	cfg := &Config{
		DBPath:      getEnv("DB_PATH", "./data/nous.db"),
		APIPort:     getEnv("API_PORT", "9000"),
		LLMProvider: provider,
		LLMModel:    model,
		LLMAPIKey:   apiKeyFor(provider),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		WatchDir:    getEnv("WATCH_DIR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// Create the data directory if it doesn't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// RequireAPIKey reports an error when no key is configured for the selected
// provider. Load does not enforce this so that commands which never call the
// LLM can run without one; callers check it before building a provider client.
func (c *Config) RequireAPIKey() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("no API key set for provider %s (set %s or LLM_API_KEY)", c.LLMProvider, keyEnvName(c.LLMProvider))
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level, defaulting to
// info for anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// apiKeyFor resolves the provider-specific key env var, falling back to the
// generic LLM_API_KEY.
func apiKeyFor(provider string) string {
	if key := os.Getenv(keyEnvName(provider)); key != "" {
		return key
	}
	return os.Getenv("LLM_API_KEY")
}

func keyEnvName(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// loadDotenv loads a .env file from the current directory or the nearest
// ancestor that has one. Variables already set in the environment win.
func loadDotenv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
