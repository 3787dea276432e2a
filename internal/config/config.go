package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	RoastBackend    string
	MaxOutputTokens int
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	ClaudeAPIKey    string
	ClaudeModel     string
	OllamaHost      string
	OllamaModel     string
	GeminiAPIKey    string
	GeminiModel     string
	SessionBackend  string
	SessionTTL      time.Duration
	RedisURL        string
	DBPath          string
	LogLevel        string
	LogFile         string
	LogFormat       string
}

// Load reads the optional .env file named by ENV_FILE (default ".env") and
// then the process environment. Variables already set in the environment win
// over the file.
func Load() *Config {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load env file", "error", err)
	}

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		RoastBackend:    getEnv("ROAST_BACKEND", "openai"),
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 1000),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llava"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		SessionBackend:  getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:      getEnvDuration("SESSION_TTL", time.Hour),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DBPath:          getEnv("DB_PATH", "/data/roastmail.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
}

// APIKey returns the credential for the configured backend. It is empty when
// unset; requests then fail authentication at the remote service.
func (c *Config) APIKey() string {
	switch c.RoastBackend {
	case "openai":
		return c.OpenAIAPIKey
	case "claude":
		return c.ClaudeAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// NeedsAPIKey reports whether the configured backend authenticates with a key.
func (c *Config) NeedsAPIKey() bool {
	return c.RoastBackend != "ollama"
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", val)
		return defaultVal
	}
	return d
}
