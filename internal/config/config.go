// Package config loads service configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values. Every field has an env-style
// key and a default; nothing here is required except the credentials of
// at least one LLM provider (enforced by the selector, not here).
type Config struct {
	// HTTP server
	HTTPPort string

	// LLM provider credentials and models, in preference order.
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaHost      string
	OllamaModel     string

	// SurrealDB vector index
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embedding
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int

	// Conversation behavior
	MaxConversationHistory int
	MaxResponseLength      int
	ResponseTimeout        time.Duration
	MaxCharactersPerGroup  int

	// Character seeding
	CharacterSeedFile string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first if present; real environment
// variables win over file values.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPPort: getEnv("PERSONA_PORT", "8000"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.2"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "persona"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "memories"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("PERSONA_EMBED_PROVIDER", "local"),
		EmbedModel:     getEnv("PERSONA_EMBED_MODEL", ""),
		EmbedDimension: getEnvInt("PERSONA_EMBED_DIMENSION", 768),

		MaxConversationHistory: getEnvInt("MAX_CONVERSATION_HISTORY", 50),
		MaxResponseLength:      getEnvInt("MAX_RESPONSE_LENGTH", 500),
		ResponseTimeout:        time.Duration(getEnvInt("RESPONSE_TIMEOUT", 30)) * time.Second,
		MaxCharactersPerGroup:  getEnvInt("MAX_CHARACTERS_PER_GROUP", 10),

		CharacterSeedFile: getEnv("PERSONA_CHARACTER_SEED", ""),

		LogFile:  getEnv("PERSONA_LOG_FILE", "/tmp/persona.log"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
