package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	SlackBotToken    string
	OpenAIAPIKey     string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	DefaultChannelID string

	// Retrieval tuning. TopK bounds the vector search; matches at or below
	// SimilarityThreshold are discarded before prompt assembly.
	TopK                int
	SimilarityThreshold float64
	EmbeddingDimension  int
	IngestConcurrency   int

	LogLevel    string
	LogFormat   string
	Environment string
}

func Load() *Config {
	// .env is a development convenience; a missing file is not an error.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", "postgres://localhost/chansage?sslmode=disable"),
		SlackBotToken:    os.Getenv("SLACK_BOT_TOKEN"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		QdrantURL:        getEnvOrDefault("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: getEnvOrDefault("QDRANT_COLLECTION", "channel_messages"),
		DefaultChannelID: os.Getenv("DEFAULT_CHANNEL_ID"),

		TopK:                getEnvIntOrDefault("RAG_TOP_K", 3),
		SimilarityThreshold: getEnvFloatOrDefault("RAG_SIMILARITY_THRESHOLD", 0.5),
		EmbeddingDimension:  getEnvIntOrDefault("EMBEDDING_DIMENSION", 1536),
		IngestConcurrency:   getEnvIntOrDefault("INGEST_CONCURRENCY", 5),

		LogLevel:    getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "text"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.SlackBotToken == "" {
		problems = append(problems, "SLACK_BOT_TOKEN is required")
	}
	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		problems = append(problems, "SLACK_BOT_TOKEN must start with 'xoxb-'")
	}
	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.QdrantURL == "" {
		problems = append(problems, "QDRANT_URL is required")
	}
	if c.DefaultChannelID == "" {
		problems = append(problems, "DEFAULT_CHANNEL_ID is required")
	}

	if c.TopK <= 0 {
		problems = append(problems, "RAG_TOP_K must be positive")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		problems = append(problems, "RAG_SIMILARITY_THRESHOLD must be in [0, 1)")
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, "EMBEDDING_DIMENSION must be positive")
	}
	if c.IngestConcurrency <= 0 {
		problems = append(problems, "INGEST_CONCURRENCY must be positive")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		problems = append(problems, "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, "LOG_FORMAT must be one of: text, json")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
