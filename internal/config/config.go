// Package config handles application configuration loading from
// environment variables. It provides a centralized Config struct used
// across the application.
package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration values loaded from the
// environment. Postgres, Valkey, and S3 are optional collaborators:
// leaving their variables unset disables the corresponding feature.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Provider credentials. A missing key surfaces as a configuration
	// error on the first call to that provider, never a silent no-op.
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	GeminiBaseURL string

	// Valkey (Redis-compatible) conversation store. Empty host means
	// histories are kept in process memory.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// PostgreSQL generation history. Empty host disables recording.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// S3-compatible archive for generated images. Empty endpoint
	// disables archiving.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
}

// Load reads configuration from environment variables, applying
// defaults for development where appropriate. Returns an error if no
// provider key is configured at all — a gateway that can reach no
// provider is a misconfiguration worth failing loudly on.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		DBHost:     os.Getenv("POSTGRES_HOST"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "gengate"),
		DBPassword: os.Getenv("POSTGRES_PASSWORD"),
		DBName:     envOrDefault("POSTGRES_DB", "gengate"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
	}

	if cfg.Env == "production" && cfg.OpenAIKey == "" && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("at least one of OPENAI_API_KEY or GEMINI_API_KEY must be set in production")
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if
// unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
