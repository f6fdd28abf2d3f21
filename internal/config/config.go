// Package config provides environment-driven configuration and the form
// field schema shared by validation and the HTTP layer.
package config

import (
	"os"
	"time"
)

// Config holds all runtime configuration values.
type Config struct {
	HTTPAddr          string
	StoragePath       string
	SchemaPath        string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	RemoteTimeout     time.Duration
	LogLevel          string
	AllowedOrigins    []string
}

// Load creates configuration from environment variables with development
// defaults.
func Load() *Config {
	return &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StoragePath:       getEnv("STORAGE_PATH", "hrdhat.db"),
		SchemaPath:        getEnv("FORM_SCHEMA_PATH", ""),
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		RemoteTimeout:     getDuration("REMOTE_TIMEOUT", 10*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:    []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},
	}
}

// getEnv gets an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
