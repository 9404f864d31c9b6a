package config

import "os"

// Config holds the runtime configuration, sourced from the environment
// with command-line flags taking precedence.
type Config struct {
	Addr      string
	DBPath    string
	AdminUser string
	LogPath   string
}

// Load reads configuration from environment variables, falling back to
// defaults. Missing values are never an error; every field has a
// workable default.
func Load() *Config {
	return &Config{
		Addr:      getEnv("COLEGIO_ADDR", ":8080"),
		DBPath:    getEnv("COLEGIO_DB", "colegio.sqlite3"),
		AdminUser: getEnv("COLEGIO_ADMIN_USER", "admin"),
		LogPath:   getEnv("COLEGIO_LOG", ""),
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
