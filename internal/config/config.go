package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server settings, read from the environment.
type Config struct {
	Port string

	// DBDriver selects the store adapter: "sqlite" or "postgres".
	DBDriver string
	// DBPath is the sqlite database file.
	DBPath string
	// DatabaseURL is the postgres connection string.
	DatabaseURL string

	SecureCookie    bool
	SessionDuration time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBPath:          getEnv("DB_PATH", "expenses.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SecureCookie:    getEnvBool("SECURE_COOKIE", false),
		SessionDuration: time.Duration(getEnvInt("SESSION_DURATION_HOURS", 30*24)) * time.Hour,
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}

	if cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("SESSION_DURATION_HOURS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
