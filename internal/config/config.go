package config

import (
	"os"
	"time"
)

type Config struct {
	Environment string
	DatabaseURL string
	TablePrefix string
	// LockWait bounds how long a structure mutation waits for its
	// collection's lock before giving up.
	LockWait time.Duration
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ARBOR_ENV", "dev")

	return &Config{
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		LockWait:    getDurationEnv("ARBOR_LOCK_WAIT", DefaultLockWait),
		// Debug defaults to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv parses a duration env var, falling back to defaultValue
// when the variable is unset or malformed.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
