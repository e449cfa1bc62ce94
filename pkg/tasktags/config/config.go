package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the runtime settings read from the environment
type Config struct {
	DBDriver string
	DBDSN    string
	DBLog    string
	Port     string
	GinMode  string

	JWTSecret string
	TokenTTL  time.Duration
}

// Load reads a .env file if present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBDriver:  strings.ToLower(getenv("TASKTAGS_DB_DRIVER", DriverSQLite)),
		DBDSN:     getenv("TASKTAGS_DB_DSN", "tasktags.db"),
		DBLog:     strings.ToLower(getenv("TASKTAGS_DB_LOG", "warn")),
		Port:      getenv("PORT", "8080"),
		GinMode:   getenv("GIN_MODE", "release"),
		JWTSecret: getenv("JWT_SECRET", "tasktags-dev-secret-change-in-production"),
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported TASKTAGS_DB_DRIVER %q", cfg.DBDriver)
	}

	switch cfg.DBLog {
	case "silent", "error", "warn", "info":
	default:
		return Config{}, fmt.Errorf("unsupported TASKTAGS_DB_LOG %q", cfg.DBLog)
	}

	ttl, err := time.ParseDuration(getenv("TASKTAGS_TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKTAGS_TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("TASKTAGS_TOKEN_TTL must be positive, got %s", ttl)
	}
	cfg.TokenTTL = ttl

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
