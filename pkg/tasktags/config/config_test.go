package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TASKTAGS_DB_DRIVER", "TASKTAGS_DB_DSN", "TASKTAGS_DB_LOG", "PORT", "JWT_SECRET", "TASKTAGS_TOKEN_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("Expected driver %s, got %s", DriverSQLite, cfg.DBDriver)
	}
	if cfg.DBDSN != "tasktags.db" {
		t.Errorf("Expected default DSN, got %s", cfg.DBDSN)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("Expected 24h token TTL, got %s", cfg.TokenTTL)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a development JWT secret")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TASKTAGS_DB_DRIVER", "Postgres")
	t.Setenv("TASKTAGS_DB_DSN", "host=localhost dbname=tags")
	t.Setenv("TASKTAGS_DB_LOG", "info")
	t.Setenv("PORT", "9090")
	t.Setenv("TASKTAGS_TOKEN_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBDriver != DriverPostgres {
		t.Errorf("Expected driver %s, got %s", DriverPostgres, cfg.DBDriver)
	}
	if cfg.DBLog != "info" {
		t.Errorf("Expected db log info, got %s", cfg.DBLog)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("Expected 90m token TTL, got %s", cfg.TokenTTL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "TASKTAGS_DB_DRIVER", "mysql"},
		{"unknown log level", "TASKTAGS_DB_LOG", "verbose"},
		{"bad ttl", "TASKTAGS_TOKEN_TTL", "tomorrow"},
		{"negative ttl", "TASKTAGS_TOKEN_TTL", "-1h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TASKTAGS_DB_DRIVER", "")
			t.Setenv("TASKTAGS_DB_LOG", "")
			t.Setenv("TASKTAGS_TOKEN_TTL", "")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
