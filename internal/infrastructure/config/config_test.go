package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/pocketledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.BreakdownCacheTTL != 5*time.Minute {
		t.Fatalf("expected default breakdown TTL 5m, got %s", cfg.BreakdownCacheTTL)
	}

	if cfg.RateLimitRPS != 20 || cfg.RateLimitBurst != 40 {
		t.Fatalf("expected default rate limit 20/40, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_CONNECT_TIMEOUT", "45s")
	t.Setenv("BREAKDOWN_CACHE_TTL", "1m")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseConnectTimeout != 45*time.Second {
		t.Fatalf("expected connect timeout override, got %s", cfg.DatabaseConnectTimeout)
	}

	if cfg.BreakdownCacheTTL != time.Minute {
		t.Fatalf("expected breakdown TTL override, got %s", cfg.BreakdownCacheTTL)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}
}

func TestLoadEnvFile(t *testing.T) {
	// t.Setenv restores both variables after the env file sets them.
	t.Setenv("HTTP_PORT", "")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("HTTP_PORT")
	os.Unsetenv("LOG_LEVEL")
	t.Setenv("LOG_FORMAT", "console")

	path := filepath.Join(t.TempDir(), ".env")
	content := "HTTP_PORT=7070\nLOG_LEVEL=debug\nLOG_FORMAT=json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.HTTPPort != "7070" || cfg.LogLevel != "debug" {
		t.Fatalf("expected values from env file, got port=%s level=%s", cfg.HTTPPort, cfg.LogLevel)
	}

	if cfg.LogFormat != "console" {
		t.Fatalf("expected real environment to win over env file, got %s", cfg.LogFormat)
	}
}

func TestLoadAuthRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, config.ErrMissingJWTSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
