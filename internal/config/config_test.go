package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_URL", "DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME",
		"HTTP_HOST", "HTTP_PORT", "JWT_SECRET", "ACCESS_TOKEN_TTL",
		"LOG_LEVEL", "LOG_FORMAT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr: %s", cfg.HTTP.Addr())
	}
	if cfg.Database.User != "root" || cfg.Database.Host != "localhost" || cfg.Database.Port != 3306 {
		t.Fatalf("unexpected db defaults: %+v", cfg.Database)
	}
	if cfg.Database.Name != "loanplan" {
		t.Fatalf("unexpected db name: %s", cfg.Database.Name)
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if got := cfg.CORS.Origins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("unexpected cors defaults: %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("JWT_SECRET", "k")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr() != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr: %s", cfg.HTTP.Addr())
	}
	if got := cfg.CORS.Origins(); len(got) != 2 || got[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("validate with secret: %v", err)
	}
}

func TestValidateServeRequiresSecret(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("missing JWT_SECRET accepted")
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{User: "root", Password: "pw", Host: "db", Port: 3306, Name: "loanplan"}
	got := cfg.DSN()
	want := "root:pw@tcp(db:3306)/loanplan?parseTime=true&multiStatements=true"
	if got != want {
		t.Fatalf("dsn mismatch:\n got %s\nwant %s", got, want)
	}

	cfg.URL = "root:pw@tcp(db:3306)/other"
	if got := cfg.DSN(); !strings.HasPrefix(got, cfg.URL+"?") {
		t.Fatalf("url dsn missing params: %s", got)
	}
	if !strings.Contains(cfg.DSN(), "parseTime=true") || !strings.Contains(cfg.DSN(), "multiStatements=true") {
		t.Fatalf("required driver params missing: %s", cfg.DSN())
	}

	cfg.URL = "root:pw@tcp(db:3306)/other?parseTime=true"
	if got := cfg.DSN(); got != cfg.URL {
		t.Fatalf("explicit params must not be rewritten: %s", got)
	}
}
