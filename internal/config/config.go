// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Host string `env:"HTTP_HOST,default=0.0.0.0"`
	Port int    `env:"HTTP_PORT,default=8000"`
}

// Addr returns the host:port the server binds to.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the MySQL connection. URL, when set, takes
// precedence over the individual components.
type DatabaseConfig struct {
	URL      string `env:"DB_URL"`
	User     string `env:"DB_USER,default=root"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST,default=localhost"`
	Port     int    `env:"DB_PORT,default=3306"`
	Name     string `env:"DB_NAME,default=loanplan"`

	MaxOpenConns    int `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime int `env:"DB_CONN_MAX_LIFETIME_SECONDS,default=3600"`
}

// dsnParams are required by the driver and the migration tool.
const dsnParams = "parseTime=true&multiStatements=true"

// DSN assembles the MySQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		if strings.Contains(c.URL, "?") {
			return c.URL
		}
		return c.URL + "?" + dsnParams
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User, c.Password, c.Host, c.Port, c.Name, dsnParams)
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,default=30m"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=50"`
	Burst             int `env:"RATE_LIMIT_BURST,default=100"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
}

// Origins splits the comma-separated origin list.
func (c CORSConfig) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

// ValidateServe checks settings the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}
