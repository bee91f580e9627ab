// Package config loads tracker configuration. Values are layered: built-in
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for a YAML file when CONFIG_FILE is unset.
var DefaultPath = filepath.Join("config", "tracker.yaml")

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Audit     AuditConfig     `yaml:"audit"`
	Events    EventsConfig    `yaml:"events"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the PostgreSQL connection. An empty DSN selects the
// in-memory stores.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"` // seconds
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// AuthConfig enables bearer token authentication when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer    string   `yaml:"issuer" env:"AUTH_JWT_ISSUER"`
	SkipPaths []string `yaml:"skip_paths"`
}

// Enabled reports whether token auth is on.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"` // semicolon separated in env
}

// RateLimitConfig configures per-client throttling. RequestsPerSecond <= 0
// disables it.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// CacheConfig configures the project read cache.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// AuditConfig configures the request audit trail.
type AuditConfig struct {
	Buffer        int           `yaml:"buffer" env:"AUDIT_BUFFER"`
	File          string        `yaml:"file" env:"AUDIT_FILE"`
	Retention     time.Duration `yaml:"retention" env:"AUDIT_RETENTION"`
	PurgeSchedule string        `yaml:"purge_schedule" env:"AUDIT_PURGE_SCHEDULE"`
}

// EventsConfig sizes the in-process event history.
type EventsConfig struct {
	History int `yaml:"history" env:"EVENTS_HISTORY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			AutoMigrate:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{
			Issuer:    "tracker",
			SkipPaths: []string{"/healthz", "/metrics"},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 50, Burst: 100},
		Cache:     CacheConfig{TTL: 5 * time.Minute},
		Audit: AuditConfig{
			Buffer:        500,
			Retention:     30 * 24 * time.Hour,
			PurgeSchedule: "@daily",
		},
		Events: EventsConfig{History: 256},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (or DefaultPath when present) and the environment.
func Load() (*Config, error) {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()
	if err := mergeFile(cfg, path, explicit); err != nil {
		return nil, err
	}
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath is Load with an explicit file and no environment overlay.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := mergeFile(cfg, path, true); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.DSN != "" && c.Database.Driver == "" {
		return fmt.Errorf("database.driver is required when database.dsn is set")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerSecond
	}
	if c.Events.History <= 0 {
		c.Events.History = 256
	}
	return nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to decode environment: %w", err)
	}
	return nil
}
