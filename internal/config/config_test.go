package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN)
	assert.False(t, cfg.Auth.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
  read_timeout: 5s
database:
  dsn: postgres://tracker@localhost/tracker?sslmode=disable
  auto_migrate: false
auth:
  jwt_secret: s3cret
rate_limit:
  requests_per_second: 10
  burst: 0
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset values keep defaults")
	assert.Equal(t, "postgres://tracker@localhost/tracker?sslmode=disable", cfg.Database.DSN)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, 10, cfg.RateLimit.Burst, "burst falls back to rps")
}

func TestLoadFromPath_Errors(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromPath(writeFile(t, "server: [not a map"))
	assert.Error(t, err)

	_, err = LoadFromPath(writeFile(t, "server:\n  port: 70000\n"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9090\n")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env@db/tracker")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example;https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env@db/tracker", cfg.Database.DSN)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	old := DefaultPath
	DefaultPath = filepath.Join(t.TempDir(), "absent.yaml")
	defer func() { DefaultPath = old }()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8081}
	assert.Equal(t, "127.0.0.1:8081", s.Addr())
}
