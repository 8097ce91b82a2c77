package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AHAAR_CONFIG", "ADDR", "WEB_DIR", "DATABASE_URL", "REDIS_URL", "SESSION_SECRET",
		"SESSION_TTL", "COOKIE_SECURE", "LOGIN_RATE_PER_MINUTE", "LOG_LEVEL", "LOG_FORMAT",
		"AHAAR_DEV", "OIDC_ISSUER_URL", "OIDC_CLIENT_ID", "OIDC_CLIENT_SECRET", "OIDC_REDIRECT_URL",
	} {
		t.Setenv(k, "")
	}
	// Keep a stray .env in the working directory out of the test.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ahaar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", secret)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.LoginRatePerMinute)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.OIDC.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  addr: ":9000"
  cookie_secure: true
dependencies:
  postgres_url: postgres://file/db
  redis_url: redis://file:6379/0
session:
  secret: `+secret+`
  ttl: 8h
security:
  login_rate_per_minute: 0
logging:
  level: debug
  format: console
`)
	t.Setenv("REDIS_URL", "localhost:6380")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6380", cfg.RedisURL, "env overrides file")
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL, "env overrides file")
	assert.Equal(t, 0, cfg.LoginRatePerMinute)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", secret)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", secret)

	_, err := Load(writeFile(t, "session: [unclosed"))
	assert.ErrorContains(t, err, "parse config file")

	_, err = Load(writeFile(t, "session:\n  ttl: forever\n"))
	assert.ErrorContains(t, err, "session.ttl")
}

func TestLoad_DevSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	assert.ErrorContains(t, err, "SESSION_SECRET")

	t.Setenv("AHAAR_DEV", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(cfg.SessionSecret), MinSecretLen)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.SessionSecret = secret

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "SESSION_SECRET"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "ttl"},
		{"negative rate", func(c *Config) { c.LoginRatePerMinute = -1 }, "login rate"},
		{"oidc without redirect", func(c *Config) {
			c.OIDC = OIDC{IssuerURL: "https://accounts.example.com", ClientID: "ahaar"}
		}, "OIDC_REDIRECT_URL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
