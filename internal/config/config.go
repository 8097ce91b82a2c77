// Package config resolves runtime settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MinSecretLen matches the minimum HMAC key length of the session codec.
const MinSecretLen = 32

// OIDC holds single sign-on provider settings. SSO is enabled when IssuerURL
// and ClientID are both set.
type OIDC struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether SSO is configured.
func (o OIDC) Enabled() bool {
	return o.IssuerURL != "" && o.ClientID != ""
}

// Config is the resolved runtime configuration.
type Config struct {
	Addr   string
	WebDir string

	// DatabaseURL selects PostgreSQL; empty keeps everything in memory.
	DatabaseURL string
	// RedisURL selects Redis for lockout and revocation state.
	RedisURL string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	LoginRatePerMinute int

	LogLevel  string
	LogFormat string

	// Dev relaxes secret requirements for local runs.
	Dev bool

	OIDC OIDC
}

// configFile mirrors the YAML schema.
type configFile struct {
	Server struct {
		Addr         string `yaml:"addr"`
		WebDir       string `yaml:"web_dir"`
		CookieSecure *bool  `yaml:"cookie_secure"`
	} `yaml:"server"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Session struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"session"`
	Security struct {
		LoginRatePerMinute *int `yaml:"login_rate_per_minute"`
	} `yaml:"security"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	OIDC struct {
		IssuerURL    string `yaml:"issuer_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"oidc"`
	Dev bool `yaml:"dev"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:               ":8080",
		WebDir:             "web",
		SessionTTL:         24 * time.Hour,
		LoginRatePerMinute: 20,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads .env if present, then resolves defaults -> file -> env. An empty
// path reads AHAAR_CONFIG; a missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("AHAAR_CONFIG")
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Addr != "" {
		c.Addr = f.Server.Addr
	}
	if f.Server.WebDir != "" {
		c.WebDir = f.Server.WebDir
	}
	if f.Server.CookieSecure != nil {
		c.CookieSecure = *f.Server.CookieSecure
	}
	if f.Dependencies.PostgresURL != "" {
		c.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		c.RedisURL = f.Dependencies.RedisURL
	}
	if f.Session.Secret != "" {
		c.SessionSecret = f.Session.Secret
	}
	if f.Session.TTL != "" {
		ttl, err := time.ParseDuration(f.Session.TTL)
		if err != nil {
			return fmt.Errorf("parse session.ttl: %w", err)
		}
		c.SessionTTL = ttl
	}
	if f.Security.LoginRatePerMinute != nil {
		c.LoginRatePerMinute = *f.Security.LoginRatePerMinute
	}
	if f.Logging.Level != "" {
		c.LogLevel = f.Logging.Level
	}
	if f.Logging.Format != "" {
		c.LogFormat = f.Logging.Format
	}
	if f.OIDC.IssuerURL != "" {
		c.OIDC.IssuerURL = f.OIDC.IssuerURL
	}
	if f.OIDC.ClientID != "" {
		c.OIDC.ClientID = f.OIDC.ClientID
	}
	if f.OIDC.ClientSecret != "" {
		c.OIDC.ClientSecret = f.OIDC.ClientSecret
	}
	if f.OIDC.RedirectURL != "" {
		c.OIDC.RedirectURL = f.OIDC.RedirectURL
	}
	c.Dev = c.Dev || f.Dev
	return nil
}

func (c *Config) applyEnv() error {
	c.Addr = envOrDefault("ADDR", c.Addr)
	c.WebDir = envOrDefault("WEB_DIR", c.WebDir)
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = envOrDefault("REDIS_URL", c.RedisURL)
	c.SessionSecret = envOrDefault("SESSION_SECRET", c.SessionSecret)
	c.CookieSecure = envBool("COOKIE_SECURE", c.CookieSecure)
	c.LoginRatePerMinute = envInt("LOGIN_RATE_PER_MINUTE", c.LoginRatePerMinute)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
	c.Dev = envBool("AHAAR_DEV", c.Dev)

	c.OIDC.IssuerURL = envOrDefault("OIDC_ISSUER_URL", c.OIDC.IssuerURL)
	c.OIDC.ClientID = envOrDefault("OIDC_CLIENT_ID", c.OIDC.ClientID)
	c.OIDC.ClientSecret = envOrDefault("OIDC_CLIENT_SECRET", c.OIDC.ClientSecret)
	c.OIDC.RedirectURL = envOrDefault("OIDC_REDIRECT_URL", c.OIDC.RedirectURL)

	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse SESSION_TTL: %w", err)
		}
		c.SessionTTL = ttl
	}
	return nil
}

// finalize fills the dev secret and validates the result.
func (c *Config) finalize() error {
	if c.SessionSecret == "" && c.Dev {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.SessionSecret = secret
	}
	return c.Validate()
}

// Validate checks settings that would make the server insecure or unusable.
func (c Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < MinSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLen))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.LoginRatePerMinute < 0 {
		errs = append(errs, errors.New("login rate must not be negative"))
	}
	if c.OIDC.Enabled() && c.OIDC.RedirectURL == "" {
		errs = append(errs, errors.New("OIDC_REDIRECT_URL is required when SSO is enabled"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, MinSecretLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
