package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	StepDelay      time.Duration `mapstructure:"STEP_DELAY"`
	ExportDelay    time.Duration `mapstructure:"EXPORT_DELAY"`
	SessionStore   string        `mapstructure:"SESSION_STORE"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	RedisPoolSize  int           `mapstructure:"REDIS_POOL_SIZE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RunHistory     int           `mapstructure:"RUN_HISTORY"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STEP_DELAY", "EXPORT_DELAY",
	"SESSION_STORE", "SESSION_TTL", "SESSION_SECRET", "REDIS_URL", "REDIS_POOL_SIZE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"RUN_HISTORY",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STEP_DELAY", "1200ms")
	v.SetDefault("EXPORT_DELAY", "2s")
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("RUN_HISTORY", 100)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LongestRun is how long the longest step script blocks a submission.
func (c *Config) LongestRun() time.Duration {
	return time.Duration(extraction.MaxSteps()) * c.StepDelay
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.StepDelay < 0 {
		return fmt.Errorf("STEP_DELAY must not be negative, got %s", c.StepDelay)
	}
	if c.ExportDelay < 0 {
		return fmt.Errorf("EXPORT_DELAY must not be negative, got %s", c.ExportDelay)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	// Submissions and exports block their request; the deadline must not
	// fire while the handler is still running.
	if run := c.LongestRun(); c.RequestTimeout <= run {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed the longest run of %d steps x STEP_DELAY (%s)",
			c.RequestTimeout, extraction.MaxSteps(), run)
	}
	if c.RequestTimeout <= c.ExportDelay {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed EXPORT_DELAY (%s)", c.RequestTimeout, c.ExportDelay)
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.SessionStore)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	if c.SessionSecret != "" {
		if _, err := decodeSecret(c.SessionSecret); err != nil {
			return err
		}
	}
	return nil
}

// SessionSecretBytes returns the cookie signing key. Outside production an
// unset secret is replaced by a random one, reported through generated;
// sessions then do not survive a restart.
func (c *Config) SessionSecretBytes() (secret []byte, generated bool, err error) {
	if c.SessionSecret != "" {
		secret, err = decodeSecret(c.SessionSecret)
		return secret, false, err
	}
	if c.IsProduction() {
		return nil, false, fmt.Errorf("SESSION_SECRET is required in production")
	}
	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, true, nil
}

func decodeSecret(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("SESSION_SECRET is not valid hex: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be 32 bytes (64 hex chars), got %d bytes", len(b))
	}
	return b, nil
}
