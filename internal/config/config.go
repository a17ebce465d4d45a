// internal/config/config.go
//
// Process configuration, read from the environment (optionally seeded from a
// .env file).
//
// Environment variables:
//   HOST / PORT                  listen address (default 127.0.0.1:8080)
//   TREASURE_PEPPER              secret mixed into code digests and token keys (required)
//   TREASURE_DEV_MODE            allow the well-known development pepper
//   TREASURE_SESSION_MODE        "token" (default) or "memory"
//   TREASURE_SESSION_TTL         idle/absolute session lifetime (default 30m)
//   TREASURE_SWEEP_INTERVAL      memory-store eviction period (default 1m)
//   TREASURE_RATE_LIMITER        "window" (default) or "sliding"
//   TREASURE_RATE_CAPACITY       attempts per window (default 20)
//   TREASURE_RATE_WINDOW         window length (default 60s)
//   TREASURE_STAGES_FILE         YAML/TOML catalog; embedded sample when empty
//   TREASURE_LEDGER_DSN          SQLite path for the progress ledger; disabled when empty
//   CLIENT_ORIGIN                allowed CORS origin (default http://localhost:5173)
//   LOG_LEVEL                    zerolog level (default info)

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevPepper is the placeholder secret the embedded sample catalog was built with.
// It is public knowledge and only accepted in dev mode.
const DevPepper = "change-this-pepper-before-real-event"

// Session storage strategies.
const (
	SessionToken  = "token"
	SessionMemory = "memory"
)

// Rate limiter policies.
const (
	LimiterWindow  = "window"
	LimiterSliding = "sliding"
)

// ErrNoSecret is returned when no pepper is configured outside dev mode.
var ErrNoSecret = errors.New("config: TREASURE_PEPPER must be set (or TREASURE_DEV_MODE=true for local play)")

// Config is the typed process configuration.
type Config struct {
	Host          string        `env:"HOST" envDefault:"127.0.0.1"`
	Port          string        `env:"PORT" envDefault:"8080"`
	Pepper        string        `env:"TREASURE_PEPPER"`
	DevMode       bool          `env:"TREASURE_DEV_MODE"`
	SessionMode   string        `env:"TREASURE_SESSION_MODE" envDefault:"token"`
	SessionTTL    time.Duration `env:"TREASURE_SESSION_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"TREASURE_SWEEP_INTERVAL" envDefault:"1m"`
	Limiter       string        `env:"TREASURE_RATE_LIMITER" envDefault:"window"`
	RateCapacity  int           `env:"TREASURE_RATE_CAPACITY" envDefault:"20"`
	RateWindow    time.Duration `env:"TREASURE_RATE_WINDOW" envDefault:"60s"`
	StagesFile    string        `env:"TREASURE_STAGES_FILE"`
	LedgerDSN     string        `env:"TREASURE_LEDGER_DSN"`
	ClientOrigin  string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`

	// InsecurePepper is set by Validate when dev mode fell back to DevPepper.
	InsecurePepper bool
}

// Load reads .env files (missing files are fine) and parses the environment.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse reads the environment into a validated Config.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate normalizes fields and enforces the secret policy.
func (c *Config) Validate() error {
	c.Pepper = strings.TrimSpace(c.Pepper)
	c.SessionMode = strings.ToLower(strings.TrimSpace(c.SessionMode))
	c.Limiter = strings.ToLower(strings.TrimSpace(c.Limiter))

	switch {
	case c.Pepper == "" && c.DevMode:
		c.Pepper = DevPepper
		c.InsecurePepper = true
	case c.Pepper == "":
		return ErrNoSecret
	case c.Pepper == DevPepper && !c.DevMode:
		return fmt.Errorf("config: TREASURE_PEPPER is the public development placeholder: %w", ErrNoSecret)
	case c.Pepper == DevPepper:
		c.InsecurePepper = true
	}

	if c.SessionMode != SessionToken && c.SessionMode != SessionMemory {
		return fmt.Errorf("config: TREASURE_SESSION_MODE must be %q or %q", SessionToken, SessionMemory)
	}
	if c.Limiter != LimiterWindow && c.Limiter != LimiterSliding {
		return fmt.Errorf("config: TREASURE_RATE_LIMITER must be %q or %q", LimiterWindow, LimiterSliding)
	}
	if c.SessionTTL <= 0 || c.RateWindow <= 0 || c.SweepInterval <= 0 {
		return errors.New("config: durations must be positive")
	}
	if c.RateCapacity <= 0 {
		return errors.New("config: TREASURE_RATE_CAPACITY must be positive")
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string { return net.JoinHostPort(c.Host, c.Port) }
