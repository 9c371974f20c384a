package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port         string
	DBPath       string
	SecureCookie bool
	SessionTTL   time.Duration
}

// Load reads configuration from the environment, applying defaults for
// anything unset. Sessions default to a fixed one-hour lifetime.
func Load() Config {
	cfg := Config{
		Port:         fallback(os.Getenv("PORT"), "8080"),
		DBPath:       fallback(os.Getenv("DB_PATH"), "budget.db"),
		SecureCookie: parseBool(os.Getenv("SECURE_COOKIE"), false),
		SessionTTL:   time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}

	return cfg
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseBool(value string, def bool) bool {
	if strings.TrimSpace(value) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}
