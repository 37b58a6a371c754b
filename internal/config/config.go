package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries everything the binaries need from the environment. It is
// loaded once at startup and passed down; packages never read env vars
// themselves.
type Config struct {
	Addr         string
	Env          string
	PostgresDSN  string
	RedisAddr    string
	JWTSecret    string
	UnlockSecret string
	SendGridKey  string
	MailFromName string
	MailFromAddr string
	LowStockMin  int
}

const envPrefix = "INVENFLOW_"

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

// Load reads configuration from INVENFLOW_* environment variables and
// validates the combinations that cannot be defaulted.
func Load() (Config, error) {
	cfg := Config{
		Addr:         getenv("ADDR", ":8080"),
		Env:          getenv("ENV", "development"),
		PostgresDSN:  getenv("PG_DSN", ""),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		JWTSecret:    getenv("JWT_SECRET", ""),
		UnlockSecret: getenv("UNLOCK_SECRET", ""),
		SendGridKey:  getenv("SENDGRID_KEY", ""),
		MailFromName: getenv("MAIL_FROM_NAME", "InvenFlow"),
		MailFromAddr: getenv("MAIL_FROM", "no-reply@invenflow.org"),
		LowStockMin:  10,
	}
	if v := getenv("LOW_STOCK_THRESHOLD", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %sLOW_STOCK_THRESHOLD %q", envPrefix, v)
		}
		cfg.LowStockMin = n
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, errors.New("INVENFLOW_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}
	if cfg.IsProduction() {
		if cfg.UnlockSecret == "" {
			return Config{}, errors.New("INVENFLOW_UNLOCK_SECRET is required in production")
		}
		if cfg.SendGridKey == "" {
			return Config{}, errors.New("INVENFLOW_SENDGRID_KEY is required in production")
		}
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
