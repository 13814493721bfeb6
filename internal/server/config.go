package server

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

// Переменные окружения сервера
const (
	EnvAddr      = "RENTSYNC_ADDR"
	EnvDB        = "RENTSYNC_SERVER_DB"
	EnvJWTSecret = "RENTSYNC_JWT_SECRET"
	EnvLogLevel  = "RENTSYNC_LOG_LEVEL"
)

// minSecretLen минимальная длина ключа подписи HS256
const minSecretLen = 32

// ErrSecretRequired возвращается без ключа подписи токенов
var ErrSecretRequired = errors.New("jwt secret is required")

// Config содержит настройки сервера
type Config struct {
	Addr            string
	DBPath          string
	LogLevel        string
	JWTSecret       string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration
	AuthRate        int           // AuthRate запросов к /auth с одного адреса за AuthWindow
	AuthWindow      time.Duration
	ShowVersion     bool
}

// ParseConfig reads server flags from args with environment fallbacks.
// The JWT secret comes only from the environment so it never shows up in process lists.
func ParseConfig(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := &Config{}

	flags := flag.NewFlagSet("rentsync-server", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flags.StringVar(&cfg.Addr, "addr", envOr(getenv, EnvAddr, ":8080"), "Listen address")
	flags.StringVar(&cfg.DBPath, "db", envOr(getenv, EnvDB, "rentsync-server.db"), "SQLite database path")
	flags.StringVar(&cfg.LogLevel, "log-level", envOr(getenv, EnvLogLevel, "info"), "Log level: debug, info, warn, error")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "Access token lifetime")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	flags.IntVar(&cfg.AuthRate, "auth-rate", 10, "Credential requests allowed per address and window")
	flags.DurationVar(&cfg.AuthWindow, "auth-window", time.Minute, "Credential rate limit window")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}

	cfg.JWTSecret = getenv(EnvJWTSecret)
	if len(cfg.JWTSecret) < minSecretLen {
		return nil, fmt.Errorf("%w: set %s to at least %d characters", ErrSecretRequired, EnvJWTSecret, minSecretLen)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token-ttl must be positive")
	}
	if cfg.AuthRate <= 0 || cfg.AuthWindow <= 0 {
		return nil, fmt.Errorf("auth-rate and auth-window must be positive")
	}

	return cfg, nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}
