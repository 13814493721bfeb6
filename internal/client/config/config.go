// Package config resolves client settings from flags, the environment and a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/iudanet/rentsync/internal/client/conflict"
)

// Переменные окружения клиента
const (
	EnvServer         = "RENTSYNC_SERVER"
	EnvDB             = "RENTSYNC_DB"
	EnvConflictPolicy = "RENTSYNC_CONFLICT_POLICY"
	EnvLogLevel       = "RENTSYNC_LOG_LEVEL"
	EnvSyncInterval   = "RENTSYNC_SYNC_INTERVAL"
	EnvPassword       = "RENTSYNC_PASSWORD"
)

// Config содержит настройки клиента
type Config struct {
	ServerURL     string
	DBPath        string
	LogLevel      string
	Password      string // пароль для неинтерактивного входа
	Policy        conflict.Strategy
	Args          []string // команда и ее аргументы
	SyncInterval  time.Duration
	Timeout       time.Duration
	ProbeInterval time.Duration
	Retention     time.Duration
	ShowVersion   bool
}

// DefaultDBPath returns the database location under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "rentsync", "client.db")
}

// LoadEnvFile loads variables from path into the process environment.
// A missing file is not an error. Already set variables are kept.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Parse resolves configuration from args; getenv supplies fallbacks for unset flags.
func Parse(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := &Config{}

	flags := flag.NewFlagSet("rentsync", flag.ContinueOnError)
	flags.SetOutput(output)

	flags.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flags.StringVar(&cfg.ServerURL, "server", envOr(getenv, EnvServer, "http://localhost:8080"), "Server URL")
	flags.StringVar(&cfg.DBPath, "db", envOr(getenv, EnvDB, DefaultDBPath()), "Path to local database")
	flags.StringVar(&cfg.LogLevel, "log-level", envOr(getenv, EnvLogLevel, "warn"), "Log level: debug, info, warn, error")
	policy := flags.String("conflict-policy", envOr(getenv, EnvConflictPolicy, string(conflict.Manual)),
		"Conflict policy: manual, keep_local, keep_remote, last_write_wins")
	interval := flags.String("sync-interval", envOr(getenv, EnvSyncInterval, "30s"), "Background sync interval for watch")
	flags.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "Timeout of one remote call")
	flags.DurationVar(&cfg.ProbeInterval, "probe-interval", 10*time.Second, "Connectivity probe interval for watch")
	flags.DurationVar(&cfg.Retention, "retention", 24*time.Hour, "How long synced mutations are kept")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.SyncInterval, err = time.ParseDuration(*interval); err != nil {
		return nil, fmt.Errorf("invalid sync interval %q: %w", *interval, err)
	}

	strategy, err := conflict.ParseStrategy(*policy)
	if err != nil {
		return nil, err
	}
	if strategy != conflict.Manual && !strategy.Automatic() {
		return nil, fmt.Errorf("%w: %q cannot be used as a policy", conflict.ErrUnknownStrategy, strategy)
	}
	cfg.Policy = strategy

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	cfg.Password = getenv(EnvPassword)
	cfg.Args = flags.Args()
	return cfg, nil
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Logger builds the client logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}
