// Package config resolves service settings from the environment, optionally
// seeded from a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/govalues/money"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// DB holds the discrete connection parameters used when DATABASE_URL is unset.
type DB struct {
	Name     string
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// Config is the resolved service configuration.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	DB          DB
	Storage     string
	Currency    string
	LogLevel    slog.Level
	LogFormat   string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load(getenv func(string) string, dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	port, err := strconv.Atoi(get("DB_PORT", "5432"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("DB_PORT: invalid port %q", getenv("DB_PORT"))
	}
	cfg := Config{
		ListenAddr:  get("LISTEN_ADDR", ":4000"),
		DatabaseURL: get("DATABASE_URL", ""),
		DB: DB{
			Name:     get("DB_NAME", "invoices"),
			Host:     get("DB_HOST", "localhost"),
			Port:     port,
			User:     get("DB_USER", "postgres"),
			Password: getenv("DB_LOGIN"),
			SSLMode:  get("DB_SSLMODE", ""),
		},
		Storage:   strings.ToLower(get("STORAGE", StoragePostgres)),
		Currency:  strings.ToUpper(get("INVOICE_CURRENCY", "USD")),
		LogLevel:  ParseLogLevel(getenv("LOG_LEVEL")),
		LogFormat: strings.ToLower(get("LOG_FORMAT", "json")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" && c.DB.Password == "" {
			return errors.New("DB_LOGIN or DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("STORAGE: unknown backend %q", c.Storage)
	}
	if _, err := money.ParseCurr(c.Currency); err != nil {
		return fmt.Errorf("INVOICE_CURRENCY: %w", err)
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL assembled from the DB parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DB.User, c.DB.Password),
		Host:   net.JoinHostPort(c.DB.Host, strconv.Itoa(c.DB.Port)),
		Path:   "/" + c.DB.Name,
	}
	if c.DB.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DB.SSLMode}}.Encode()
	}
	return u.String()
}

// ParseLogLevel maps env values to slog levels, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
