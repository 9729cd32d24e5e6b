// Package config provides application configuration loaded from an optional
// config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
}

// BackendConfig points at the blood-bank REST API. BaseURL includes the API
// prefix.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds the console's own database settings.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // postgres | sqlite
	DSN        string `mapstructure:"dsn"`
	Migrations bool   `mapstructure:"migrations"`
	Seed       bool   `mapstructure:"seed"`
	Debug      bool   `mapstructure:"debug"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RefreshConfig drives dashboard polling and liveness checks.
type RefreshConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	LivenessInterval time.Duration `mapstructure:"liveness_interval"`
	LogoutDelay      time.Duration `mapstructure:"logout_delay"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AppConfig struct {
	Dev bool `mapstructure:"dev"`
}

var defaults = map[string]any{
	"server.port":               "8080",
	"server.read_timeout":       15,
	"server.write_timeout":      15,
	"server.idle_timeout":       60,
	"backend.timeout":           "15s",
	"database.driver":           "sqlite",
	"database.dsn":              "file:bloodbank.db?cache=shared",
	"database.migrations":       false,
	"database.seed":             true,
	"session.ttl":               "24h",
	"refresh.interval":          "30s",
	"refresh.liveness_interval": "30s",
	"refresh.logout_delay":      "2s",
	"cors.allowed_origins":      []string{"http://localhost:3000"},
	"log.level":                 "info",
	"log.format":                "text",
	"app.dev":                   false,
}

var envBindings = map[string]string{
	"server.port":          "PORT",
	"backend.base_url":     "BACKEND_BASE_URL",
	"backend.timeout":      "BACKEND_TIMEOUT",
	"database.driver":      "DB_DRIVER",
	"database.dsn":         "DATABASE_DSN",
	"database.migrations":  "MIGRATIONS",
	"database.seed":        "DB_SEED",
	"database.debug":       "DB_DEBUG",
	"session.secret":       "SESSION_SECRET",
	"session.ttl":          "SESSION_TTL",
	"refresh.interval":     "REFRESH_INTERVAL",
	"app.dev":              "DEV",
	"log.level":            "LOG_LEVEL",
	"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
}

// Load reads config.yaml from . or .. when present, then environment
// variables. Precedence: env var > config file > default.
func Load() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, readFile bool) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if readFile {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	c.CORS.AllowedOrigins = splitOrigins(c.CORS.AllowedOrigins)
	c.fillDurations()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("config error: backend.base_url/BACKEND_BASE_URL required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config error: unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}

// fillDurations replaces non-positive durations by their defaults, with a
// warning, so a typo never disables polling.
func (c *Config) fillDurations() {
	fix := func(name string, d *time.Duration, def time.Duration) {
		if *d <= 0 {
			slog.Warn("invalid duration, using default", "key", name, "default", def)
			*d = def
		}
	}
	fix("backend.timeout", &c.Backend.Timeout, 15*time.Second)
	fix("session.ttl", &c.Session.TTL, 24*time.Hour)
	fix("refresh.interval", &c.Refresh.Interval, 30*time.Second)
	fix("refresh.liveness_interval", &c.Refresh.LivenessInterval, 30*time.Second)
	fix("refresh.logout_delay", &c.Refresh.LogoutDelay, 2*time.Second)
}

// an env var gives a single comma separated string
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string { return ":" + c.Server.Port }

// SlogLevel maps log.level to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
