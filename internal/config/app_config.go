package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8910.
	Port int `envconfig:"PORT" default:"8910"`

	// DataDir is the root data directory. Defaults to ~/.retroshelf.
	DataDir string `envconfig:"RETROSHELF_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// SMTP delivery settings for fired reminders. When SMTPEnabled is false
	// reminders are delivered to the structured log instead.
	SMTPEnabled    bool   `envconfig:"SMTP_ENABLED" default:"false"`
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPTo         string `envconfig:"SMTP_TO"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.retroshelf if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".retroshelf")
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory.
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DatabasePath returns the path to the SQLite database file.
func (c *AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "retroshelf.db")
}
