package config

import (
	"net/url"
	"time"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/auth"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/ratelimit"
)

// DefaultServer is the backend the client talks to out of the box
const DefaultServer = "http://120.26.112.117:80"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Transfer TransferConfig `yaml:"transfer"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Session  SessionConfig  `yaml:"session"`
	Exclude  []string       `yaml:"exclude"`
}

// ServerConfig locates the backend
type ServerConfig struct {
	BaseURL    string        `yaml:"base_url"`
	StorageURL string        `yaml:"storage_url"` // empty = base_url
	Timeout    time.Duration `yaml:"timeout"`
	Endpoints  api.Endpoints `yaml:"endpoints"`
}

// AuthConfig selects the password digest
type AuthConfig struct {
	Digest string `yaml:"digest"` // "md5" or "bcrypt"
}

// TransferConfig holds upload and download settings
type TransferConfig struct {
	MaxWorkers     int    `yaml:"max_workers"`
	BandwidthLimit string `yaml:"bandwidth_limit"` // e.g. "10M", empty = unlimited
	BufferSize     int    `yaml:"buffer_size"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // written on exit when set
}

// SessionConfig holds session persistence settings
type SessionConfig struct {
	File string `yaml:"file"` // empty = ~/.config/greenbox/session.json
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   DefaultServer,
			Timeout:   30 * time.Second,
			Endpoints: api.DefaultEndpoints(),
		},
		Auth: AuthConfig{
			Digest: auth.SchemeMD5,
		},
		Transfer: TransferConfig{
			MaxWorkers: 3,
			BufferSize: 65536,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "warn",
			MaxSize:    10 << 20,
			MaxBackups: 3,
		},
		Exclude: []string{
			"*.tmp",
			"*.part-*",
			".git/",
			".DS_Store",
		},
	}
}

// StorageURL returns the download base, falling back to the API base
func (c *Config) StorageURL() string {
	if c.Server.StorageURL != "" {
		return c.Server.StorageURL
	}
	return c.Server.BaseURL
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !validURL(c.Server.BaseURL) {
		return &models.ValidationError{
			Field:   "server.base_url",
			Message: "must be an http or https URL",
		}
	}

	if c.Server.StorageURL != "" && !validURL(c.Server.StorageURL) {
		return &models.ValidationError{
			Field:   "server.storage_url",
			Message: "must be an http or https URL",
		}
	}

	if c.Server.Timeout < 0 {
		return &models.ValidationError{
			Field:   "server.timeout",
			Message: "must not be negative",
		}
	}

	if _, err := auth.NewDigester(c.Auth.Digest); err != nil {
		return &models.ValidationError{
			Field:   "auth.digest",
			Message: "must be 'md5' or 'bcrypt'",
		}
	}

	if c.Transfer.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "transfer.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Transfer.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "transfer.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := ratelimit.ParseRate(c.Transfer.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "transfer.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings must not be negative",
		}
	}

	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
