package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/greenbox/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Server.BaseURL != DefaultServer {
		t.Errorf("BaseURL = %v, want %v", cfg.Server.BaseURL, DefaultServer)
	}
	if cfg.Server.Endpoints.Login != "/api/login" {
		t.Errorf("Endpoints.Login = %v, want /api/login", cfg.Server.Endpoints.Login)
	}
	if cfg.StorageURL() != DefaultServer {
		t.Errorf("StorageURL() = %v, want base URL fallback", cfg.StorageURL())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.Server.BaseURL = "/api" }, "server.base_url"},
		{"ftp base url", func(c *Config) { c.Server.BaseURL = "ftp://host" }, "server.base_url"},
		{"bad storage url", func(c *Config) { c.Server.StorageURL = "nope" }, "server.storage_url"},
		{"negative timeout", func(c *Config) { c.Server.Timeout = -time.Second }, "server.timeout"},
		{"unknown digest", func(c *Config) { c.Auth.Digest = "sha1" }, "auth.digest"},
		{"zero workers", func(c *Config) { c.Transfer.MaxWorkers = 0 }, "transfer.max_workers"},
		{"small buffer", func(c *Config) { c.Transfer.BufferSize = 10 }, "transfer.buffer_size"},
		{"bad bandwidth", func(c *Config) { c.Transfer.BandwidthLimit = "fast" }, "transfer.bandwidth_limit"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative rotation", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %v, want %v", verr.Field, tt.field)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  base_url: https://box.example.com
  timeout: 5s
  endpoints:
    login: /v2/login
transfer:
  max_workers: 8
  bandwidth_limit: 2M
exclude:
  - "*.bak"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.BaseURL != "https://box.example.com" {
		t.Errorf("BaseURL = %v", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Server.Timeout)
	}
	if cfg.Server.Endpoints.Login != "/v2/login" {
		t.Errorf("Endpoints.Login = %v, want /v2/login", cfg.Server.Endpoints.Login)
	}
	if cfg.Server.Endpoints.MyFiles != "/api/myfiles" {
		t.Errorf("Endpoints.MyFiles = %v, want default", cfg.Server.Endpoints.MyFiles)
	}
	if cfg.Transfer.MaxWorkers != 8 || cfg.Transfer.BandwidthLimit != "2M" {
		t.Errorf("Transfer = %+v", cfg.Transfer)
	}
	// untouched sections keep their defaults
	if cfg.Output.Format != "human" || cfg.Transfer.BufferSize != 65536 {
		t.Errorf("defaults lost: output=%+v transfer=%+v", cfg.Output, cfg.Transfer)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "*.bak" {
		t.Errorf("Exclude = %v, want [*.bak]", cfg.Exclude)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFromFile() on a missing file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("server: [unclosed"), 0644)
	if _, err := LoadFromFile(bad); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("LoadFromFile() error = %v, want parse error", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("transfer:\n  max_workers: 0\n"), 0644)
	if _, err := LoadFromFile(invalid); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("LoadFromFile() error = %v, want invalid configuration", err)
	}
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.StorageURL = "http://cdn.example.com"
	cfg.Metrics.Textfile = "/var/lib/node_exporter/greenbox.prom"
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.StorageURL() != "http://cdn.example.com" {
		t.Errorf("StorageURL() = %v", loaded.StorageURL())
	}
	if loaded.Server.Timeout != cfg.Server.Timeout {
		t.Errorf("Timeout = %v, want %v", loaded.Server.Timeout, cfg.Server.Timeout)
	}
	if loaded.Metrics.Textfile != cfg.Metrics.Textfile {
		t.Errorf("Metrics.Textfile = %v", loaded.Metrics.Textfile)
	}

	cfg.Transfer.MaxWorkers = 0
	if err := SaveToFile(cfg, path); err == nil {
		t.Error("SaveToFile() should refuse an invalid configuration")
	}
}

func TestSessionPath(t *testing.T) {
	cfg := Default()
	cfg.Session.File = "/tmp/greenbox-session.json"

	got, err := cfg.SessionPath()
	if err != nil || got != "/tmp/greenbox-session.json" {
		t.Errorf("SessionPath() = %v, %v", got, err)
	}

	cfg.Session.File = ""
	got, err = cfg.SessionPath()
	if err == nil && filepath.Base(got) != "session.json" {
		t.Errorf("SessionPath() = %v, want default session.json", got)
	}
}
