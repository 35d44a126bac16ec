package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("LoadConfig() did not create default config file: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("default port = %q, want 3000", cfg.Server.Port)
	}
	if cfg.Storage.URLExpirySeconds != 3600 {
		t.Errorf("default url expiry = %d, want 3600", cfg.Storage.URLExpirySeconds)
	}
	if cfg.Auth.TokenTTLHours != 24 {
		t.Errorf("default token ttl = %d, want 24", cfg.Auth.TokenTTLHours)
	}
	if cfg.Ingest.Enabled {
		t.Error("ingest enabled by default, want disabled")
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Port = "8123"
	cfg.Storage.Bucket = "other-bucket"
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.Server.Port != "8123" {
		t.Errorf("loaded port = %q, want 8123", loaded.Server.Port)
	}
	if loaded.Storage.Bucket != "other-bucket" {
		t.Errorf("loaded bucket = %q, want other-bucket", loaded.Storage.Bucket)
	}
}

func TestEnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("STORAGE_ENDPOINT", "https://r2.example.com")
	t.Setenv("STORAGE_URL_EXPIRY_SECONDS", "120")
	t.Setenv("AUTH_TOKEN_SECRET", "env-secret")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("port = %q, want env override 9999", cfg.Server.Port)
	}
	if cfg.Storage.Endpoint != "https://r2.example.com" {
		t.Errorf("endpoint = %q, want env override", cfg.Storage.Endpoint)
	}
	if cfg.Storage.URLExpirySeconds != 120 {
		t.Errorf("url expiry = %d, want env override 120", cfg.Storage.URLExpirySeconds)
	}
	if cfg.Auth.TokenSecret != "env-secret" {
		t.Errorf("token secret = %q, want env override", cfg.Auth.TokenSecret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"empty host", func(c *Config) { c.Server.Host = "" }, true},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, true},
		{"storage unconfigured", func(c *Config) {
			c.Storage.Bucket = ""
			c.Storage.Endpoint = ""
		}, false},
		{"endpoint without bucket", func(c *Config) {
			c.Storage.Bucket = ""
			c.Storage.Endpoint = "https://r2.example.com"
		}, true},
		{"zero url expiry", func(c *Config) { c.Storage.URLExpirySeconds = 0 }, true},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTLHours = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"ingest enabled without drop dir", func(c *Config) {
			c.Ingest.Enabled = true
			c.Ingest.DropDir = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "3000"
	if got := cfg.GetAddress(); got != "127.0.0.1:3000" {
		t.Errorf("GetAddress() = %q, want 127.0.0.1:3000", got)
	}
}
