package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
	Ingest   IngestConfig   `toml:"ingest"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// StorageConfig contains object storage configuration for audio files
type StorageConfig struct {
	Bucket           string `toml:"bucket"`
	Region           string `toml:"region"`
	Endpoint         string `toml:"endpoint"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	URLExpirySeconds int    `toml:"url_expiry_seconds"`
}

// AuthConfig contains token configuration
type AuthConfig struct {
	TokenSecret   string `toml:"token_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// IngestConfig contains local drop-directory ingest configuration
type IngestConfig struct {
	Enabled          bool     `toml:"enabled"`
	DropDir          string   `toml:"drop_dir"`
	SupportedFormats []string `toml:"supported_formats"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
	Region    string `toml:"region"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3000",
			Host:        "0.0.0.0",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path:           "./data/navicore-music.db",
			MaxConnections: 5,
		},
		Storage: StorageConfig{
			Bucket:           "navicore-music-files",
			Region:           "auto",
			Endpoint:         "",
			AccessKey:        "",
			SecretKey:        "",
			URLExpirySeconds: 3600,
		},
		Auth: AuthConfig{
			TokenSecret:   "",
			TokenTTLHours: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Ingest: IngestConfig{
			Enabled:          false,
			DropDir:          "./music",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			ScanOnStartup:    true,
		},
		Ngrok: NgrokConfig{
			Enabled:   false,
			AuthToken: "",
			Domain:    "",
			Region:    "us",
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies
// environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else {
		// Load from file
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file settings
// without editing the TOML. Secrets in particular should come from the
// environment rather than the config file.
func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Server.Port, "SERVER_PORT")
	setString(&c.Database.Path, "DATABASE_PATH")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.Region, "STORAGE_REGION")
	setString(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setInt(&c.Storage.URLExpirySeconds, "STORAGE_URL_EXPIRY_SECONDS")
	setString(&c.Auth.TokenSecret, "AUTH_TOKEN_SECRET")
	setInt(&c.Auth.TokenTTLHours, "AUTH_TOKEN_TTL_HOURS")
	setString(&c.Ngrok.AuthToken, "NGROK_AUTHTOKEN")
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Navicore Music Server Configuration
# This file contains all configuration options for the music catalog server.
# Secrets (storage keys, token secret) are better supplied via environment
# variables; values set in the environment override this file.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	// Validate storage config. An empty bucket alongside an empty endpoint
	// means storage is simply unconfigured; only a half-configured pair is
	// an error.
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket cannot be empty when an endpoint is set")
	}
	if c.Storage.URLExpirySeconds < 1 {
		return fmt.Errorf("storage url expiry must be at least 1 second")
	}

	// Validate auth config
	if c.Auth.TokenTTLHours < 1 {
		return fmt.Errorf("auth token ttl must be at least 1 hour")
	}

	// Validate ingest config
	if c.Ingest.Enabled {
		if c.Ingest.DropDir == "" {
			return fmt.Errorf("ingest drop directory cannot be empty when ingest is enabled")
		}
		if len(c.Ingest.SupportedFormats) == 0 {
			return fmt.Errorf("at least one supported audio format must be specified")
		}
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsFormatSupported checks if an audio format is supported for ingest
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Ingest.SupportedFormats {
		if supported == format {
			return true
		}
	}
	return false
}
