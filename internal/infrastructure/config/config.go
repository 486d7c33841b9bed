// Package config provides configuration structs and utilities for the rangesync application.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the root configuration for the rangesync application.
type Config struct {
	Identity IdentityConfig `yaml:"identity"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Links    LinksConfig    `yaml:"links"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// IdentityConfig identifies the signed-in user. Both fields empty
// means guest mode: local edits only, no links or remote sync.
type IdentityConfig struct {
	UserID      string `yaml:"user_id"`
	DisplayName string `yaml:"display_name"`
}

// RemoteConfig holds the remote document store endpoint.
type RemoteConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SyncConfig holds synchronizer tunables.
type SyncConfig struct {
	Interval        time.Duration `yaml:"interval"`         // background outbox drain interval
	ConnectivityTTL time.Duration `yaml:"connectivity_ttl"` // connectivity probe cache TTL
}

// LinksConfig holds player-link tunables.
type LinksConfig struct {
	MaxLinksPerUser int           `yaml:"max_links_per_user"` // global per-user cap on links
	VersionCheckTTL time.Duration `yaml:"version_check_ttl"`  // update-check cache TTL
}

// StorageConfig holds local store configuration.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite database path (default ~/.rangesync/rangesync.db)
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds configuration for tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultRemoteTimeout    = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultSyncInterval     = 30 * time.Second
	DefaultConnectivityTTL  = 5 * time.Second
	DefaultMaxLinksPerUser  = 10
	DefaultVersionCheckTTL  = 60 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultTraceSampleRate  = 1.0
	DefaultTraceServiceName = "rangesync"
)

// NewDefaultConfig returns a configuration populated with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Timeout:    DefaultRemoteTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Sync: SyncConfig{
			Interval:        DefaultSyncInterval,
			ConnectivityTTL: DefaultConnectivityTTL,
		},
		Links: LinksConfig{
			MaxLinksPerUser: DefaultMaxLinksPerUser,
			VersionCheckTTL: DefaultVersionCheckTTL,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ExporterType: "none",
			SampleRate:   DefaultTraceSampleRate,
			ServiceName:  DefaultTraceServiceName,
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Remote.BaseURL != "" {
		if _, err := url.Parse(c.Remote.BaseURL); err != nil {
			return fmt.Errorf("invalid remote base_url: %w", err)
		}
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.Sync.ConnectivityTTL <= 0 {
		return fmt.Errorf("connectivity TTL must be positive")
	}
	if c.Links.MaxLinksPerUser <= 0 {
		return fmt.Errorf("max links per user must be positive")
	}
	if c.Links.VersionCheckTTL <= 0 {
		return fmt.Errorf("version check TTL must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("trace sample rate must be between 0 and 1")
	}
	return nil
}
