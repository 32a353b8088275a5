// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and validation for mnemo.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds the database and other state. Defaults to
	// $XDG_DATA_HOME/mnemo.
	DataDir string `yaml:"data_dir,omitempty"`

	Log       LogConfig       `yaml:"log"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Recall    RecallConfig    `yaml:"recall"`
	Reminders ReminderConfig  `yaml:"reminders"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "store.sqlite").
	Modules map[string]yaml.Node `yaml:"modules,omitempty"`
}

// LogConfig selects the process log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EmbeddingConfig configures the remote embedding provider and codec.
// An empty BaseURL keeps the codec local-only.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Model     string `yaml:"model,omitempty"`

	Dimensions       int           `yaml:"dimensions"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`

	// CacheSize bounds the remote vector cache. Zero disables it; unset
	// selects the default.
	CacheSize *int `yaml:"cache_size,omitempty"`

	QueryTask    string `yaml:"query_task"`
	DocumentTask string `yaml:"document_task"`
}

// RecallConfig tunes memory search.
type RecallConfig struct {
	TopK int `yaml:"top_k"`

	// Threshold is the minimum raw similarity. Zero is a valid threshold;
	// unset selects the default.
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// ReminderConfig tunes the reminder engine and its background jobs.
type ReminderConfig struct {
	DefaultOwner     string        `yaml:"default_owner"`
	Snooze           time.Duration `yaml:"snooze"`
	SweepSchedule    string        `yaml:"sweep_schedule"`
	BackfillSchedule string        `yaml:"backfill_schedule"`
}

// TelemetryConfig configures trace export. An empty OTLPEndpoint
// disables tracing.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint,omitempty"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio,omitempty"`
}
