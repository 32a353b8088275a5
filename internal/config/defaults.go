package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flemzord/mnemo/internal/cron"
	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/logging"
	"github.com/flemzord/mnemo/internal/ranking"
	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/internal/telemetry"
)

// Default values not owned by another package.
const (
	DefaultVersion      = "1"
	DefaultOwner        = "local"
	DefaultCacheSize    = 1024
	DefaultQueryTask    = "retrieval.query"
	DefaultDocumentTask = "retrieval.passage"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: DefaultVersion}
	cfg.Defaults()
	return cfg
}

// Defaults fills zero values in every section.
func (c *Config) Defaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.Log.defaults()
	c.Embedding.defaults()
	c.Recall.defaults()
	c.Reminders.defaults()
	c.Telemetry.defaults()
}

// DefaultDataDir returns $XDG_DATA_HOME/mnemo, falling back to
// ~/.local/share/mnemo.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "mnemo")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "mnemo")
	}
	return "data"
}

func (c *LogConfig) defaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *LogConfig) validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", c.Format))
	}
	return errors.Join(errs...)
}

func (c *EmbeddingConfig) defaults() {
	if c.Dimensions == 0 {
		c.Dimensions = embedding.DefaultDimensions
	}
	if c.Timeout == 0 {
		c.Timeout = embedding.MaxTimeout
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = embedding.DefaultFailureThreshold
	}
	if c.CacheSize == nil {
		n := DefaultCacheSize
		c.CacheSize = &n
	}
	if c.QueryTask == "" {
		c.QueryTask = DefaultQueryTask
	}
	if c.DocumentTask == "" {
		c.DocumentTask = DefaultDocumentTask
	}
}

// ResolvedAPIKey returns APIKey, or the value of the APIKeyEnv variable
// when APIKey is empty.
func (c *EmbeddingConfig) ResolvedAPIKey() string {
	if c.APIKey != "" || c.APIKeyEnv == "" {
		return c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

// RemoteEnabled reports whether a remote provider is configured: an
// endpoint and a resolvable API key.
func (c *EmbeddingConfig) RemoteEnabled() bool {
	return c.BaseURL != "" && c.ResolvedAPIKey() != ""
}

func (c *EmbeddingConfig) validate() error {
	var errs []error
	if c.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("config: embedding.dimensions must be positive, got %d", c.Dimensions))
	}
	if c.Timeout < 0 || c.Timeout > embedding.MaxTimeout {
		errs = append(errs, fmt.Errorf("config: embedding.timeout must be within (0, %s], got %s", embedding.MaxTimeout, c.Timeout))
	}
	if c.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("config: embedding.failure_threshold must be positive, got %d", c.FailureThreshold))
	}
	if c.CacheSize != nil && *c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("config: embedding.cache_size must be non-negative, got %d", *c.CacheSize))
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("config: embedding.base_url must be an http(s) URL, got %q", c.BaseURL))
	}
	return errors.Join(errs...)
}

func (c *RecallConfig) defaults() {
	if c.TopK == 0 {
		c.TopK = ranking.DefaultTopK
	}
	if c.Threshold == nil {
		t := ranking.DefaultThreshold
		c.Threshold = &t
	}
}

// MinSimilarity returns the configured threshold, or the default when
// unset.
func (c *RecallConfig) MinSimilarity() float64 {
	if c.Threshold == nil {
		return ranking.DefaultThreshold
	}
	return *c.Threshold
}

func (c *RecallConfig) validate() error {
	var errs []error
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("config: recall.top_k must be positive, got %d", c.TopK))
	}
	if t := c.MinSimilarity(); t < -1 || t > 1 {
		errs = append(errs, fmt.Errorf("config: recall.threshold must be within [-1, 1], got %v", t))
	}
	return errors.Join(errs...)
}

func (c *ReminderConfig) defaults() {
	if c.DefaultOwner == "" {
		c.DefaultOwner = DefaultOwner
	}
	if c.Snooze == 0 {
		c.Snooze = reminder.DefaultSnooze
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = cron.DefaultSweepSchedule
	}
	if c.BackfillSchedule == "" {
		c.BackfillSchedule = cron.DefaultBackfillSchedule
	}
}

func (c *ReminderConfig) validate() error {
	var errs []error
	if c.Snooze < time.Minute {
		errs = append(errs, fmt.Errorf("config: reminders.snooze must be at least 1m, got %s", c.Snooze))
	}
	if err := cron.ValidateSchedule(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: reminders.sweep_schedule: %w", err))
	}
	if err := cron.ValidateSchedule(c.BackfillSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: reminders.backfill_schedule: %w", err))
	}
	return errors.Join(errs...)
}

func (c *TelemetryConfig) defaults() {
	if c.ServiceName == "" {
		c.ServiceName = telemetry.DefaultServiceName
	}
}

func (c *TelemetryConfig) validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1], got %v", c.SampleRatio)
	}
	return nil
}

// Tracing converts the section for telemetry.SetupTracing.
func (c TelemetryConfig) Tracing() telemetry.TracingConfig {
	return telemetry.TracingConfig{
		Endpoint:    c.OTLPEndpoint,
		ServiceName: c.ServiceName,
		SampleRatio: c.SampleRatio,
	}
}
