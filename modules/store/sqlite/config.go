package sqlite

import "fmt"

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "mnemo.db"
	defaultDimensions  = 768
)

// Config holds the SQLite store module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/mnemo.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Dimensions is the expected embedding length. Stored vectors of any
	// other length are read back as absent. Defaults to 768.
	Dimensions int `yaml:"dimensions"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.Dimensions == 0 {
		c.Dimensions = defaultDimensions
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("sqlite: dimensions must be non-negative, got %d", c.Dimensions)
	}
	return nil
}
