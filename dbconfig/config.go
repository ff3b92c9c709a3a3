// Package dbconfig holds the tuning knobs shared by every store engine
// in this module (idle flush timing, busy timeout, batch threshold)
// and an optional YAML loader for externalizing them.
package dbconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Reserved metadata keys written into every store's meta-data table.
const (
	MetaKeyVersion    = "version"
	MetaKeyUpdateDate = "update-date"
	MetaKeyBetID      = "bet-id"

	DefaultDBVersion = "1.0"
)

// Config tunes a store engine's flush cadence, retry behavior and
// diagnostics.
type Config struct {
	// Path is the SQLite file path.
	Path string `yaml:"path"`

	// IdleTime is how long the staging queue may sit non-empty before
	// a flush is forced even though the batch threshold hasn't tripped.
	IdleTime time.Duration `yaml:"idle_time"`

	// MetaDataTime is how often the background timer re-reads the
	// meta-data table's update-date into the engine's in-memory copy
	// (the table itself is written on each successful flush).
	MetaDataTime time.Duration `yaml:"meta_data_time"`

	// BusyTimeout is passed to SQLite's busy_timeout pragma.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// ThresholdBets is the staging queue length that forces an
	// immediate flush regardless of IdleTime.
	ThresholdBets int `yaml:"threshold_bets"`

	// ReadOnly disables the background flush timer and rejects writes.
	// It also changes how the underlying file is opened: read-write
	// creates a missing file and its parent directories, while
	// read-only fails if the file does not already exist.
	ReadOnly bool `yaml:"read_only"`

	// UseLog gates structured diagnostic logging.
	UseLog bool `yaml:"use_log"`

	// DBVersion is recorded in the meta-data table's "version" key.
	DBVersion string `yaml:"db_version"`
}

// Default returns the engine's documented defaults: 15s idle flush,
// 1s metadata refresh, no busy timeout, 1000-record flush threshold.
func Default(path string) Config {
	return Config{
		Path:          path,
		IdleTime:      15 * time.Second,
		MetaDataTime:  1 * time.Second,
		BusyTimeout:   0,
		ThresholdBets: 1000,
		DBVersion:     DefaultDBVersion,
	}
}

// LoadYAML reads a Config from a YAML file, starting from Default(path)
// so any field the file omits keeps its documented default.
func LoadYAML(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dbconfig: read %s: %w", path, err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("dbconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}
