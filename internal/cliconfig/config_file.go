package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir       string   `toml:"state_dir"`
	Source         string   `toml:"source"`
	TrackFile      string   `toml:"track_file"`
	OriginLat      *float64 `toml:"origin_lat"`
	OriginLon      *float64 `toml:"origin_lon"`
	Step           *float64 `toml:"step"`
	Seed           *int64   `toml:"seed"`
	Interval       string   `toml:"interval"`
	MinInterval    string   `toml:"min_interval"`
	MaxBatchDelay  string   `toml:"max_batch_delay"`
	Accuracy       string   `toml:"accuracy"`
	Permission     string   `toml:"permission"`
	RequestTimeout string   `toml:"request_timeout"`
	RetryInitial   string   `toml:"retry_initial"`
	RetryMax       string   `toml:"retry_max"`
	MaxLogLines    int      `toml:"max_log_lines"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.geotrack/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".geotrack", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("source", fc.Source, &cfg.Source)
	s.setString("track", fc.TrackFile, &cfg.TrackFile)
	s.setString("accuracy", fc.Accuracy, &cfg.Accuracy)
	s.setString("permission", fc.Permission, &cfg.Permission)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setFloat("origin-lat", fc.OriginLat, &cfg.OriginLat)
	s.setFloat("origin-lon", fc.OriginLon, &cfg.OriginLon)
	s.setFloat("step", fc.Step, &cfg.Step)
	if fc.Seed != nil && !changed["seed"] {
		cfg.Seed = *fc.Seed
	}

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"interval", fc.Interval, &cfg.Interval},
		{"min-interval", fc.MinInterval, &cfg.MinInterval},
		{"max-batch-delay", fc.MaxBatchDelay, &cfg.MaxBatchDelay},
		{"request-timeout", fc.RequestTimeout, &cfg.RequestTimeout},
		{"retry-initial", fc.RetryInitial, &cfg.RetryInitial},
		{"retry-max", fc.RetryMax, &cfg.RetryMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("max-log-lines", fc.MaxLogLines, &cfg.MaxLogLines)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
