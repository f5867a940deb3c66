package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "GEOTRACK_"

// ApplyEnvConfig applies GEOTRACK_* environment variables to cfg.
// Environment overrides the config file; explicitly set flags win.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("source", env("SOURCE"), &cfg.Source)
	s.setString("track", env("TRACK_FILE"), &cfg.TrackFile)
	s.setString("accuracy", env("ACCURACY"), &cfg.Accuracy)
	s.setString("permission", env("PERMISSION"), &cfg.Permission)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	floats := []struct {
		flag, name string
		dst        *float64
	}{
		{"origin-lat", "ORIGIN_LAT", &cfg.OriginLat},
		{"origin-lon", "ORIGIN_LON", &cfg.OriginLon},
		{"step", "STEP", &cfg.Step},
	}
	for _, f := range floats {
		if err := s.setFloatFromString(f.flag, env(f.name), f.dst); err != nil {
			return err
		}
	}

	if err := s.setInt64FromString("seed", env("SEED"), &cfg.Seed); err != nil {
		return err
	}

	durations := []struct {
		flag, name string
		dst        *time.Duration
	}{
		{"interval", "INTERVAL", &cfg.Interval},
		{"min-interval", "MIN_INTERVAL", &cfg.MinInterval},
		{"max-batch-delay", "MAX_BATCH_DELAY", &cfg.MaxBatchDelay},
		{"request-timeout", "REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"retry-initial", "RETRY_INITIAL", &cfg.RetryInitial},
		{"retry-max", "RETRY_MAX", &cfg.RetryMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	return s.setIntFromString("max-log-lines", env("MAX_LOG_LINES"), &cfg.MaxLogLines)
}
