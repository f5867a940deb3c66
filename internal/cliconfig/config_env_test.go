package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"GEOTRACK_STATE_DIR":       "/env/state",
				"GEOTRACK_SOURCE":          "replay",
				"GEOTRACK_TRACK_FILE":      "/env/track.yaml",
				"GEOTRACK_ORIGIN_LAT":      "-33.86",
				"GEOTRACK_ORIGIN_LON":      "151.21",
				"GEOTRACK_SEED":            "7",
				"GEOTRACK_INTERVAL":        "250ms",
				"GEOTRACK_REQUEST_TIMEOUT": "10s",
				"GEOTRACK_PERMISSION":      "denied",
				"GEOTRACK_MAX_LOG_LINES":   "15",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				StateDir:       "/env/state",
				Source:         "replay",
				TrackFile:      "/env/track.yaml",
				OriginLat:      -33.86,
				OriginLon:      151.21,
				Seed:           7,
				Interval:       250 * time.Millisecond,
				RequestTimeout: 10 * time.Second,
				Permission:     "denied",
				MaxLogLines:    15,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"GEOTRACK_SOURCE":     "replay",
				"GEOTRACK_LOG_LEVEL":  "debug",
				"GEOTRACK_ORIGIN_LAT": "1",
			},
			changed: map[string]bool{"source": true, "origin-lat": true},
			initial: Config{Source: "simulated"},
			expected: Config{
				Source:   "simulated",
				LogLevel: "debug",
			},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"GEOTRACK_RETRY_INITIAL": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"GEOTRACK_MAX_LOG_LINES": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"GEOTRACK_STEP": "tiny"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid seed",
			envVars: map[string]string{"GEOTRACK_SEED": "1.5"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
