package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/geotrack/pkg/log"
)

// Logger returns the CLI's console logger used before configuration is loaded.
func Logger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// NewLogger builds the logger configured by cfg.
func NewLogger(cfg Config) (*log.ZerologAdapter, error) {
	return log.NewZerolog(log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    os.Stderr,
	})
}
