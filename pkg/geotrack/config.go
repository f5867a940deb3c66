package geotrack

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/geotrack/internal/adapters/source"
	"github.com/bft-labs/geotrack/internal/app"
	"github.com/bft-labs/geotrack/internal/domain"
)

// Config configures a Tracker.
type Config struct {
	// StateDir holds the persisted tracking flag. Required unless a flag
	// store is supplied with WithFlagStore.
	StateDir string

	// Request is passed to the location source on every subscribe.
	Request LocationRequest `validate:"required"`

	// RequestTimeout bounds the wait for the first fix. Negative disables it.
	RequestTimeout time.Duration

	// RetryInitial and RetryMax bound the backoff between retries after a
	// provider failure.
	RetryInitial time.Duration `validate:"gt=0"`
	RetryMax     time.Duration `validate:"gtefield=RetryInitial"`

	// TeardownTimeout bounds each unsubscribe.
	TeardownTimeout time.Duration

	// MaxLogLines bounds the session's display log.
	MaxLogLines int `validate:"gte=1"`

	// Simulator configures the default source used when no
	// WithLocationSource option is given. It is only checked when used.
	Simulator source.SimulatorConfig `validate:"-"`
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	def := domain.DefaultLocationRequest()
	if c.Request.Interval <= 0 {
		c.Request.Interval = def.Interval
	}
	if c.Request.MinInterval <= 0 {
		c.Request.MinInterval = def.MinInterval
	}
	if c.Request.MaxBatchDelay <= 0 {
		c.Request.MaxBatchDelay = def.MaxBatchDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = app.DefaultRequestTimeout
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = app.DefaultRetryInitial
	}
	if c.RetryMax <= 0 {
		c.RetryMax = app.DefaultRetryMax
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = app.DefaultTeardownTimeout
	}
	if c.MaxLogLines <= 0 {
		c.MaxLogLines = app.DefaultMaxLogLines
	}
	if c.Simulator.Step == 0 {
		c.Simulator.Step = source.DefaultSimulatorConfig().Step
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// validate checks the configuration. haveStore reports whether a flag
// store was injected.
func (c *Config) validate(haveStore bool) error {
	if c.StateDir == "" && !haveStore {
		return fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) workerConfig() app.WorkerConfig {
	timeout := c.RequestTimeout
	if timeout < 0 {
		timeout = 0
	}
	return app.WorkerConfig{
		Request:         c.Request,
		RequestTimeout:  timeout,
		RetryInitial:    c.RetryInitial,
		RetryMax:        c.RetryMax,
		TeardownTimeout: c.TeardownTimeout,
	}
}
