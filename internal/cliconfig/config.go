package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/geotrack/internal/domain"
)

// Location sources selectable from the CLI.
const (
	SourceSimulated = "simulated"
	SourceReplay    = "replay"
)

// Config holds CLI configuration for geotrack.
type Config struct {
	StateDir string `validate:"required"`

	Source    string  `validate:"oneof=simulated replay"`
	TrackFile string  `validate:"required_if=Source replay"`
	OriginLat float64 `validate:"latitude"`
	OriginLon float64 `validate:"longitude"`
	Step      float64 `validate:"gte=0,lte=1"`
	Seed      int64

	Interval      time.Duration `validate:"gt=0"`
	MinInterval   time.Duration `validate:"gte=0,ltefield=Interval"`
	MaxBatchDelay time.Duration `validate:"gte=0"`
	Accuracy      string        `validate:"oneof=high balanced low passive"`

	Permission string `validate:"oneof=granted denied prompt"`

	RequestTimeout time.Duration `validate:"gte=0"`
	RetryInitial   time.Duration `validate:"gt=0"`
	RetryMax       time.Duration `validate:"gtefield=RetryInitial"`

	MaxLogLines int `validate:"gte=1,lte=10000"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=console json"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	req := domain.DefaultLocationRequest()
	return Config{
		StateDir:       "", // Derived from the home directory during Validate
		Source:         SourceSimulated,
		Step:           0.0001,
		Interval:       req.Interval,
		MinInterval:    req.MinInterval,
		MaxBatchDelay:  req.MaxBatchDelay,
		Accuracy:       req.Accuracy.String(),
		Permission:     "prompt",
		RequestTimeout: 30 * time.Second,
		RetryInitial:   time.Second,
		RetryMax:       time.Minute,
		MaxLogLines:    200,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// DefaultStateDir returns ~/.geotrack if the home directory is accessible.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".geotrack")
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.Accuracy = strings.ToLower(strings.TrimSpace(c.Accuracy))
	c.Permission = strings.ToLower(strings.TrimSpace(c.Permission))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, describe(err))
	}
	return nil
}

// LocationRequest builds the subscription parameters.
func (c *Config) LocationRequest() (domain.LocationRequest, error) {
	acc, err := domain.ParseAccuracy(c.Accuracy)
	if err != nil {
		return domain.LocationRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return domain.LocationRequest{
		Interval:      c.Interval,
		MinInterval:   c.MinInterval,
		MaxBatchDelay: c.MaxBatchDelay,
		Accuracy:      acc,
	}, nil
}

// describe turns validator errors into flag-named messages.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := flagNames[fe.StructField()]
		if name == "" {
			name = fe.StructField()
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", name, fe.Tag(), fe.Value()))
		}
	}
	return strings.Join(msgs, "; ")
}

// flagNames maps Config fields to their flag names.
var flagNames = map[string]string{
	"StateDir":       "state-dir",
	"Source":         "source",
	"TrackFile":      "track",
	"OriginLat":      "origin-lat",
	"OriginLon":      "origin-lon",
	"Step":           "step",
	"Seed":           "seed",
	"Interval":       "interval",
	"MinInterval":    "min-interval",
	"MaxBatchDelay":  "max-batch-delay",
	"Accuracy":       "accuracy",
	"Permission":     "permission",
	"RequestTimeout": "request-timeout",
	"RetryInitial":   "retry-initial",
	"RetryMax":       "retry-max",
	"MaxLogLines":    "max-log-lines",
	"LogLevel":       "log-level",
	"LogFormat":      "log-format",
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
// Coordinates may legitimately be zero or negative, hence the pointer.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}
