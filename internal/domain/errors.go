package domain

import "errors"

// Domain errors represent error conditions in the geotrack domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrPermissionDenied is returned when location access has not been granted.
	// It is reported to the caller and never retried automatically.
	ErrPermissionDenied = errors.New("geotrack: location permission denied")

	// ErrProviderUnavailable indicates a transient location provider failure.
	// The worker suspends and retries with backoff.
	ErrProviderUnavailable = errors.New("geotrack: location provider unavailable")

	// ErrTeardownFailed is reported when the provider fails to acknowledge
	// removal of a subscription. The worker still settles in Stopped.
	ErrTeardownFailed = errors.New("geotrack: subscription teardown failed")

	// ErrRequestTimeout is reported when no fix arrives while Requesting
	// within the configured request timeout.
	ErrRequestTimeout = errors.New("geotrack: timed out waiting for first fix")

	// ErrAlreadyRunning is returned when Start() is called while tracking.
	ErrAlreadyRunning = errors.New("geotrack: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped worker.
	ErrNotRunning = errors.New("geotrack: not running")

	// ErrTeardownPending is returned when Start() is called before a
	// previous Stop() has been acknowledged by the provider.
	ErrTeardownPending = errors.New("geotrack: teardown pending")

	// ErrStartCanceled is returned by a Start() whose subscribe was
	// canceled by a concurrent Stop().
	ErrStartCanceled = errors.New("geotrack: start canceled by stop")

	// ErrClosed is returned by operations on a worker that has been shut down.
	ErrClosed = errors.New("geotrack: worker shut down")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("geotrack: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("geotrack: invalid configuration")
)
