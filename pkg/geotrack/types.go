package geotrack

import (
	"github.com/bft-labs/geotrack/internal/app"
	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// Re-exported types so that embedders need only this package.
type (
	// Fix is a single reported position.
	Fix = domain.Fix

	// State is the tracking state.
	State = domain.TrackingState

	// Mode is the presentation mode.
	Mode = domain.PresentationMode

	// LocationRequest holds subscription parameters.
	LocationRequest = domain.LocationRequest

	// Grant is the outcome of a permission request.
	Grant = domain.Grant

	// LocationSource delivers fixes for a subscription.
	LocationSource = ports.LocationSource

	// FixSink receives callbacks from a LocationSource.
	FixSink = ports.FixSink

	// SubscriptionID identifies a LocationSource subscription.
	SubscriptionID = ports.SubscriptionID

	// PermissionGate checks and requests location access.
	PermissionGate = ports.PermissionGate

	// Presenter renders the persistent indicator.
	Presenter = ports.Presenter

	// FlagStore durably stores named booleans.
	FlagStore = ports.FlagStore

	// Logger is the structured logger used throughout.
	Logger = log.Logger

	// Session is the front-end facing controller of a tracker.
	Session = app.Controller
)

// Tracking states.
const (
	StateStopped    = domain.StateStopped
	StateRequesting = domain.StateRequesting
	StateActive     = domain.StateActive
	StateSuspended  = domain.StateSuspended
)

// Presentation modes.
const (
	Foreground = domain.Foreground
	Background = domain.Background
)

// Permission request outcomes.
const (
	GrantDenied   = domain.GrantDenied
	GrantGranted  = domain.GrantGranted
	GrantCanceled = domain.GrantCanceled
)

// Errors returned by the tracker. Check with errors.Is.
var (
	ErrPermissionDenied    = domain.ErrPermissionDenied
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrTeardownFailed      = domain.ErrTeardownFailed
	ErrRequestTimeout      = domain.ErrRequestTimeout
	ErrAlreadyRunning      = domain.ErrAlreadyRunning
	ErrNotRunning          = domain.ErrNotRunning
	ErrTeardownPending     = domain.ErrTeardownPending
	ErrStartCanceled       = domain.ErrStartCanceled
	ErrClosed              = domain.ErrClosed
	ErrShutdownTimeout     = domain.ErrShutdownTimeout
	ErrInvalidConfig       = domain.ErrInvalidConfig
)

// Labels returned by Session.Label.
const (
	LabelStart = app.LabelStart
	LabelStop  = app.LabelStop
)

// Status is a snapshot of the tracker.
type Status struct {
	State State
	// Desired is the persisted intent to track.
	Desired bool
	Mode    Mode
	// Fix is the most recent fix, nil before the first one.
	Fix *Fix
}
