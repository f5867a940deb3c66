package domain

import (
	"fmt"
	"strings"
	"time"
)

// TrackingState represents the lifecycle state of the tracking worker.
type TrackingState int

const (
	StateStopped TrackingState = iota
	StateRequesting
	StateActive
	StateSuspended
)

// String returns a human-readable representation of the state.
func (s TrackingState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRequesting:
		return "Requesting"
	case StateActive:
		return "Active"
	case StateSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// WantsTracking reports whether the state carries the intent to track.
// The persisted flag mirrors this once the worker has settled.
func (s TrackingState) WantsTracking() bool {
	return s == StateRequesting || s == StateActive || s == StateSuspended
}

// PresentationMode describes whether the worker is attached to an
// interactive front-end.
type PresentationMode int

const (
	// Foreground: a front-end is attached; no persistent indicator.
	Foreground PresentationMode = iota
	// Background: running detached; the persistent indicator must reflect
	// the current fix.
	Background
)

func (m PresentationMode) String() string {
	if m == Background {
		return "Background"
	}
	return "Foreground"
}

// Accuracy is the requested location accuracy class.
type Accuracy int

const (
	AccuracyHigh Accuracy = iota
	AccuracyBalanced
	AccuracyLow
	AccuracyPassive
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyHigh:
		return "high"
	case AccuracyBalanced:
		return "balanced"
	case AccuracyLow:
		return "low"
	case AccuracyPassive:
		return "passive"
	default:
		return "unknown"
	}
}

// ParseAccuracy parses the names produced by Accuracy.String.
func ParseAccuracy(s string) (Accuracy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "":
		return AccuracyHigh, nil
	case "balanced":
		return AccuracyBalanced, nil
	case "low":
		return AccuracyLow, nil
	case "passive":
		return AccuracyPassive, nil
	default:
		return AccuracyHigh, fmt.Errorf("unknown accuracy %q", s)
	}
}

// LocationRequest holds the parameters of a location-update subscription.
type LocationRequest struct {
	// Interval is the desired time between fixes.
	Interval time.Duration `validate:"gt=0"`
	// MinInterval is the fastest rate the consumer can handle.
	MinInterval time.Duration `validate:"gte=0,ltefield=Interval"`
	// MaxBatchDelay bounds how long the provider may hold fixes back.
	MaxBatchDelay time.Duration `validate:"gte=0"`
	Accuracy      Accuracy      `validate:"gte=0,lte=3"`
}

// DefaultLocationRequest returns the request used when none is configured.
func DefaultLocationRequest() LocationRequest {
	return LocationRequest{
		Interval:      time.Second,
		MinInterval:   500 * time.Millisecond,
		MaxBatchDelay: time.Minute,
		Accuracy:      AccuracyHigh,
	}
}

// Grant is the outcome of a permission request.
type Grant int

const (
	GrantDenied Grant = iota
	GrantGranted
	// GrantCanceled means the user dismissed the request without answering.
	GrantCanceled
)

func (g Grant) String() string {
	switch g {
	case GrantGranted:
		return "granted"
	case GrantCanceled:
		return "canceled"
	default:
		return "denied"
	}
}
