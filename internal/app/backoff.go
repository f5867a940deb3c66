package app

import (
	"math/rand"
	"time"
)

// Default retry configuration for a suspended worker.
const (
	DefaultRetryInitial = time.Second
	DefaultRetryMax     = time.Minute
)

// backoff computes exponential retry delays with jitter.
// It does not sleep; the worker arms a timer with the returned delay.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultRetryInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the current delay with ±20% jitter and doubles it for next time.
func (b *backoff) Next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the un-jittered delay the next call to Next is based on.
func (b *backoff) Current() time.Duration {
	return b.current
}
