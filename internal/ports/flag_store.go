package ports

import "context"

// FlagStore persists boolean preferences across process restarts.
type FlagStore interface {
	// ReadFlag returns the stored value, or false if key was never written.
	ReadFlag(ctx context.Context, key string) (bool, error)

	// WriteFlag stores value durably before returning nil.
	WriteFlag(ctx context.Context, key string, value bool) error
}
