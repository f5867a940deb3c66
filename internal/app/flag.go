package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/geotrack/internal/ports"
)

// TrackingFlagKey is the preference key holding the tracking intent.
const TrackingFlagKey = "tracking_foreground_location"

// PersistentFlag is a durable boolean cached in memory.
// Set writes through to the store and only updates the cache once the
// store has accepted the value.
type PersistentFlag struct {
	mu    sync.Mutex
	store ports.FlagStore
	key   string
	value bool
}

// NewPersistentFlag creates a flag stored under key.
func NewPersistentFlag(store ports.FlagStore, key string) *PersistentFlag {
	return &PersistentFlag{store: store, key: key}
}

// Load refreshes the cached value from the store.
func (f *PersistentFlag) Load(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.store.ReadFlag(ctx, f.key)
	if err != nil {
		return f.value, fmt.Errorf("read flag %s: %w", f.key, err)
	}
	f.value = v
	return v, nil
}

// Stored reads the value currently in the store without touching the
// cache. It is serialized with Set, so it never observes a stale write.
func (f *PersistentFlag) Stored(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.store.ReadFlag(ctx, f.key)
	if err != nil {
		return false, fmt.Errorf("read flag %s: %w", f.key, err)
	}
	return v, nil
}

// Get returns the last value loaded or written.
func (f *PersistentFlag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set durably stores v.
func (f *PersistentFlag) Set(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.store.WriteFlag(context.Background(), f.key, v); err != nil {
		return fmt.Errorf("write flag %s: %w", f.key, err)
	}
	f.value = v
	return nil
}
