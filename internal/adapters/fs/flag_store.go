package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PreferencesFileName is the file holding persisted flags.
const PreferencesFileName = "preferences.json"

// FlagStore implements ports.FlagStore using a JSON file of named booleans.
type FlagStore struct {
	dir string
	mu  sync.Mutex
}

// NewFlagStore creates a FlagStore for the given directory.
func NewFlagStore(dir string) *FlagStore {
	return &FlagStore{dir: dir}
}

// ReadFlag returns the stored value of key.
// A missing file or key reads as false.
func (s *FlagStore) ReadFlag(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.load()
	if err != nil {
		return false, err
	}
	return prefs[key], nil
}

// WriteFlag durably stores value under key.
// The file is replaced atomically: written to a temp file, synced, then renamed.
func (s *FlagStore) WriteFlag(ctx context.Context, key string, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.load()
	if err != nil {
		return err
	}
	prefs[key] = value

	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}

	path := s.Path()
	tmp := path + ".tmp"
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the preferences file.
func (s *FlagStore) Path() string {
	return filepath.Join(s.dir, PreferencesFileName)
}

func (s *FlagStore) ensureDir() error {
	return os.MkdirAll(s.dir, 0o700)
}

func (s *FlagStore) load() (map[string]bool, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	prefs := map[string]bool{}
	if len(data) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path(), err)
	}
	return prefs, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
