package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFlagStore_MissingFileReadsFalse(t *testing.T) {
	s := NewFlagStore(filepath.Join(t.TempDir(), "state"))

	v, err := s.ReadFlag(context.Background(), "tracking")
	if err != nil {
		t.Fatalf("ReadFlag returned error: %v", err)
	}
	if v {
		t.Fatal("expected false for missing file")
	}
}

func TestFlagStore_WriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s := NewFlagStore(dir)
	ctx := context.Background()

	if err := s.WriteFlag(ctx, "tracking", true); err != nil {
		t.Fatalf("WriteFlag returned error: %v", err)
	}
	if err := s.WriteFlag(ctx, "other", true); err != nil {
		t.Fatalf("WriteFlag returned error: %v", err)
	}
	if err := s.WriteFlag(ctx, "other", false); err != nil {
		t.Fatalf("WriteFlag returned error: %v", err)
	}

	// A fresh store sees what was written, as a restarted process would.
	s2 := NewFlagStore(dir)
	tracking, err := s2.ReadFlag(ctx, "tracking")
	if err != nil {
		t.Fatalf("ReadFlag returned error: %v", err)
	}
	other, err := s2.ReadFlag(ctx, "other")
	if err != nil {
		t.Fatalf("ReadFlag returned error: %v", err)
	}
	if !tracking || other {
		t.Fatalf("got tracking=%v other=%v, want true false", tracking, other)
	}

	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	if filepath.Base(s.Path()) != "preferences.json" {
		t.Fatalf("unexpected path %s", s.Path())
	}
}

func TestFlagStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFlagStore(dir)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.ReadFlag(context.Background(), "tracking"); err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if err := s.WriteFlag(context.Background(), "tracking", true); err == nil {
		t.Fatal("expected WriteFlag to refuse overwriting a corrupt file")
	}
}

func TestFlagStore_CanceledContext(t *testing.T) {
	s := NewFlagStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.WriteFlag(ctx, "tracking", true); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
