package app

import (
	"testing"
	"time"
)

func TestBackoff_NextDoublesWithinJitter(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 350*time.Millisecond)

	bases := []time.Duration{100, 200, 350, 350}
	for i, base := range bases {
		base *= time.Millisecond
		got := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if got < lo || got > hi {
			t.Errorf("Next() #%d = %v, want in [%v, %v]", i, got, lo, hi)
		}
	}
	if b.Current() != 350*time.Millisecond {
		t.Errorf("Current() = %v, want capped at 350ms", b.Current())
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	b.Reset()

	if b.Current() != time.Second {
		t.Errorf("Current() after Reset = %v, want 1s", b.Current())
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(0, 0)
	if b.Current() != DefaultRetryInitial {
		t.Errorf("Current() = %v, want %v", b.Current(), DefaultRetryInitial)
	}
	if b.max != DefaultRetryInitial {
		t.Errorf("max = %v, want clamped to initial", b.max)
	}
}
