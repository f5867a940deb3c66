package source

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
)

type recordingSink struct {
	mu    sync.Mutex
	fixes []domain.Fix
	errs  []error
}

func (s *recordingSink) OnFix(_ ports.SubscriptionID, fix domain.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes = append(s.fixes, fix)
}

func (s *recordingSink) OnProviderError(_ ports.SubscriptionID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fixes), len(s.errs)
}

func (s *recordingSink) snapshot() ([]domain.Fix, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Fix(nil), s.fixes...), append([]error(nil), s.errs...)
}

type staticGate bool

func (g staticGate) HasPermission(context.Context) bool { return bool(g) }
func (g staticGate) RequestPermission(context.Context) (domain.Grant, error) {
	if g {
		return domain.GrantGranted, nil
	}
	return domain.GrantDenied, nil
}

var fastRequest = domain.LocationRequest{Interval: 5 * time.Millisecond}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSimulator_DeliversUntilCanceled(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Latitude: 48.85, Longitude: 2.35, Step: 0.001, Seed: 1}, nil, nil)
	sink := &recordingSink{}
	ctx := context.Background()

	id, err := sim.RequestUpdates(ctx, fastRequest, sink)
	if err != nil {
		t.Fatalf("RequestUpdates returned error: %v", err)
	}
	waitUntil(t, "three fixes", func() bool { n, _ := sink.counts(); return n >= 3 })

	if err := sim.CancelUpdates(ctx, id); err != nil {
		t.Fatalf("CancelUpdates returned error: %v", err)
	}
	after, _ := sink.counts()
	time.Sleep(30 * time.Millisecond)
	if n, _ := sink.counts(); n != after {
		t.Fatalf("got %d fixes after cancel acknowledged", n-after)
	}
	if sim.Subscriptions() != 0 {
		t.Fatalf("subscriptions = %d, want 0", sim.Subscriptions())
	}

	fixes, _ := sink.snapshot()
	for i, f := range fixes {
		maxDrift := 0.001 * float64(i+1)
		if math.Abs(f.Latitude-48.85) > maxDrift+1e-9 || math.Abs(f.Longitude-2.35) > maxDrift+1e-9 {
			t.Fatalf("fix %d drifted too far: %v", i, f)
		}
		if f.Time.IsZero() {
			t.Fatalf("fix %d has no timestamp", i)
		}
	}
}

func TestSimulator_CancelUnknown(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig(), nil, nil)
	sink := &recordingSink{}
	ctx := context.Background()

	id, err := sim.RequestUpdates(ctx, fastRequest, sink)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.CancelUpdates(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := sim.CancelUpdates(ctx, id); !errors.Is(err, ErrUnknownSubscription) {
		t.Fatalf("second CancelUpdates = %v, want ErrUnknownSubscription", err)
	}
}

func TestSimulator_PermissionDenied(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig(), staticGate(false), nil)

	_, err := sim.RequestUpdates(context.Background(), fastRequest, &recordingSink{})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("RequestUpdates = %v, want ErrPermissionDenied", err)
	}
}

func TestSimulator_CanceledContext(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.RequestUpdates(ctx, fastRequest, &recordingSink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("RequestUpdates = %v, want context.Canceled", err)
	}
	if sim.Subscriptions() != 0 {
		t.Fatal("subscription registered despite canceled context")
	}
}

func TestSimulator_Fail(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig(), staticGate(true), nil)
	sink := &recordingSink{}

	if _, err := sim.RequestUpdates(context.Background(), fastRequest, sink); err != nil {
		t.Fatal(err)
	}
	sim.Fail(domain.ErrProviderUnavailable)

	waitUntil(t, "provider error", func() bool { _, n := sink.counts(); return n == 1 })
	_, errs := sink.snapshot()
	if !errors.Is(errs[0], domain.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", errs[0])
	}
	waitUntil(t, "subscription removed", func() bool { return sim.Subscriptions() == 0 })
}

func TestSimulatorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SimulatorConfig
		wantErr bool
	}{
		{"default", DefaultSimulatorConfig(), false},
		{"valid origin", SimulatorConfig{Latitude: -33.86, Longitude: 151.21, Step: 0.001}, false},
		{"latitude out of range", SimulatorConfig{Latitude: 200}, true},
		{"longitude out of range", SimulatorConfig{Longitude: 181}, true},
		{"negative step", SimulatorConfig{Step: -0.1}, true},
		{"step too large", SimulatorConfig{Step: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
				}
			} else if err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestTickInterval(t *testing.T) {
	tests := []struct {
		name string
		req  domain.LocationRequest
		want time.Duration
	}{
		{"interval", domain.LocationRequest{Interval: 2 * time.Second}, 2 * time.Second},
		{"raised to min", domain.LocationRequest{Interval: time.Millisecond, MinInterval: 10 * time.Millisecond}, 10 * time.Millisecond},
		{"unset", domain.LocationRequest{}, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tickInterval(tt.req); got != tt.want {
				t.Errorf("tickInterval = %v, want %v", got, tt.want)
			}
		})
	}
}

const harbourTrack = `
name: harbour
loop: true
points:
  - {lat: 59.9127, lon: 10.7461}
  - {lat: 59.9131, lon: 10.7470}
  - {lat: 59.9135, lon: 10.7479}
`

func TestParseTrack(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", harbourTrack, false},
		{"no points", "name: empty\npoints: []\n", true},
		{"bad latitude", "points:\n  - {lat: 91, lon: 0}\n", true},
		{"bad longitude", "points:\n  - {lat: 0, lon: -181}\n", true},
		{"unknown field", "points:\n  - {lat: 0, lon: 0}\nspeed: 3\n", true},
		{"not yaml", "points: [", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := ParseTrack([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTrack error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (track.Name != "harbour" || !track.Loop || len(track.Points) != 3) {
				t.Fatalf("unexpected track %+v", track)
			}
		})
	}
}

func TestLoadTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.yaml")
	if err := os.WriteFile(path, []byte("points:\n  - {lat: 1, lon: 2}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	track, err := LoadTrack(path)
	if err != nil {
		t.Fatalf("LoadTrack returned error: %v", err)
	}
	if track.Name != path {
		t.Errorf("Name = %q, want file path", track.Name)
	}

	if _, err := LoadTrack(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReplay_LoopsInOrder(t *testing.T) {
	track, err := ParseTrack([]byte(harbourTrack))
	if err != nil {
		t.Fatal(err)
	}
	r := NewReplay(track, nil, nil)
	sink := &recordingSink{}
	ctx := context.Background()

	id, err := r.RequestUpdates(ctx, fastRequest, sink)
	if err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "five fixes", func() bool { n, _ := sink.counts(); return n >= 5 })
	if err := r.CancelUpdates(ctx, id); err != nil {
		t.Fatal(err)
	}

	fixes, errs := sink.snapshot()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	for i, f := range fixes {
		p := track.Points[i%len(track.Points)]
		if f.Latitude != p.Lat || f.Longitude != p.Lon {
			t.Fatalf("fix %d = %v, want %+v", i, f, p)
		}
	}
}

func TestReplay_EndsWithoutLoop(t *testing.T) {
	track := &Track{Name: "once", Points: []TrackPoint{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}
	r := NewReplay(track, nil, nil)
	sink := &recordingSink{}

	if _, err := r.RequestUpdates(context.Background(), fastRequest, sink); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "track end", func() bool { _, n := sink.counts(); return n == 1 })

	fixes, errs := sink.snapshot()
	if len(fixes) != 2 {
		t.Errorf("got %d fixes, want 2", len(fixes))
	}
	if !errors.Is(errs[0], ErrTrackEnded) || !errors.Is(errs[0], domain.ErrProviderUnavailable) {
		t.Errorf("error = %v, want ErrTrackEnded wrapped as ErrProviderUnavailable", errs[0])
	}
	if r.Subscriptions() != 0 {
		t.Errorf("subscriptions = %d, want 0", r.Subscriptions())
	}
}
