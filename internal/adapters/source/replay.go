package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// ErrTrackEnded is reported when a non-looping track runs out of points.
var ErrTrackEnded = errors.New("source: track ended")

// Track is a recorded sequence of positions.
//
//	name: harbour-loop
//	loop: true
//	points:
//	  - {lat: 59.9127, lon: 10.7461}
//	  - {lat: 59.9131, lon: 10.7470}
type Track struct {
	Name   string       `yaml:"name"`
	Loop   bool         `yaml:"loop"`
	Points []TrackPoint `yaml:"points" validate:"required,min=1,dive"`
}

// TrackPoint is one recorded position.
type TrackPoint struct {
	Lat float64 `yaml:"lat" validate:"latitude"`
	Lon float64 `yaml:"lon" validate:"longitude"`
}

var trackValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseTrack decodes and validates a YAML track. Unknown fields are rejected.
func ParseTrack(data []byte) (*Track, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Track
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse track: %w", err)
	}
	if err := trackValidator.Struct(&t); err != nil {
		return nil, fmt.Errorf("invalid track: %w", err)
	}
	return &t, nil
}

// LoadTrack reads a YAML track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	t, err := ParseTrack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = path
	}
	return t, nil
}

// Replay is a LocationSource that plays a Track back at the requested
// interval, stamping each point with the current time. Every subscription
// starts from the first point.
type Replay struct {
	track  *Track
	logger log.Logger
	reg    *registry
	now    func() time.Time
}

// NewReplay creates a replay source. When gate is non-nil, subscribing
// without permission fails with domain.ErrPermissionDenied.
func NewReplay(track *Track, gate ports.PermissionGate, logger log.Logger) *Replay {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Replay{
		track:  track,
		logger: logger,
		reg:    newRegistry(gate),
		now:    time.Now,
	}
}

// RequestUpdates starts playback delivered to sink.
func (r *Replay) RequestUpdates(ctx context.Context, req domain.LocationRequest, sink ports.FixSink) (ports.SubscriptionID, error) {
	interval := tickInterval(req)
	id, err := r.reg.start(ctx, sink, func(ctx context.Context, emit func(domain.Fix)) error {
		return r.play(ctx, interval, emit)
	})
	if err != nil {
		return id, err
	}

	r.logger.Debug("replay subscription started",
		log.Stringer("subscription", id),
		log.String("track", r.track.Name),
		log.Int("points", len(r.track.Points)),
	)
	return id, nil
}

// CancelUpdates stops playback and returns once no more fixes can follow.
func (r *Replay) CancelUpdates(ctx context.Context, id ports.SubscriptionID) error {
	return r.reg.cancel(ctx, id)
}

// Fail ends every live subscription with err, as a provider outage would.
func (r *Replay) Fail(err error) {
	r.reg.failAll(err)
}

// Subscriptions returns the number of live subscriptions.
func (r *Replay) Subscriptions() int {
	return r.reg.len()
}

func (r *Replay) play(ctx context.Context, interval time.Duration, emit func(domain.Fix)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(r.track.Points) {
			if !r.track.Loop {
				return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, ErrTrackEnded)
			}
			i = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p := r.track.Points[i]
			emit(domain.Fix{Time: r.now(), Latitude: p.Lat, Longitude: p.Lon})
		}
	}
}
