package source

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// SimulatorConfig configures the random-walk source.
type SimulatorConfig struct {
	// Latitude and Longitude are the walk's starting point.
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`

	// Step is the largest move per fix, in degrees on each axis.
	Step float64 `validate:"gte=0,lte=1"`

	// Seed makes the walk reproducible. Zero seeds from the clock.
	Seed int64
}

// Validate checks the origin and step.
func (c SimulatorConfig) Validate() error {
	if err := trackValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: simulator: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// DefaultSimulatorConfig starts the walk at Null Island with ~10m steps.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{Step: 0.0001}
}

// Simulator is a LocationSource producing a random walk around an origin.
// Each subscription walks independently; the first fix arrives one
// interval after RequestUpdates returns.
type Simulator struct {
	cfg    SimulatorConfig
	logger log.Logger
	reg    *registry
	now    func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulator creates a simulator. When gate is non-nil, subscribing
// without permission fails with domain.ErrPermissionDenied.
func NewSimulator(cfg SimulatorConfig, gate ports.PermissionGate, logger log.Logger) *Simulator {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		cfg:    cfg,
		logger: logger,
		reg:    newRegistry(gate),
		now:    time.Now,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// RequestUpdates starts a walk delivered to sink.
func (s *Simulator) RequestUpdates(ctx context.Context, req domain.LocationRequest, sink ports.FixSink) (ports.SubscriptionID, error) {
	interval := tickInterval(req)
	id, err := s.reg.start(ctx, sink, func(ctx context.Context, emit func(domain.Fix)) error {
		return s.walk(ctx, interval, emit)
	})
	if err != nil {
		return id, err
	}

	s.logger.Debug("simulated subscription started",
		log.Stringer("subscription", id),
		log.Duration("interval", interval),
		log.Float64("origin_lat", s.cfg.Latitude),
		log.Float64("origin_lon", s.cfg.Longitude),
	)
	return id, nil
}

// CancelUpdates stops the walk and returns once no more fixes can follow.
func (s *Simulator) CancelUpdates(ctx context.Context, id ports.SubscriptionID) error {
	if err := s.reg.cancel(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("simulated subscription canceled", log.Stringer("subscription", id))
	return nil
}

// Fail ends every live subscription with err, as a provider outage would.
func (s *Simulator) Fail(err error) {
	s.reg.failAll(err)
}

// Subscriptions returns the number of live subscriptions.
func (s *Simulator) Subscriptions() int {
	return s.reg.len()
}

func (s *Simulator) walk(ctx context.Context, interval time.Duration, emit func(domain.Fix)) error {
	lat, lon := s.cfg.Latitude, s.cfg.Longitude

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dlat, dlon := s.step()
			lat = clamp(lat+dlat, -90, 90)
			lon = wrapLongitude(lon + dlon)
			emit(domain.Fix{Time: s.now(), Latitude: lat, Longitude: lon})
		}
	}
}

func (s *Simulator) step() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rand.Float64()*2 - 1) * s.cfg.Step, (s.rand.Float64()*2 - 1) * s.cfg.Step
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
