package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// fakeSource is a scriptable LocationSource.
type fakeSource struct {
	mu         sync.Mutex
	live       map[ports.SubscriptionID]ports.FixSink
	sinks      map[ports.SubscriptionID]ports.FixSink
	requests   int
	cancels    []ports.SubscriptionID
	maxLive    int
	requestErr error
	cancelErr  error

	// When set, RequestUpdates signals entered and then waits on release
	// regardless of ctx, to model a late acknowledgment.
	entered chan struct{}
	release chan struct{}

	// When set, CancelUpdates waits on cancelRelease before acknowledging.
	cancelRelease chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		live:  make(map[ports.SubscriptionID]ports.FixSink),
		sinks: make(map[ports.SubscriptionID]ports.FixSink),
	}
}

func (s *fakeSource) RequestUpdates(ctx context.Context, req domain.LocationRequest, sink ports.FixSink) (ports.SubscriptionID, error) {
	s.mu.Lock()
	s.requests++
	entered, release, reqErr := s.entered, s.release, s.requestErr
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if reqErr != nil {
		return uuid.Nil, reqErr
	}

	id := uuid.New()
	s.mu.Lock()
	s.live[id] = sink
	s.sinks[id] = sink
	if len(s.live) > s.maxLive {
		s.maxLive = len(s.live)
	}
	s.mu.Unlock()
	return id, nil
}

func (s *fakeSource) CancelUpdates(ctx context.Context, id ports.SubscriptionID) error {
	s.mu.Lock()
	release := s.cancelRelease
	s.mu.Unlock()
	if release != nil {
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
	s.cancels = append(s.cancels, id)
	return s.cancelErr
}

// emit delivers fix to every live subscription.
func (s *fakeSource) emit(fix domain.Fix) {
	for id, sink := range s.liveSinks() {
		sink.OnFix(id, fix)
	}
}

// fail kills every live subscription with err.
func (s *fakeSource) fail(err error) {
	sinks := s.liveSinks()
	s.mu.Lock()
	for id := range sinks {
		delete(s.live, id)
	}
	s.mu.Unlock()
	for id, sink := range sinks {
		sink.OnProviderError(id, err)
	}
}

func (s *fakeSource) liveSinks() map[ports.SubscriptionID]ports.FixSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ports.SubscriptionID]ports.FixSink, len(s.live))
	for id, sink := range s.live {
		out[id] = sink
	}
	return out
}

func (s *fakeSource) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *fakeSource) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *fakeSource) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

func (s *fakeSource) setRequestErr(err error) {
	s.mu.Lock()
	s.requestErr = err
	s.mu.Unlock()
}

// fakeGate grants or denies permission on demand.
type fakeGate struct {
	mu       sync.Mutex
	granted  bool
	answer   domain.Grant
	requests int
}

func (g *fakeGate) HasPermission(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

func (g *fakeGate) RequestPermission(ctx context.Context) (domain.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	if g.answer == domain.GrantGranted {
		g.granted = true
	}
	return g.answer, nil
}

func (g *fakeGate) set(granted bool) {
	g.mu.Lock()
	g.granted = granted
	g.mu.Unlock()
}

// fakePresenter records presentation calls.
type fakePresenter struct {
	mu       sync.Mutex
	renders  []string
	clears   int
	settings int
}

func (p *fakePresenter) RenderIndicator(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, text)
}

func (p *fakePresenter) ClearIndicator() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
}

func (p *fakePresenter) OpenSettings() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings++
}

func (p *fakePresenter) snapshot() ([]string, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.renders...), p.clears, p.settings
}

// memFlagStore is an in-memory FlagStore.
type memFlagStore struct {
	mu       sync.Mutex
	values   map[string]bool
	writes   int
	writeErr error
}

func newMemFlagStore() *memFlagStore {
	return &memFlagStore{values: make(map[string]bool)}
}

func (m *memFlagStore) ReadFlag(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memFlagStore) WriteFlag(ctx context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.values[key] = value
	return nil
}

func (m *memFlagStore) get(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func (m *memFlagStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// recordingEmitter tracks state change events for testing.
type recordingEmitter struct {
	mu     sync.Mutex
	events []stateChange
}

func (e *recordingEmitter) OnStateChange(previous, current domain.TrackingState, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, stateChange{from: previous, to: current, reason: reason})
}

func (e *recordingEmitter) Events() []stateChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]stateChange{}, e.events...)
}

// collector gathers bus updates.
type collector struct {
	mu      sync.Mutex
	updates []Update
}

func (c *collector) add(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector) fixes() []domain.Fix {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Fix
	for _, u := range c.updates {
		if u.Kind == UpdateFix {
			out = append(out, u.Fix)
		}
	}
	return out
}

func (c *collector) errs() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []error
	for _, u := range c.updates {
		if u.Kind == UpdateError {
			out = append(out, u.Err)
		}
	}
	return out
}

func (c *collector) hasErr(target error) bool {
	for _, err := range c.errs() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// harness wires a worker to fakes.
type harness struct {
	source    *fakeSource
	gate      *fakeGate
	presenter *fakePresenter
	store     *memFlagStore
	flag      *PersistentFlag
	bus       *Bus
	emitter   *recordingEmitter
	worker    *Worker
	updates   *collector
}

func newHarness(t *testing.T, mutate func(*WorkerConfig)) *harness {
	t.Helper()

	cfg := DefaultWorkerConfig()
	cfg.RetryInitial = 10 * time.Millisecond
	cfg.RetryMax = 20 * time.Millisecond
	cfg.RequestTimeout = 0
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		source:    newFakeSource(),
		gate:      &fakeGate{granted: true, answer: domain.GrantGranted},
		presenter: &fakePresenter{},
		store:     newMemFlagStore(),
		bus:       NewBus(),
		emitter:   &recordingEmitter{},
		updates:   &collector{},
	}
	h.flag = NewPersistentFlag(h.store, TrackingFlagKey)
	h.worker = NewWorker(cfg, h.source, h.gate, h.presenter, h.flag, h.bus, log.NewNoopLogger(), h.emitter)
	h.bus.Subscribe(h.updates.add)

	t.Cleanup(func() {
		_ = h.worker.Shutdown(context.Background())
		h.bus.Close()
	})
	return h
}

func (h *harness) persisted() bool {
	return h.store.get(TrackingFlagKey)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, w *Worker, want domain.TrackingState) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return w.State() == want })
}

var testFix = domain.Fix{
	Time:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	Latitude:  10.0,
	Longitude: 20.0,
}
