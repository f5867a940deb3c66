package geotrack

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/geotrack/internal/adapters/console"
	"github.com/bft-labs/geotrack/internal/adapters/fs"
	"github.com/bft-labs/geotrack/internal/adapters/source"
	"github.com/bft-labs/geotrack/internal/app"
	"github.com/bft-labs/geotrack/pkg/log"
)

// Tracker is a location-tracking session that can be embedded in other
// applications. Use New() to create an instance, then Start() to run it.
type Tracker struct {
	config  Config
	opts    options
	logger  log.Logger
	bus     *app.Bus
	worker  *app.Worker
	session *app.Controller
	watcher *fs.FlagWatcher
	emitter *eventEmitterWrapper

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Tracker with the given configuration. Nothing runs until
// Start is called. Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.validate(o.flagStore != nil); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	gate := o.gate
	if gate == nil {
		g, err := console.NewPermissionGate(console.PermissionGranted, nil)
		if err != nil {
			return nil, err
		}
		gate = g
	}

	store := o.flagStore
	var fileStore *fs.FlagStore
	if store == nil {
		fileStore = fs.NewFlagStore(cfg.StateDir)
		store = fileStore
	}

	src := o.source
	if src == nil {
		if err := cfg.Simulator.Validate(); err != nil {
			return nil, err
		}
		src = source.NewSimulator(cfg.Simulator, gate, logger)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	bus := app.NewBus()
	flag := app.NewPersistentFlag(store, app.TrackingFlagKey)
	worker := app.NewWorker(cfg.workerConfig(), src, gate, o.presenter, flag, bus, logger, emitter)
	session := app.NewController(worker, bus, gate, o.presenter, logger, cfg.MaxLogLines)

	var watcher *fs.FlagWatcher
	if fileStore != nil {
		watcher = fs.NewFlagWatcher(fileStore, app.TrackingFlagKey, session.OnFlagChanged, logger)
	}

	return &Tracker{
		config:  cfg,
		opts:    o,
		logger:  logger,
		bus:     bus,
		worker:  worker,
		session: session,
		watcher: watcher,
		emitter: emitter,
	}, nil
}

// Start loads the persisted intent and resumes tracking if it was on.
// Missing permission or an unavailable provider do not fail Start; the
// tracker waits in Suspended and the condition is logged.
// ctx bounds the tracker's background work; Stop must still be called.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)

	var events app.Handle
	if t.emitter.handler != nil {
		events = t.bus.Subscribe(t.emitter.onUpdate)
	}

	if t.watcher != nil {
		done := make(chan struct{})
		t.done = done
		go func() {
			defer close(done)
			if err := t.watcher.Run(runCtx); err != nil {
				t.logger.Error("flag watcher stopped", log.Err(err))
			}
		}()
	}

	err := t.worker.Init(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrPermissionDenied):
		t.logger.Warn("tracking not resumed: location permission not granted")
	case errors.Is(err, ErrProviderUnavailable):
		t.logger.Warn("tracking resume deferred", log.Err(err))
	default:
		cancel()
		if events != 0 {
			t.bus.Unsubscribe(events)
		}
		if t.done != nil {
			<-t.done
			t.done = nil
		}
		return err
	}

	t.cancel = cancel
	t.running = true
	t.logger.Info("tracker started",
		log.Stringer("state", t.worker.State()),
		log.Bool("desired", t.worker.Desired()),
	)
	return nil
}

// Stop shuts the tracker down. Any live subscription is torn down but the
// persisted intent is kept, so tracking resumes on the next Start of a new
// Tracker. A stopped Tracker cannot be restarted.
// Returns ErrShutdownTimeout if teardowns did not finish in time.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.running = false
	t.closed = true
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	if done != nil {
		<-done
	}

	ctx, stop := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer stop()
	err := t.worker.Shutdown(ctx)
	t.bus.Close()

	t.logger.Info("tracker stopped")
	return err
}

// Session returns the front-end controller.
func (t *Tracker) Session() *Session {
	return t.session
}

// Status returns a snapshot of the tracker.
// Safe to call concurrently from any goroutine.
func (t *Tracker) Status() Status {
	st := Status{
		State:   t.worker.State(),
		Desired: t.worker.Desired(),
		Mode:    t.worker.Mode(),
	}
	if fix, ok := t.worker.CurrentFix(); ok {
		st.Fix = &fix
	}
	return st
}
