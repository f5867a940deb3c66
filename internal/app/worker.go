package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// Default timeouts for the worker.
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultTeardownTimeout = 10 * time.Second
)

// WorkerConfig contains configuration for the tracking worker.
type WorkerConfig struct {
	Request domain.LocationRequest

	// RequestTimeout bounds the wait for the first fix after subscribing.
	// Zero disables the timeout.
	RequestTimeout time.Duration

	// RetryInitial and RetryMax bound the backoff between retries while Suspended.
	RetryInitial time.Duration
	RetryMax     time.Duration

	// TeardownTimeout bounds each CancelUpdates call.
	TeardownTimeout time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Request:         domain.DefaultLocationRequest(),
		RequestTimeout:  DefaultRequestTimeout,
		RetryInitial:    DefaultRetryInitial,
		RetryMax:        DefaultRetryMax,
		TeardownTimeout: DefaultTeardownTimeout,
	}
}

// Worker owns the location subscription and the tracking state machine.
//
// All state is guarded by mu. Side effects that call out of the worker
// (event emitter, bus, presenter) are collected while locked and run after
// unlocking, so observers may call back into the worker.
//
// Every subscribe attempt and every teardown bumps gen. Callbacks carry the
// gen of the subscription they belong to and are dropped when it no longer
// matches, which is how fixes from a stopped or abandoned subscription are
// ignored.
type Worker struct {
	mu        sync.Mutex
	cfg       WorkerConfig
	source    ports.LocationSource
	gate      ports.PermissionGate
	presenter ports.Presenter
	flag      *PersistentFlag
	bus       *Bus
	logger    log.Logger
	lc        *lifecycle
	backoff   *backoff

	mode         domain.PresentationMode
	configChange bool
	indicator    bool
	current      domain.Fix
	hasFix       bool

	gen             uint64
	sub             ports.SubscriptionID
	subscribing     bool
	cancelSubscribe context.CancelFunc
	handshakeErr    error
	releasing       int
	stopping        bool
	closed          bool

	retryTimer   *time.Timer
	requestTimer *time.Timer
}

// NewWorker creates a worker in StateStopped. Call Init to recover the
// persisted tracking intent.
func NewWorker(
	cfg WorkerConfig,
	source ports.LocationSource,
	gate ports.PermissionGate,
	presenter ports.Presenter,
	flag *PersistentFlag,
	bus *Bus,
	logger log.Logger,
	emitter EventEmitter,
) *Worker {
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = DefaultTeardownTimeout
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Worker{
		cfg:       cfg,
		source:    source,
		gate:      gate,
		presenter: presenter,
		flag:      flag,
		bus:       bus,
		logger:    logger,
		lc:        newLifecycle(logger, emitter),
		backoff:   newBackoff(cfg.RetryInitial, cfg.RetryMax),
	}
}

// Init reads the persisted flag and, if tracking was on before the process
// ended, resumes it. Without permission the worker settles in Suspended and
// ErrPermissionDenied is returned; an explicit Start resumes later.
func (w *Worker) Init(ctx context.Context) error {
	desired, err := w.flag.Load(ctx)
	if err != nil {
		return err
	}
	if !desired {
		w.logger.Debug("no persisted tracking to resume")
		return nil
	}

	if !w.gate.HasPermission(ctx) {
		w.mu.Lock()
		w.lc.transitionTo(domain.StateSuspended, "resume without permission")
		w.unlockAndRun(effects{errs: []error{domain.ErrPermissionDenied}})
		return domain.ErrPermissionDenied
	}

	w.mu.Lock()
	if err := w.startableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.lc.transitionTo(domain.StateRequesting, "resuming persisted tracking")
	return w.subscribeLocked(ctx)
}

// Start begins tracking. Valid from Stopped and Suspended.
//
// Returns ErrPermissionDenied without changing state when location access
// is missing. If the provider rejects the subscription for lack of
// permission the flag is rolled back and the worker returns to Stopped.
// Other provider failures leave the worker Suspended with a retry scheduled.
// ctx bounds only the subscribe handshake.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	err := w.startableLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}

	if !w.gate.HasPermission(ctx) {
		w.logger.Warn("start refused: location permission not granted")
		return domain.ErrPermissionDenied
	}

	w.mu.Lock()
	if err := w.startableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.flag.Set(true); err != nil {
		w.mu.Unlock()
		return err
	}
	w.stopRetryLocked()
	w.lc.transitionTo(domain.StateRequesting, "start requested")
	return w.subscribeLocked(ctx)
}

// Stop ends tracking. The flag is cleared before Stop returns; the worker
// reaches Stopped once the provider acknowledges the teardown. Fixes that
// arrive in between are dropped.
func (w *Worker) Stop() error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return domain.ErrClosed
	case w.stopping:
		w.mu.Unlock()
		return nil
	case w.lc.state == domain.StateStopped:
		w.mu.Unlock()
		return domain.ErrNotRunning
	}

	var ferr error
	if err := w.flag.Set(false); err != nil {
		w.logger.Error("failed to persist tracking flag", log.Err(err))
		ferr = err
	}

	w.gen++
	w.stopping = true
	w.stopRetryLocked()
	w.stopRequestTimerLocked()
	if w.subscribing {
		w.cancelSubscribe()
	}
	if w.sub != uuid.Nil {
		id := w.sub
		w.sub = uuid.Nil
		w.releaseLocked(id)
	}

	var fx effects
	w.maybeFinishStopLocked(&fx)
	w.unlockAndRun(fx)
	return ferr
}

// Shutdown tears down any live subscription and waits for in-flight
// teardowns. The persisted flag is left untouched so that tracking resumes
// on the next Init.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.gen++
	w.stopRetryLocked()
	w.stopRequestTimerLocked()
	if w.subscribing {
		w.cancelSubscribe()
	}
	if w.sub != uuid.Nil {
		id := w.sub
		w.sub = uuid.Nil
		w.releaseLocked(id)
	}
	var fx effects
	if w.indicator {
		w.indicator = false
		fx.clear = true
	}
	w.unlockAndRun(fx)

	timeout := ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return w.lc.waitWithTimeout(timeout)
}

// SetPresentationMode switches between attached and detached presentation.
// Going to Background raises the persistent indicator when tracking is
// desired, unless the detach is part of a configuration change.
func (w *Worker) SetPresentationMode(mode domain.PresentationMode) {
	w.mu.Lock()
	prev := w.mode
	w.mode = mode

	var fx effects
	switch {
	case mode == domain.Foreground:
		w.configChange = false
		if w.indicator {
			w.indicator = false
			fx.clear = true
		}
	case prev == domain.Foreground && !w.configChange && !w.stopping && w.flag.Get():
		w.indicator = true
		text := w.indicatorTextLocked()
		fx.render = &text
	}
	w.unlockAndRun(fx)

	w.logger.Debug("presentation mode changed",
		log.Stringer("from", prev),
		log.Stringer("to", mode),
	)
}

// MarkConfigurationChange records that the next detach is a front-end
// restart rather than the user leaving; no indicator is raised for it.
func (w *Worker) MarkConfigurationChange() {
	w.mu.Lock()
	w.configChange = true
	w.mu.Unlock()
}

// State returns the current tracking state.
func (w *Worker) State() domain.TrackingState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lc.state
}

// Desired returns the persisted tracking intent.
func (w *Worker) Desired() bool {
	return w.flag.Get()
}

// StoredIntent reads the tracking intent from the backing store.
func (w *Worker) StoredIntent(ctx context.Context) (bool, error) {
	return w.flag.Stored(ctx)
}

// Mode returns the current presentation mode.
func (w *Worker) Mode() domain.PresentationMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// CurrentFix returns the most recent fix, if any.
func (w *Worker) CurrentFix() (domain.Fix, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, w.hasFix
}

func (w *Worker) startableLocked() error {
	switch {
	case w.closed:
		return domain.ErrClosed
	case w.stopping || w.releasing > 0:
		return domain.ErrTeardownPending
	case w.lc.state == domain.StateRequesting || w.lc.state == domain.StateActive:
		return domain.ErrAlreadyRunning
	}
	return nil
}

// subscribeLocked issues the subscribe request. It must be called with mu
// held and the state already Requesting; it returns with mu released.
func (w *Worker) subscribeLocked(ctx context.Context) error {
	w.gen++
	gen := w.gen
	subCtx, cancel := context.WithCancel(ctx)
	w.subscribing = true
	w.cancelSubscribe = cancel
	w.handshakeErr = nil
	req := w.cfg.Request
	// Shutdown waits for the handshake and for any release it triggers.
	w.lc.wg.Add(1)
	defer w.lc.wg.Done()
	w.unlockAndRun(effects{})

	id, err := w.source.RequestUpdates(subCtx, req, &subscriptionSink{w: w, gen: gen})
	cancel()

	w.mu.Lock()
	w.subscribing = false
	w.cancelSubscribe = nil
	live := err == nil
	if live && w.handshakeErr != nil {
		// The provider reported the subscription dead before we saw the ack.
		err, live = w.handshakeErr, false
	}
	w.handshakeErr = nil

	var fx effects
	if gen != w.gen {
		// Stop or Shutdown ran during the handshake.
		if live {
			w.releaseLocked(id)
		}
		w.maybeFinishStopLocked(&fx)
		w.unlockAndRun(fx)
		return domain.ErrStartCanceled
	}

	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			if ferr := w.flag.Set(false); ferr != nil {
				w.logger.Error("failed to roll back tracking flag", log.Err(ferr))
			}
			w.lc.transitionTo(domain.StateStopped, "subscribe denied")
			w.clearIndicatorLocked(&fx)
			w.unlockAndRun(fx)
			return fmt.Errorf("subscribe: %w", err)
		}
		perr := providerError(err)
		w.suspendLocked(perr, &fx)
		w.unlockAndRun(fx)
		return fmt.Errorf("subscribe: %w", perr)
	}

	w.sub = id
	if w.lc.state == domain.StateRequesting {
		w.armRequestTimerLocked(gen)
	}
	w.unlockAndRun(fx)

	w.logger.Info("subscribed to location updates",
		log.Stringer("subscription", id),
		log.Duration("interval", req.Interval),
		log.Stringer("accuracy", req.Accuracy),
	)
	return nil
}

func (w *Worker) handleFix(gen uint64, fix domain.Fix) {
	w.mu.Lock()
	st := w.lc.state
	if gen != w.gen || w.stopping || w.closed || (st != domain.StateRequesting && st != domain.StateActive) {
		w.mu.Unlock()
		w.logger.Debug("dropped fix from stale subscription")
		return
	}

	if st == domain.StateRequesting {
		w.stopRequestTimerLocked()
		w.backoff.Reset()
		w.lc.transitionTo(domain.StateActive, "first fix received")
	}
	w.current = fix
	w.hasFix = true

	fx := effects{fix: &fix}
	if w.mode == domain.Background && !w.configChange {
		w.indicator = true
		text := fix.Text()
		fx.render = &text
	}
	w.unlockAndRun(fx)
}

func (w *Worker) handleProviderError(gen uint64, err error) {
	w.mu.Lock()
	if gen != w.gen || w.stopping || w.closed {
		w.mu.Unlock()
		return
	}
	if w.subscribing {
		w.handshakeErr = err
		w.mu.Unlock()
		return
	}

	// The provider considers the subscription dead; nothing to cancel.
	w.sub = uuid.Nil
	w.gen++
	perr := err
	if !errors.Is(err, domain.ErrPermissionDenied) {
		perr = providerError(err)
	}

	var fx effects
	w.suspendLocked(perr, &fx)
	w.unlockAndRun(fx)
}

func (w *Worker) requestTimedOut(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.lc.state != domain.StateRequesting || w.stopping || w.closed {
		w.mu.Unlock()
		return
	}
	w.requestTimer = nil

	if w.sub != uuid.Nil {
		id := w.sub
		w.sub = uuid.Nil
		w.releaseLocked(id)
	}
	w.gen++

	var fx effects
	w.suspendLocked(domain.ErrRequestTimeout, &fx)
	w.unlockAndRun(fx)
}

func (w *Worker) retry(gen uint64) {
	if !w.retryDue(gen) {
		return
	}

	ctx := context.Background()
	if !w.gate.HasPermission(ctx) {
		w.logger.Warn("retry skipped: location permission not granted")
		w.bus.PublishError(domain.ErrPermissionDenied)
		return
	}

	w.mu.Lock()
	if gen != w.gen || w.closed || w.stopping || w.lc.state != domain.StateSuspended {
		w.mu.Unlock()
		return
	}
	if w.releasing > 0 {
		// Keep at most one live subscription: wait for the old one to go.
		w.scheduleRetryLocked()
		w.mu.Unlock()
		return
	}
	w.lc.transitionTo(domain.StateRequesting, "retry")
	_ = w.subscribeLocked(ctx)
}

func (w *Worker) retryDue(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || w.closed || w.stopping || w.lc.state != domain.StateSuspended {
		return false
	}
	w.retryTimer = nil
	return true
}

// suspendLocked moves to Suspended and schedules a retry unless the cause
// is a permission problem, which is never retried automatically.
func (w *Worker) suspendLocked(cause error, fx *effects) {
	w.stopRequestTimerLocked()
	w.lc.transitionTo(domain.StateSuspended, cause.Error())
	fx.errs = append(fx.errs, cause)

	if errors.Is(cause, domain.ErrPermissionDenied) {
		w.logger.Warn("tracking suspended until permission is granted", log.Err(cause))
		return
	}
	w.scheduleRetryLocked()
}

func (w *Worker) scheduleRetryLocked() {
	w.stopRetryLocked()
	delay := w.backoff.Next()
	gen := w.gen
	w.retryTimer = time.AfterFunc(delay, func() { w.retry(gen) })
	w.logger.Info("retry scheduled", log.Duration("delay", delay))
}

func (w *Worker) stopRetryLocked() {
	if w.retryTimer != nil {
		w.retryTimer.Stop()
		w.retryTimer = nil
	}
}

func (w *Worker) armRequestTimerLocked(gen uint64) {
	w.stopRequestTimerLocked()
	if w.cfg.RequestTimeout <= 0 {
		return
	}
	w.requestTimer = time.AfterFunc(w.cfg.RequestTimeout, func() { w.requestTimedOut(gen) })
}

func (w *Worker) stopRequestTimerLocked() {
	if w.requestTimer != nil {
		w.requestTimer.Stop()
		w.requestTimer = nil
	}
}

// releaseLocked cancels a subscription in the background. The worker
// counts it as releasing until the provider acknowledges.
func (w *Worker) releaseLocked(id ports.SubscriptionID) {
	w.releasing++
	w.lc.wg.Add(1)
	go func() {
		defer w.lc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.TeardownTimeout)
		err := w.source.CancelUpdates(ctx, id)
		cancel()
		w.released(id, err)
	}()
}

func (w *Worker) released(id ports.SubscriptionID, err error) {
	w.mu.Lock()
	w.releasing--

	var fx effects
	if err != nil {
		terr := fmt.Errorf("%w: %v", domain.ErrTeardownFailed, err)
		w.logger.Warn("subscription teardown failed",
			log.Stringer("subscription", id),
			log.Err(err),
		)
		fx.errs = append(fx.errs, terr)
	} else {
		w.logger.Debug("subscription removed", log.Stringer("subscription", id))
	}
	w.maybeFinishStopLocked(&fx)
	w.unlockAndRun(fx)
}

// maybeFinishStopLocked settles a pending Stop once nothing is in flight.
func (w *Worker) maybeFinishStopLocked(fx *effects) {
	if !w.stopping || w.subscribing || w.releasing > 0 {
		return
	}
	w.stopping = false
	w.lc.transitionTo(domain.StateStopped, "teardown acknowledged")
	w.clearIndicatorLocked(fx)
}

func (w *Worker) clearIndicatorLocked(fx *effects) {
	if w.indicator {
		w.indicator = false
		fx.clear = true
	}
}

func (w *Worker) indicatorTextLocked() string {
	if !w.hasFix {
		return domain.IndicatorText(nil)
	}
	f := w.current
	return domain.IndicatorText(&f)
}

// effects are side effects collected under the lock and run after it.
type effects struct {
	changes []stateChange
	errs    []error
	fix     *domain.Fix
	render  *string
	clear   bool
}

func (w *Worker) unlockAndRun(fx effects) {
	fx.changes = w.lc.takePending()
	w.mu.Unlock()

	w.lc.announce(fx.changes)
	for _, err := range fx.errs {
		w.bus.PublishError(err)
	}
	if fx.fix != nil {
		w.bus.Publish(*fx.fix)
	}
	if fx.clear {
		w.presenter.ClearIndicator()
	}
	if fx.render != nil {
		w.presenter.RenderIndicator(*fx.render)
	}
}

// providerError normalizes a subscribe or provider failure to
// ErrProviderUnavailable so callers can match it with errors.Is.
func providerError(err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrRequestTimeout) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}

// subscriptionSink tags provider callbacks with the subscription's gen.
type subscriptionSink struct {
	w   *Worker
	gen uint64
}

func (s *subscriptionSink) OnFix(_ ports.SubscriptionID, fix domain.Fix) {
	s.w.handleFix(s.gen, fix)
}

func (s *subscriptionSink) OnProviderError(_ ports.SubscriptionID, err error) {
	s.w.handleProviderError(s.gen, err)
}

type nopPresenter struct{}

func (nopPresenter) RenderIndicator(string) {}
func (nopPresenter) ClearIndicator()        {}
func (nopPresenter) OpenSettings()          {}
