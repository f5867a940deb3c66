package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
	"github.com/bft-labs/geotrack/pkg/log"
)

// Toggle labels shown by the front-end.
const (
	LabelStart = "Start Location Updates"
	LabelStop  = "Stop Location Updates"
)

// DefaultMaxLogLines bounds the rendered fix log.
const DefaultMaxLogLines = 200

// Controller is the front-end facing side of a tracking session. It maps
// the toggle onto worker Start/Stop, handles the permission flow and keeps
// a bounded log of rendered updates.
type Controller struct {
	worker    *Worker
	bus       *Bus
	gate      ports.PermissionGate
	presenter ports.Presenter
	logger    log.Logger
	maxLines  int

	mu          sync.Mutex
	attached    bool
	handle      Handle
	lines       []string
	remediation bool
	onChange    func()
}

// NewController creates a detached controller. maxLines <= 0 selects
// DefaultMaxLogLines.
func NewController(
	worker *Worker,
	bus *Bus,
	gate ports.PermissionGate,
	presenter ports.Presenter,
	logger log.Logger,
	maxLines int,
) *Controller {
	if maxLines <= 0 {
		maxLines = DefaultMaxLogLines
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Controller{
		worker:    worker,
		bus:       bus,
		gate:      gate,
		presenter: presenter,
		logger:    logger,
		maxLines:  maxLines,
	}
}

// OnChange registers a callback run after the log, label or remediation
// state changes. It runs on the goroutine that caused the change.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Attach binds the front-end: it starts receiving updates and the worker
// switches to foreground presentation.
func (c *Controller) Attach() {
	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return
	}
	c.attached = true
	c.handle = c.bus.Subscribe(c.onUpdate)
	c.mu.Unlock()

	c.worker.SetPresentationMode(domain.Foreground)
	c.changed()
}

// Detach unbinds the front-end; the worker keeps tracking in the background.
func (c *Controller) Detach() {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.attached = false
	h := c.handle
	c.mu.Unlock()

	c.bus.Unsubscribe(h)
	c.worker.SetPresentationMode(domain.Background)
}

// Reattach models a front-end restart such as a display rotation. The
// worker does not raise its indicator for the brief detach.
func (c *Controller) Reattach() {
	c.worker.MarkConfigurationChange()
	c.Detach()
	c.Attach()
}

// Attached reports whether the front-end is bound.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Toggle stops tracking when it is desired and starts it otherwise,
// requesting permission first if needed. A denial is returned as
// ErrPermissionDenied and enables the remediation action; it is never
// retried automatically.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.worker.Desired() {
		err := c.worker.Stop()
		c.changed()
		return err
	}

	if !c.gate.HasPermission(ctx) {
		grant, err := c.gate.RequestPermission(ctx)
		if err != nil {
			return err
		}
		switch grant {
		case domain.GrantCanceled:
			c.logger.Info("permission request canceled by user")
			return nil
		case domain.GrantDenied:
			c.denied()
			return domain.ErrPermissionDenied
		}
	}

	err := c.worker.Start(ctx)
	if errors.Is(err, domain.ErrPermissionDenied) {
		c.denied()
	}
	c.changed()
	return err
}

// StopTracking ends tracking without toggling, like the indicator's stop
// action. Returns ErrNotRunning when nothing is tracked.
func (c *Controller) StopTracking() error {
	err := c.worker.Stop()
	c.changed()
	return err
}

// Label returns the toggle label for the current tracking intent.
func (c *Controller) Label() string {
	if c.worker.Desired() {
		return LabelStop
	}
	return LabelStart
}

// Remediation reports whether the open-settings action should be offered.
func (c *Controller) Remediation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remediation
}

// OpenSettings runs the remediation action.
func (c *Controller) OpenSettings() {
	c.mu.Lock()
	c.remediation = false
	c.mu.Unlock()

	c.presenter.OpenSettings()
	c.changed()
}

// Lines returns the rendered log, oldest first.
func (c *Controller) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// OnFlagChanged reacts to the persisted flag being changed outside this
// controller. Clearing it while the worker tracks stops the worker, which
// is how another process asks a running session to stop.
func (c *Controller) OnFlagChanged(enabled bool) {
	if !enabled && c.worker.Desired() {
		// The notification may predate a local start; trust the store.
		stored, err := c.worker.StoredIntent(context.Background())
		if err != nil {
			c.logger.Warn("failed to re-read tracking flag", log.Err(err))
			return
		}
		if stored {
			c.logger.Debug("ignoring stale flag change")
			c.changed()
			return
		}
		c.logger.Info("tracking disabled externally, stopping")
		if err := c.worker.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
			c.logger.Error("external stop failed", log.Err(err))
		}
	}
	c.changed()
}

func (c *Controller) denied() {
	c.logger.Warn("location permission denied")
	c.mu.Lock()
	c.remediation = true
	c.mu.Unlock()
}

func (c *Controller) onUpdate(u Update) {
	var line string
	switch u.Kind {
	case UpdateFix:
		line = "Foreground location: " + u.Fix.Text()
	case UpdateError:
		line = "Error: " + u.Err.Error()
	default:
		return
	}

	c.mu.Lock()
	c.lines = append(c.lines, line)
	if over := len(c.lines) - c.maxLines; over > 0 {
		c.lines = append(c.lines[:0:0], c.lines[over:]...)
	}
	c.mu.Unlock()

	c.changed()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
