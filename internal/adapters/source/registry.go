package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/internal/ports"
)

// ErrUnknownSubscription is returned when canceling a subscription that
// does not exist or has already ended.
var ErrUnknownSubscription = errors.New("source: unknown subscription")

// feed produces fixes for one subscription until ctx is done. A non-nil
// return ends the subscription with a provider error.
type feed func(ctx context.Context, emit func(domain.Fix)) error

type subscription struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// registry runs one goroutine per subscription.
type registry struct {
	gate ports.PermissionGate

	mu   sync.Mutex
	subs map[ports.SubscriptionID]*subscription
}

func newRegistry(gate ports.PermissionGate) *registry {
	return &registry{
		gate: gate,
		subs: make(map[ports.SubscriptionID]*subscription),
	}
}

func (r *registry) start(ctx context.Context, sink ports.FixSink, run feed) (ports.SubscriptionID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if r.gate != nil && !r.gate.HasPermission(ctx) {
		return uuid.Nil, domain.ErrPermissionDenied
	}

	id := uuid.New()
	subCtx, cancel := context.WithCancelCause(context.Background())
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.subs[id] = sub
	r.mu.Unlock()

	go func() {
		defer close(sub.done)

		err := run(subCtx, func(fix domain.Fix) {
			if subCtx.Err() == nil {
				sink.OnFix(id, fix)
			}
		})
		if subCtx.Err() != nil {
			cause := context.Cause(subCtx)
			if errors.Is(cause, context.Canceled) {
				return
			}
			err = cause
		}
		if err == nil {
			return
		}

		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		sink.OnProviderError(id, err)
	}()

	return id, nil
}

// cancel stops a subscription and waits for its goroutine to exit.
func (r *registry) cancel(ctx context.Context, id ports.SubscriptionID) error {
	r.mu.Lock()
	sub, ok := r.subs[id]
	delete(r.subs, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubscription, id)
	}

	sub.cancel(nil)
	select {
	case <-sub.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// failAll ends every subscription with err delivered as a provider error.
func (r *registry) failAll(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.cancel(err)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// tickInterval picks the delivery period for req.
func tickInterval(req domain.LocationRequest) time.Duration {
	interval := req.Interval
	if interval < req.MinInterval {
		interval = req.MinInterval
	}
	if interval <= 0 {
		interval = time.Second
	}
	return interval
}
