package app

import (
	"sync"
	"time"

	"github.com/bft-labs/geotrack/internal/domain"
	"github.com/bft-labs/geotrack/pkg/log"
)

// ShutdownTimeout is the maximum time to wait for in-flight teardowns.
const ShutdownTimeout = 30 * time.Second

// EventEmitter is called when the tracking state changes.
type EventEmitter interface {
	OnStateChange(previous, current domain.TrackingState, reason string)
}

// validTransitions lists the states reachable from each state.
//
//	Stopped    -> Requesting, Suspended (resume without permission)
//	Requesting -> Active, Suspended, Stopped
//	Active     -> Suspended, Stopped
//	Suspended  -> Requesting, Stopped
var validTransitions = map[domain.TrackingState][]domain.TrackingState{
	domain.StateStopped:    {domain.StateRequesting, domain.StateSuspended},
	domain.StateRequesting: {domain.StateActive, domain.StateSuspended, domain.StateStopped},
	domain.StateActive:     {domain.StateSuspended, domain.StateStopped},
	domain.StateSuspended:  {domain.StateRequesting, domain.StateStopped},
}

func canTransition(from, to domain.TrackingState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateChange is a committed transition waiting to be announced.
type stateChange struct {
	from, to domain.TrackingState
	reason   string
}

// lifecycle holds the worker's state and announces transitions.
// It is not synchronized; the worker guards it with its own mutex and calls
// announce after releasing that mutex.
type lifecycle struct {
	state   domain.TrackingState
	pending []stateChange
	logger  log.Logger
	emitter EventEmitter
	wg      sync.WaitGroup
}

func newLifecycle(logger log.Logger, emitter EventEmitter) *lifecycle {
	return &lifecycle{
		state:   domain.StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// transitionTo commits a transition. Transitions to the current state are
// no-ops; transitions not in validTransitions are rejected.
func (l *lifecycle) transitionTo(to domain.TrackingState, reason string) bool {
	from := l.state
	if from == to {
		return true
	}
	if !canTransition(from, to) {
		l.logger.Warn("rejected state transition",
			log.Stringer("from", from),
			log.Stringer("to", to),
			log.String("reason", reason),
		)
		return false
	}
	l.state = to
	l.pending = append(l.pending, stateChange{from: from, to: to, reason: reason})
	return true
}

// takePending returns and clears the transitions committed so far.
func (l *lifecycle) takePending() []stateChange {
	p := l.pending
	l.pending = nil
	return p
}

// announce logs and emits transitions. Call without holding the worker lock.
func (l *lifecycle) announce(changes []stateChange) {
	for _, c := range changes {
		l.logger.Info("state transition",
			log.Stringer("from", c.from),
			log.Stringer("to", c.to),
			log.String("reason", c.reason),
		)
		if l.emitter != nil {
			l.emitter.OnStateChange(c.from, c.to, c.reason)
		}
	}
}

// waitWithTimeout waits for background teardowns to finish.
// Returns domain.ErrShutdownTimeout if the timeout expires.
func (l *lifecycle) waitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, abandoning teardowns",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
