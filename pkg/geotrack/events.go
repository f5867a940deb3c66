package geotrack

import "github.com/bft-labs/geotrack/internal/app"

// StateChangeEvent describes a committed state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives tracker events.
type EventHandler interface {
	// OnStateChange is called synchronously after each transition.
	OnStateChange(event StateChangeEvent)
	// OnFix is called for every fix published while the tracker runs.
	OnFix(fix Fix)
	// OnError is called for asynchronous errors such as provider failures.
	OnError(err error)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnFix(Fix)                      {}
func (BaseEventHandler) OnError(error)                  {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) onUpdate(u app.Update) {
	if e.handler == nil {
		return
	}
	switch u.Kind {
	case app.UpdateFix:
		e.handler.OnFix(u.Fix)
	case app.UpdateError:
		e.handler.OnError(u.Err)
	}
}
