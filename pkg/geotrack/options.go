package geotrack

// Option configures optional behavior of a Tracker.
type Option func(*options)

// options holds the optional configuration for a Tracker instance.
type options struct {
	logger       Logger
	source       LocationSource
	gate         PermissionGate
	presenter    Presenter
	flagStore    FlagStore
	eventHandler EventHandler
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLocationSource replaces the default simulated source.
func WithLocationSource(src LocationSource) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithPermissionGate replaces the default gate, which always grants.
func WithPermissionGate(gate PermissionGate) Option {
	return func(o *options) {
		o.gate = gate
	}
}

// WithPresenter sets where the persistent indicator is rendered.
// If not provided, the indicator is not shown anywhere.
func WithPresenter(p Presenter) Option {
	return func(o *options) {
		o.presenter = p
	}
}

// WithFlagStore replaces the file-backed flag store in StateDir. External
// flag changes are only observed with the file-backed store.
func WithFlagStore(store FlagStore) Option {
	return func(o *options) {
		o.flagStore = store
	}
}

// WithEventHandler sets a handler for tracker events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}
