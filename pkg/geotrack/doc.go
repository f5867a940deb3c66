// Package geotrack provides an embeddable location-tracking session.
//
// A [Tracker] owns one subscription to a location source, remembers across
// restarts whether tracking was switched on, publishes every fix to its
// subscribers and keeps a persistent indicator current while no front-end
// is attached.
//
// # Basic Usage
//
//	cfg := geotrack.Config{StateDir: "/var/lib/geotrack"}
//
//	t, err := geotrack.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Resumes tracking if it was on when the process last ran.
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	s := t.Session()
//	s.Attach()
//	if err := s.Toggle(ctx); err != nil {
//	    log.Printf("toggle: %v", err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := t.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// Stop shuts the tracker down but keeps the persisted intent, so the next
// Start resumes. To switch tracking off, use [Session.Toggle].
//
// # Dependency Injection
//
// The location source, permission gate, indicator presenter and flag store
// can be replaced:
//
//	t, err := geotrack.New(cfg,
//	    geotrack.WithLocationSource(mySource),
//	    geotrack.WithPermissionGate(myGate),
//	    geotrack.WithLogger(myLogger),
//	)
//
// Without options the tracker uses a simulated random-walk source, grants
// permission, keeps the flag in StateDir and renders no indicator.
//
// # Events
//
// Implement [EventHandler] (embedding [BaseEventHandler] for defaults) and
// pass it via [WithEventHandler] to receive state changes, fixes and
// asynchronous errors. State changes are delivered synchronously; fixes and
// errors arrive on a dedicated goroutine in publish order.
//
// # Tracking States
//
// A tracker is in one of [StateStopped], [StateRequesting], [StateActive]
// or [StateSuspended]. Use [Tracker.Status] to query it.
package geotrack
