package geotrack_test

import (
	"context"
	"fmt"
	"os"

	"github.com/bft-labs/geotrack/pkg/geotrack"
)

// ExampleNew demonstrates how to embed a tracker in your application.
func ExampleNew() {
	dir, err := os.MkdirTemp("", "geotrack-example")
	if err != nil {
		fmt.Printf("failed to create state dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	// Create tracker
	t, err := geotrack.New(geotrack.Config{StateDir: dir})
	if err != nil {
		fmt.Printf("failed to create tracker: %v\n", err)
		return
	}

	// Start (non-blocking); nothing was persisted so tracking stays off
	ctx := context.Background()
	if err := t.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	s := t.Session()
	s.Attach()
	fmt.Println(s.Label())

	// Switch tracking on
	if err := s.Toggle(ctx); err != nil {
		fmt.Printf("failed to toggle: %v\n", err)
		return
	}
	fmt.Println(s.Label())
	fmt.Println(t.Status().Desired)

	_ = t.Stop()

	// Output:
	// Start Location Updates
	// Stop Location Updates
	// true
}

// Example_withEventHandler demonstrates how to receive tracker events.
func Example_withEventHandler() {
	handler := &myEventHandler{}

	t, err := geotrack.New(geotrack.Config{StateDir: os.TempDir()},
		geotrack.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create tracker: %v\n", err)
		return
	}

	_ = t // Use tracker instance...
}

// myEventHandler implements geotrack.EventHandler for event notifications.
type myEventHandler struct {
	geotrack.BaseEventHandler // Embed for no-op defaults
}

func (h *myEventHandler) OnStateChange(event geotrack.StateChangeEvent) {
	fmt.Printf("State changed: %s -> %s (reason: %s)\n",
		event.Previous, event.Current, event.Reason)
}

func (h *myEventHandler) OnFix(fix geotrack.Fix) {
	fmt.Printf("Fix: %s\n", fix.Text())
}
