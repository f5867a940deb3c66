// Package source provides LocationSource implementations that run without
// positioning hardware: a random-walk Simulator and a Replay of a recorded
// YAML track. Both deliver fixes on a goroutine per subscription and only
// acknowledge CancelUpdates once that goroutine has exited, so no callback
// follows a successful cancel.
package source
