// Package log provides the structured logging abstraction used across geotrack.
//
// Core packages depend only on the [Logger] interface. The zerolog-backed
// implementation is used by the CLI and by embedders that do not bring their
// own logger; [NoopLogger] is used in tests.
//
//	logger := log.NewZerolog(log.Options{Level: "debug", Format: log.FormatConsole})
//	logger.Info("tracking started", log.String("source", "simulated"))
//
// To integrate an existing logging library, implement the four level
// methods of [Logger].
package log
