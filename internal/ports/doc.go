// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the tracking core and the platform it
// runs on. They describe what the core needs from the outside world without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [LocationSource]: Delivers position fixes for a subscription
//   - [FixSink]: Receives fixes and provider errors from a LocationSource
//   - [PermissionGate]: Checks and requests location access
//   - [Presenter]: Renders the persistent indicator and remediation actions
//   - [FlagStore]: Durable key/boolean storage
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// location providers, terminal output, and the file system.
package ports
