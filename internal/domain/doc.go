// Package domain contains the core domain entities and value objects for geotrack.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (location providers, file system,
// logging) and contains only value types and sentinel errors.
//
// # Entities
//
//   - [Fix]: A single reported position with timestamp
//   - [TrackingState]: The lifecycle state of the tracking worker
//   - [LocationRequest]: Parameters of a location-update subscription
//   - [PresentationMode]: Whether the worker is attached to a front-end
//   - [Grant]: The outcome of a permission request
//
// # Design Principles
//
// Domain values are:
//   - Immutable after construction and passed by value
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
