package ports

import (
	"context"

	"github.com/bft-labs/geotrack/internal/domain"
)

// PermissionGate checks and requests access to location data.
type PermissionGate interface {
	// HasPermission reports whether location access is currently granted.
	HasPermission(ctx context.Context) bool

	// RequestPermission asks the user for location access and blocks until
	// they answer or ctx is done.
	RequestPermission(ctx context.Context) (domain.Grant, error)
}
