package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/bft-labs/geotrack/internal/domain"
)

// SubscriptionID identifies one location-update subscription.
type SubscriptionID = uuid.UUID

// LocationSource delivers position fixes from a device or simulator.
type LocationSource interface {
	// RequestUpdates starts a subscription. It returns once the provider has
	// acknowledged the subscription; fixes are then delivered to sink from
	// a provider-owned goroutine, in arrival order.
	// Returns domain.ErrPermissionDenied if location access was revoked and
	// domain.ErrProviderUnavailable (possibly wrapped) for transient failures.
	// Canceling ctx aborts a subscribe that has not been acknowledged yet.
	RequestUpdates(ctx context.Context, req domain.LocationRequest, sink FixSink) (SubscriptionID, error)

	// CancelUpdates tears down a subscription. Its return is the teardown
	// acknowledgment: after it returns no further fixes are delivered for id.
	CancelUpdates(ctx context.Context, id SubscriptionID) error
}

// FixSink receives callbacks for a subscription.
type FixSink interface {
	OnFix(id SubscriptionID, fix domain.Fix)

	// OnProviderError reports a failure of a live subscription. The
	// subscription is considered dead after this call.
	OnProviderError(id SubscriptionID, err error)
}
