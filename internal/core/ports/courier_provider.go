package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/delivery"
)

// Acceptance is a courier's positive answer to a shipment submission: the
// provider-issued tracking identifier and the provider's own time estimates.
type Acceptance struct {
	TrackingID          string
	EstimatedPickupAt   *time.Time
	EstimatedDeliveryAt *time.Time
}

// CourierStatus is one provider-native status snapshot from a synchronous
// poll. RawStatus is the provider's vocabulary and must go through the
// status normalizer before touching a delivery.
type CourierStatus struct {
	RawStatus   string
	Description string
	Location    string
	Timestamp   time.Time
}

// CourierAPIProvider is the capability every courier adapter implements.
// Adapters translate the internal delivery request into the provider's wire
// format and own their own credentials and base endpoint, injected at
// construction so they stay independently testable.
//
// Error contract: ordinary courier-side failures never escape as panics.
//   - transport failures and timeouts come back wrapped in
//     errs.CourierTransportError (transient, retryable by background jobs)
//   - a courier that validated and refused comes back as
//     errs.CourierRejectedError (fatal for the attempt)
//   - an unknown tracking identifier on a status poll comes back as
//     errs.ObjectNotFoundError (definitive, not retryable)
type CourierAPIProvider interface {
	// ProviderID returns the registry identifier of this courier.
	ProviderID() string

	// CreateDelivery submits the shipment to the courier. Exactly one
	// network submission per call; the caller owns idempotency and must
	// never retry blindly, because courier-side creation is not idempotent.
	CreateDelivery(ctx context.Context, request delivery.Request) (Acceptance, error)

	// GetDeliveryStatus polls the provider's current status for a tracking
	// identifier previously issued by CreateDelivery.
	GetDeliveryStatus(ctx context.Context, trackingID string) (CourierStatus, error)

	// CancelDelivery asks the courier to cancel, best effort. The boolean
	// reports whether the courier acknowledged: false is not fatal, some
	// couriers refuse once pickup has started and the delivery continues.
	CancelDelivery(ctx context.Context, trackingID string) (bool, error)
}
