package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
)

// OrderLifecycle is the narrow write-back surface into the order subsystem.
// The dispatch core reads order data through commands and writes back only
// these coarse transitions; everything else about an order belongs to its own
// subsystem.
type OrderLifecycle interface {
	// MarkOrderDispatched records that the order's shipment was accepted by
	// a courier and is now tracked by the given delivery.
	MarkOrderDispatched(ctx context.Context, orderID kernel.UUID, deliveryID kernel.UUID) error

	// MarkOrderDelivered records that the order reached the customer,
	// making it eligible for vendor payout.
	MarkOrderDelivered(ctx context.Context, orderID kernel.UUID) error

	// MarkOrderDeliveryFailed records a terminal delivery failure with the
	// operator-visible reason.
	MarkOrderDeliveryFailed(ctx context.Context, orderID kernel.UUID, reason string) error

	// MarkOrderAwaitingDispatch returns the order to the dispatch queue
	// after a failed submission, so it is never silently left stuck.
	MarkOrderAwaitingDispatch(ctx context.Context, orderID kernel.UUID, reason string) error
}
