package ports

import (
	"context"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
)

// DeliveryRepository defines the persistence contract for the Delivery
// aggregate and its append-only audit trail. The core depends only on these
// operations, not on any specific persistence technology.
type DeliveryRepository interface {
	// Add persists a new delivery aggregate together with any audit trail
	// entries it has accumulated.
	Add(ctx context.Context, aggregate *delivery.Delivery) error

	// Update persists changes to an existing delivery and appends its
	// uncommitted audit trail entries. Existing entries are never touched.
	Update(ctx context.Context, aggregate *delivery.Delivery) error

	// Get retrieves a delivery with its full audit trail by identifier.
	Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error)

	// FindActiveByOrder retrieves the order's delivery in a non-terminal
	// status, or an errs.ObjectNotFoundError if none exists. At most one
	// can exist at any time.
	FindActiveByOrder(ctx context.Context, orderID kernel.UUID) (*delivery.Delivery, error)

	// FindByTrackingID retrieves a delivery by the courier-issued tracking
	// identifier. Used by webhook ingestion.
	FindByTrackingID(ctx context.Context, trackingID string) (*delivery.Delivery, error)

	// FindAllActive retrieves every delivery in a non-terminal status.
	// Used by the status polling job.
	FindAllActive(ctx context.Context) ([]*delivery.Delivery, error)
}
