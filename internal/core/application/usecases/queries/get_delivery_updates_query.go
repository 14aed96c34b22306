package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrGetDeliveryUpdatesQueryIsNotConstructed = errors.New(
	"GetDeliveryUpdatesQuery must be created via NewGetDeliveryUpdatesQuery constructor",
)

// GetDeliveryUpdatesQuery retrieves the full audit trail of one delivery,
// oldest entry first. Backs the customer-facing tracking page and operator
// dispute investigations.
type GetDeliveryUpdatesQuery struct {
	deliveryID kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetDeliveryUpdatesQuery creates a query for a delivery's audit trail.
func NewGetDeliveryUpdatesQuery(deliveryID kernel.UUID) (GetDeliveryUpdatesQuery, error) {
	if err := deliveryID.Validate(); err != nil {
		return GetDeliveryUpdatesQuery{}, errs.NewValueIsInvalidErrorWithCause("deliveryID", err)
	}

	return GetDeliveryUpdatesQuery{
		deliveryID: deliveryID,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetDeliveryUpdatesQuery) Validate() error {
	return q.guard.Validate(ErrGetDeliveryUpdatesQueryIsNotConstructed)
}

// DeliveryID returns the delivery whose trail is requested.
func (q GetDeliveryUpdatesQuery) DeliveryID() kernel.UUID {
	return q.deliveryID
}

// GetDeliveryUpdatesQueryResponse is the read model for one audit trail
// entry.
type GetDeliveryUpdatesQueryResponse struct {
	ID          kernel.UUID
	Status      string
	Description string
	Location    string
	Timestamp   time.Time
	Source      string
}
