// Package queries contains read-only operations implementing the query side
// of the CQRS architecture. Queries bypass the domain model and read the
// database directly, returning lightweight read models for dashboards and
// API responses.
package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrGetActiveDeliveriesQueryIsNotConstructed = errors.New(
	"GetActiveDeliveriesQuery must be created via NewGetActiveDeliveriesQuery constructor",
)

// GetActiveDeliveriesQuery retrieves every delivery that has not reached a
// terminal status. Used by the operations dashboard and the polling job to
// see the in-flight workload.
//
// Example:
//
//	query := NewGetActiveDeliveriesQuery()
//	handler := NewGetActiveDeliveriesQueryHandler(db)
//
//	deliveries, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to get active deliveries: %w", err)
//	}
//
//	fmt.Printf("%d deliveries in flight\n", len(deliveries))
type GetActiveDeliveriesQuery struct {
	guard guard.ConstructorGuard
}

// NewGetActiveDeliveriesQuery creates a query for all in-flight deliveries.
func NewGetActiveDeliveriesQuery() GetActiveDeliveriesQuery {
	return GetActiveDeliveriesQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetActiveDeliveriesQuery) Validate() error {
	return q.guard.Validate(ErrGetActiveDeliveriesQueryIsNotConstructed)
}

// GetActiveDeliveriesQueryResponse is the read model for one in-flight
// delivery, flat enough to serialize straight into an API response.
type GetActiveDeliveriesQueryResponse struct {
	ID                  kernel.UUID
	OrderID             kernel.UUID
	ProviderID          string
	TrackingID          string
	Status              string
	CreatedAt           time.Time
	EstimatedDeliveryAt *time.Time
}
