package queries

import (
	"context"
	"database/sql"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetActiveDeliveriesQueryHandler reads in-flight deliveries straight from
// the database, skipping aggregate reconstruction for read performance.
type GetActiveDeliveriesQueryHandler struct {
	db *gorm.DB
}

// NewGetActiveDeliveriesQueryHandler creates a handler for active delivery
// queries. Requires a GORM database connection for query execution.
func NewGetActiveDeliveriesQueryHandler(db *gorm.DB) GetActiveDeliveriesQueryHandler {
	return GetActiveDeliveriesQueryHandler{db: db}
}

// Handle executes the query. Returns deliveries in any non-terminal status,
// oldest first, so the longest-waiting shipments surface at the top.
func (h GetActiveDeliveriesQueryHandler) Handle(
	ctx context.Context,
	query GetActiveDeliveriesQuery,
) ([]GetActiveDeliveriesQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	deliveries := make([]GetActiveDeliveriesQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			order_id,
			provider_id,
			tracking_id,
			status,
			created_at,
			estimated_delivery_at
		FROM deliveries
		WHERE status NOT IN (?, ?, ?)
		ORDER BY created_at
	`, int(delivery.Delivered), int(delivery.Failed), int(delivery.Cancelled)).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetActiveDeliveriesQueryResponse
		var id, orderID uuid.UUID
		var status int
		var estimatedDeliveryAt sql.NullTime

		err = rows.Scan(
			&id,
			&orderID,
			&resp.ProviderID,
			&resp.TrackingID,
			&status,
			&resp.CreatedAt,
			&estimatedDeliveryAt,
		)
		if err != nil {
			return nil, err
		}

		deliveryID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.ID = deliveryID

		ordID, idErr := kernel.UUIDFromBytes(orderID[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.OrderID = ordID

		resp.Status = delivery.Status(status).String()
		if estimatedDeliveryAt.Valid {
			t := estimatedDeliveryAt.Time
			resp.EstimatedDeliveryAt = &t
		}

		deliveries = append(deliveries, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}
