package queries

import (
	"context"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetDeliveryUpdatesQueryHandler reads a delivery's audit trail directly
// from the database.
type GetDeliveryUpdatesQueryHandler struct {
	db *gorm.DB
}

// NewGetDeliveryUpdatesQueryHandler creates a handler for audit trail
// queries. Requires a GORM database connection for query execution.
func NewGetDeliveryUpdatesQueryHandler(db *gorm.DB) GetDeliveryUpdatesQueryHandler {
	return GetDeliveryUpdatesQueryHandler{db: db}
}

// Handle executes the query. Returns an errs.ObjectNotFoundError when the
// delivery does not exist, so callers can distinguish "no such delivery"
// from a delivery that simply has no entries yet.
func (h GetDeliveryUpdatesQueryHandler) Handle(
	ctx context.Context,
	query GetDeliveryUpdatesQuery,
) ([]GetDeliveryUpdatesQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var exists int64
	err := h.db.WithContext(ctx).
		Raw(`SELECT COUNT(1) FROM deliveries WHERE id = ?`, query.DeliveryID().Bytes()).
		Scan(&exists).Error
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, errs.NewObjectNotFoundError("delivery", query.DeliveryID().String())
	}

	updates := make([]GetDeliveryUpdatesQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			status,
			description,
			location,
			timestamp,
			source
		FROM delivery_updates
		WHERE delivery_id = ?
		ORDER BY timestamp, id
	`, query.DeliveryID().Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetDeliveryUpdatesQueryResponse
		var id uuid.UUID
		var status, source int

		err = rows.Scan(
			&id,
			&status,
			&resp.Description,
			&resp.Location,
			&resp.Timestamp,
			&source,
		)
		if err != nil {
			return nil, err
		}

		updateID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.ID = updateID
		resp.Status = delivery.Status(status).String()
		resp.Source = delivery.UpdateSource(source).String()

		updates = append(updates, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return updates, nil
}
