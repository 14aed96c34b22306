// Package deliveryrepo provides data transfer objects and mapping functions
// for delivery persistence. It implements the repository pattern for the
// delivery aggregate, converting between the domain model and the relational
// schema: one deliveries row per aggregate plus an append-only
// delivery_updates table for the audit trail.
package deliveryrepo

import (
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// DeliveryDTO represents the database structure for persisting delivery
// aggregates. Indexed by order, tracking identifier, and status to serve the
// orchestrator's lookup patterns.
type DeliveryDTO struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID  `gorm:"type:uuid;index"`
	ProviderID string     `gorm:"type:varchar(64)"`
	TrackingID string     `gorm:"type:varchar(128);index"`
	Status     int        `gorm:"index"`
	Request    RequestDTO `gorm:"embedded"`

	Fee           int64
	FailureReason string
	SupersededBy  *uuid.UUID `gorm:"type:uuid"`

	CreatedAt           time.Time
	EstimatedPickupAt   *time.Time
	ActualPickupAt      *time.Time
	EstimatedDeliveryAt *time.Time
	ActualDeliveryAt    *time.Time

	Updates []DeliveryUpdateDTO `gorm:"foreignKey:DeliveryID"`
}

// TableName specifies the database table name for delivery entities.
func (DeliveryDTO) TableName() string {
	return "deliveries"
}

// RequestDTO represents the embedded dispatch payload within the deliveries
// table. The payload is immutable after creation, so flattening it into the
// aggregate row avoids a join on every load.
type RequestDTO struct {
	PickupStreet  string `gorm:"column:pickup_street"`
	PickupCity    string `gorm:"column:pickup_city"`
	PickupNotes   string `gorm:"column:pickup_notes"`
	DropoffStreet string `gorm:"column:dropoff_street"`
	DropoffCity   string `gorm:"column:dropoff_city"`
	DropoffNotes  string `gorm:"column:dropoff_notes"`
	VendorPhone   string `gorm:"column:vendor_phone"`
	CustomerPhone string `gorm:"column:customer_phone"`
	Description   string `gorm:"column:description"`
	Instructions  string `gorm:"column:instructions"`
	WeightKG      float64
	DeclaredValue int64
}

// DeliveryUpdateDTO represents one row of the append-only audit trail.
// Rows are inserted and read, never updated or deleted.
type DeliveryUpdateDTO struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeliveryID  uuid.UUID `gorm:"type:uuid;index"`
	Status      int
	Description string
	Location    string
	Timestamp   time.Time
	Source      int
}

// TableName specifies the database table name for audit trail entries.
func (DeliveryUpdateDTO) TableName() string {
	return "delivery_updates"
}

// fromDomain converts a delivery aggregate to its database representation.
// The audit trail is handled separately: only uncommitted updates are ever
// written, via updateFromDomain.
func fromDomain(aggregate *delivery.Delivery) DeliveryDTO {
	var supersededBy *uuid.UUID
	if id := aggregate.SupersededBy(); id != nil {
		raw := id.Bytes()
		supersededBy = &raw
	}

	request := aggregate.Request()

	return DeliveryDTO{
		ID:         aggregate.ID().Bytes(),
		OrderID:    aggregate.OrderID().Bytes(),
		ProviderID: aggregate.ProviderID(),
		TrackingID: aggregate.TrackingID(),
		Status:     int(aggregate.Status()),
		Request: RequestDTO{
			PickupStreet:  request.PickupAddress().Street(),
			PickupCity:    request.PickupAddress().City(),
			PickupNotes:   request.PickupAddress().Notes(),
			DropoffStreet: request.DropoffAddress().Street(),
			DropoffCity:   request.DropoffAddress().City(),
			DropoffNotes:  request.DropoffAddress().Notes(),
			VendorPhone:   request.VendorPhone().String(),
			CustomerPhone: request.CustomerPhone().String(),
			Description:   request.Description(),
			Instructions:  request.Instructions(),
			WeightKG:      request.WeightKG(),
			DeclaredValue: request.DeclaredValue(),
		},
		Fee:                 aggregate.Fee(),
		FailureReason:       aggregate.FailureReason(),
		SupersededBy:        supersededBy,
		CreatedAt:           aggregate.CreatedAt(),
		EstimatedPickupAt:   aggregate.EstimatedPickupAt(),
		ActualPickupAt:      aggregate.ActualPickupAt(),
		EstimatedDeliveryAt: aggregate.EstimatedDeliveryAt(),
		ActualDeliveryAt:    aggregate.ActualDeliveryAt(),
	}
}

// updateFromDomain converts one audit trail entry to its row representation.
func updateFromDomain(update delivery.Update) DeliveryUpdateDTO {
	return DeliveryUpdateDTO{
		ID:          update.ID().Bytes(),
		DeliveryID:  update.DeliveryID().Bytes(),
		Status:      int(update.Status()),
		Description: update.Description(),
		Location:    update.Location(),
		Timestamp:   update.Timestamp(),
		Source:      int(update.Source()),
	}
}

// toDomain converts a database DTO with its audit trail rows back into a
// delivery aggregate via RestoreDelivery.
func toDomain(dto DeliveryDTO) (*delivery.Delivery, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	var supersededBy *kernel.UUID
	if dto.SupersededBy != nil {
		sID, sErr := kernel.UUIDFromBytes((*dto.SupersededBy)[:])
		if sErr != nil {
			return nil, sErr
		}
		supersededBy = &sID
	}

	request, err := requestToDomain(dto.Request)
	if err != nil {
		return nil, err
	}

	updates := make([]delivery.Update, 0, len(dto.Updates))
	for _, row := range dto.Updates {
		update, uErr := updateToDomain(row)
		if uErr != nil {
			return nil, uErr
		}
		updates = append(updates, update)
	}

	return delivery.RestoreDelivery(delivery.RestoreDeliveryParams{
		ID:                  id,
		OrderID:             orderID,
		ProviderID:          dto.ProviderID,
		TrackingID:          dto.TrackingID,
		Status:              delivery.Status(dto.Status),
		Request:             request,
		Fee:                 dto.Fee,
		FailureReason:       dto.FailureReason,
		SupersededBy:        supersededBy,
		CreatedAt:           dto.CreatedAt,
		EstimatedPickupAt:   dto.EstimatedPickupAt,
		ActualPickupAt:      dto.ActualPickupAt,
		EstimatedDeliveryAt: dto.EstimatedDeliveryAt,
		ActualDeliveryAt:    dto.ActualDeliveryAt,
		Updates:             updates,
	})
}

func requestToDomain(dto RequestDTO) (delivery.Request, error) {
	pickup, err := kernel.NewAddress(dto.PickupStreet, dto.PickupCity, dto.PickupNotes)
	if err != nil {
		return delivery.Request{}, err
	}

	dropoff, err := kernel.NewAddress(dto.DropoffStreet, dto.DropoffCity, dto.DropoffNotes)
	if err != nil {
		return delivery.Request{}, err
	}

	vendorPhone, err := kernel.NewPhone(dto.VendorPhone)
	if err != nil {
		return delivery.Request{}, err
	}

	customerPhone, err := kernel.NewPhone(dto.CustomerPhone)
	if err != nil {
		return delivery.Request{}, err
	}

	return delivery.NewRequest(
		pickup, dropoff, vendorPhone, customerPhone,
		dto.Description, dto.Instructions, dto.WeightKG, dto.DeclaredValue,
	)
}

func updateToDomain(dto DeliveryUpdateDTO) (delivery.Update, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return delivery.Update{}, err
	}

	deliveryID, err := kernel.UUIDFromBytes(dto.DeliveryID[:])
	if err != nil {
		return delivery.Update{}, err
	}

	return delivery.NewUpdate(
		id,
		deliveryID,
		delivery.Status(dto.Status),
		dto.Description,
		dto.Location,
		dto.Timestamp,
		delivery.UpdateSource(dto.Source),
	)
}
