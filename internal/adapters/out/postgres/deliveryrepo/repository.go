package deliveryrepo

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormDeliveryRepository implements ports.DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormDeliveryRepository creates a new GORM delivery repository.
func NewGormDeliveryRepository(db *gorm.DB, tracker aggregateTracker) *GormDeliveryRepository {
	return &GormDeliveryRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add saves a new delivery together with any audit trail entries it has
// accumulated since construction.
func (r *GormDeliveryRepository) Add(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	if err := r.appendUncommitted(ctx, aggregate); err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Update saves changes to an existing delivery and inserts its uncommitted
// audit trail entries. Existing entries are never modified.
func (r *GormDeliveryRepository) Update(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Where("id = ?", dto.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	if err := r.appendUncommitted(ctx, aggregate); err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves a delivery with its full audit trail by identifier.
func (r *GormDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	err := r.withUpdates(ctx).First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("delivery", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// FindActiveByOrder retrieves the order's delivery in a non-terminal status.
// At most one such row exists; the orchestrator's per-order serialization
// guarantees it.
func (r *GormDeliveryRepository) FindActiveByOrder(
	ctx context.Context,
	orderID kernel.UUID,
) (*delivery.Delivery, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	err := r.withUpdates(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Where("status NOT IN ?", terminalStatuses()).
		First(&dto).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("active delivery for order", orderID.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// FindByTrackingID retrieves a delivery by the courier-issued tracking
// identifier.
func (r *GormDeliveryRepository) FindByTrackingID(
	ctx context.Context,
	trackingID string,
) (*delivery.Delivery, error) {
	if trackingID == "" {
		return nil, errs.NewValueIsRequiredError("trackingID")
	}

	var dto DeliveryDTO
	err := r.withUpdates(ctx).First(&dto, "tracking_id = ?", trackingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("delivery by tracking id", trackingID)
		}
		return nil, err
	}

	return toDomain(dto)
}

// FindAllActive retrieves every delivery in a non-terminal status, oldest
// first.
func (r *GormDeliveryRepository) FindAllActive(ctx context.Context) ([]*delivery.Delivery, error) {
	var dtos []DeliveryDTO
	err := r.withUpdates(ctx).
		Where("status NOT IN ?", terminalStatuses()).
		Order("created_at").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]*delivery.Delivery, 0, len(dtos))
	for _, dto := range dtos {
		aggregate, dErr := toDomain(dto)
		if dErr != nil {
			return nil, dErr
		}
		deliveries = append(deliveries, aggregate)
	}

	return deliveries, nil
}

// appendUncommitted inserts the aggregate's pending audit trail entries and
// marks them committed on the in-memory aggregate.
func (r *GormDeliveryRepository) appendUncommitted(ctx context.Context, aggregate *delivery.Delivery) error {
	pending := aggregate.UncommittedUpdates()
	if len(pending) == 0 {
		return nil
	}

	rows := make([]DeliveryUpdateDTO, 0, len(pending))
	for _, update := range pending {
		rows = append(rows, updateFromDomain(update))
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}

	aggregate.MarkUpdatesCommitted()
	return nil
}

// withUpdates preloads the audit trail ordered the way the aggregate expects.
func (r *GormDeliveryRepository) withUpdates(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Updates", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp, id")
	})
}

func terminalStatuses() []int {
	return []int{
		int(delivery.Delivered),
		int(delivery.Failed),
		int(delivery.Cancelled),
	}
}
