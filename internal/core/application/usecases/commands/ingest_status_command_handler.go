package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/orderlock"
)

// IngestStatusCommandHandler applies one courier status report to its
// delivery. Webhook ingestion and the polling job both converge here, so the
// advancement-only rule in Delivery.ApplyStatus is the single concurrency
// safety mechanism: whichever path loses the race has its stale status
// rejected as a regression instead of overwriting newer state.
//
// Outcomes that are not errors for the caller:
//   - unmapped status code: flagged for operators, no state change
//   - status regression: logged as an anomaly, no state change
type IngestStatusCommandHandler struct {
	uowFactory DeliveryUoWFactory
	normalizer services.StatusNormalizer
	orders     ports.OrderLifecycle
	locks      *orderlock.KeyedMutex
	logger     *slog.Logger
}

// NewIngestStatusCommandHandler creates a handler for status ingestion.
func NewIngestStatusCommandHandler(
	uowFactory DeliveryUoWFactory,
	normalizer services.StatusNormalizer,
	orders ports.OrderLifecycle,
	locks *orderlock.KeyedMutex,
	logger *slog.Logger,
) IngestStatusCommandHandler {
	return IngestStatusCommandHandler{
		uowFactory: uowFactory,
		normalizer: normalizer,
		orders:     orders,
		locks:      locks,
		logger:     logger.With("component", "ingest_status_handler"),
	}
}

// Handle processes one status report. Returns an error only for conditions
// the caller must act on: an unknown tracking identifier or a persistence
// failure. Regressions and unmapped codes are absorbed here.
func (h IngestStatusCommandHandler) Handle(ctx context.Context, command IngestStatusCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	normalized := h.normalizer.Normalize(command.ProviderID(), command.RawStatus())
	if !normalized.Mapped {
		metrics.UnmappedStatuses.WithLabelValues(command.ProviderID()).Inc()
		h.logger.WarnContext(ctx, "Unmapped courier status, no state change",
			"provider", command.ProviderID(),
			"raw_status", normalized.Raw,
			"tracking_id", command.TrackingID(),
		)
		return nil
	}

	// First lookup learns the order so the update can queue behind any
	// dispatch or reassignment for the same order; the aggregate is then
	// re-read inside the transaction.
	uow := h.uowFactory.Create()
	found, err := uow.DeliveryRepository().FindByTrackingID(ctx, command.TrackingID())
	if err != nil {
		return err
	}

	unlock := h.locks.Lock(found.OrderID())
	defer unlock()

	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.DeliveryRepository()
	aggregate, err := repo.FindByTrackingID(ctx, command.TrackingID())
	if err != nil {
		return err
	}

	at := command.Timestamp()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	description := command.Description()
	if description == "" {
		description = fmt.Sprintf("courier reported %s", normalized.Raw)
	}

	_, err = aggregate.ApplyStatus(normalized.Status, description, command.Location(), at, command.Source())
	if errors.Is(err, errs.ErrStatusRegression) {
		metrics.StatusRegressions.WithLabelValues(command.ProviderID()).Inc()
		h.logger.WarnContext(ctx, "Status regression rejected",
			"delivery_id", aggregate.ID().String(),
			"current_status", aggregate.Status().String(),
			"reported_status", normalized.Status.String(),
			"provider", command.ProviderID(),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err = repo.Update(ctx, aggregate); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "Delivery status advanced",
		"delivery_id", aggregate.ID().String(),
		"status", aggregate.Status().String(),
		"source", command.Source().String(),
	)

	h.notifyIfTerminal(ctx, aggregate)
	return nil
}

// notifyIfTerminal performs the narrow write-back into the order lifecycle
// when a delivery reaches delivered or failed.
func (h IngestStatusCommandHandler) notifyIfTerminal(ctx context.Context, aggregate *delivery.Delivery) {
	var err error
	switch aggregate.Status() {
	case delivery.Delivered:
		err = h.orders.MarkOrderDelivered(ctx, aggregate.OrderID())
	case delivery.Failed:
		err = h.orders.MarkOrderDeliveryFailed(ctx, aggregate.OrderID(), aggregate.FailureReason())
	default:
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to write back terminal delivery state",
			"order_id", aggregate.OrderID().String(),
			"delivery_id", aggregate.ID().String(),
			"status", aggregate.Status().String(),
			"error", err,
		)
	}
}
