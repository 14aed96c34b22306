package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/orderlock"
)

// CancelDeliveryCommandHandler cancels the active delivery for an order.
// Cancellation against the courier is best effort: whatever the courier
// answers, the local delivery becomes Cancelled, and the acknowledgement
// outcome lands in the failure reason for the operator.
//
// An order without an active delivery is a no-op: the customer cancelling an
// already delivered or already failed order changes nothing here.
type CancelDeliveryCommandHandler struct {
	uowFactory     DeliveryUoWFactory
	registry       ports.ProviderRegistry
	locks          *orderlock.KeyedMutex
	courierTimeout time.Duration
	logger         *slog.Logger
}

func NewCancelDeliveryCommandHandler(
	uowFactory DeliveryUoWFactory,
	registry ports.ProviderRegistry,
	locks *orderlock.KeyedMutex,
	courierTimeout time.Duration,
	logger *slog.Logger,
) CancelDeliveryCommandHandler {
	return CancelDeliveryCommandHandler{
		uowFactory:     uowFactory,
		registry:       registry,
		locks:          locks,
		courierTimeout: courierTimeout,
		logger:         logger.With("component", "cancel_delivery_handler"),
	}
}

// Handle processes the cancellation and returns the cancelled delivery, or
// nil when the order had no active delivery.
func (h CancelDeliveryCommandHandler) Handle(
	ctx context.Context,
	command CancelDeliveryCommand,
) (*delivery.Delivery, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(command.OrderID())
	defer unlock()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.DeliveryRepository()

	current, err := repo.FindActiveByOrder(ctx, command.OrderID())
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			h.logger.InfoContext(ctx, "Cancellation for order without active delivery",
				"order_id", command.OrderID().String())
			return nil, nil
		}
		return nil, err
	}

	reason := h.cancelWithCourier(ctx, current, command.Reason())

	if _, err = current.Cancel(reason, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err = repo.Update(ctx, current); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Delivery cancelled",
		"order_id", command.OrderID().String(),
		"delivery_id", current.ID().String(),
		"provider", current.ProviderID(),
	)

	return current, nil
}

func (h CancelDeliveryCommandHandler) cancelWithCourier(
	ctx context.Context,
	current *delivery.Delivery,
	reason string,
) string {
	adapter, err := h.registry.Resolve(current.ProviderID())
	if err != nil {
		h.logger.ErrorContext(ctx, "Cannot resolve provider for cancellation",
			"provider", current.ProviderID(), "error", err)
		return fmt.Sprintf("%s (cancellation not attempted: %s)", reason, err)
	}

	cctx, cancel := context.WithTimeout(ctx, h.courierTimeout)
	defer cancel()

	acked, err := adapter.CancelDelivery(cctx, current.TrackingID())
	switch {
	case err != nil:
		metrics.CourierRequestErrors.WithLabelValues(current.ProviderID(), "cancelDelivery", "transport").Inc()
		h.logger.WarnContext(ctx, "Courier cancellation attempt failed",
			"provider", current.ProviderID(),
			"tracking_id", current.TrackingID(),
			"error", err,
		)
		return fmt.Sprintf("%s (cancellation attempt failed: %s)", reason, err)
	case !acked:
		return fmt.Sprintf("%s (courier did not acknowledge cancellation)", reason)
	default:
		return reason
	}
}
