package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/orderlock"
)

// DispatchOrderCommandHandler submits an order's shipment to a courier and
// records the resulting delivery.
//
// Guarantees:
//   - at most one in-flight dispatch per order: a duplicate request for an
//     order with an active delivery is rejected before any network call
//   - exactly one courier submission per successful dispatch
//   - on courier failure no delivery record is created, the order is
//     returned to the dispatch queue, and the failure reason is recorded for
//     operator action; shipment creation is never retried automatically,
//     because blind retries against a real courier can create duplicate
//     physical shipments
type DispatchOrderCommandHandler struct {
	uowFactory     DeliveryUoWFactory
	registry       ports.ProviderRegistry
	orders         ports.OrderLifecycle
	locks          *orderlock.KeyedMutex
	courierTimeout time.Duration
	logger         *slog.Logger
}

// NewDispatchOrderCommandHandler creates a handler for dispatch operations.
// courierTimeout bounds every courier network call; a timeout surfaces as a
// transient CourierTransportError rather than hanging the caller.
func NewDispatchOrderCommandHandler(
	uowFactory DeliveryUoWFactory,
	registry ports.ProviderRegistry,
	orders ports.OrderLifecycle,
	locks *orderlock.KeyedMutex,
	courierTimeout time.Duration,
	logger *slog.Logger,
) DispatchOrderCommandHandler {
	return DispatchOrderCommandHandler{
		uowFactory:     uowFactory,
		registry:       registry,
		orders:         orders,
		locks:          locks,
		courierTimeout: courierTimeout,
		logger:         logger.With("component", "dispatch_order_handler"),
	}
}

// Handle processes the dispatch command and returns the created delivery.
func (h DispatchOrderCommandHandler) Handle(
	ctx context.Context,
	command DispatchOrderCommand,
) (*delivery.Delivery, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(command.OrderID())
	defer unlock()

	// Resolving the adapter before anything else keeps configuration bugs
	// from leaving partial state behind.
	adapter, err := h.registry.Resolve(command.ProviderID())
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.DeliveryRepository()

	active, err := repo.FindActiveByOrder(ctx, command.OrderID())
	if err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
		return nil, err
	}
	if active != nil {
		metrics.DispatchTotal.WithLabelValues(command.ProviderID(), "duplicate").Inc()
		return nil, errs.NewDuplicateDispatchError(command.OrderID().String(), active.ID().String())
	}

	acceptance, err := h.submitToCourier(ctx, adapter, command.Request())
	if err != nil {
		h.recordDispatchFailure(ctx, command, err)
		return nil, err
	}

	now := time.Now().UTC()
	created, err := delivery.NewDelivery(
		kernel.NewUUID(),
		command.OrderID(),
		command.ProviderID(),
		command.Request(),
		command.Fee(),
		now,
	)
	if err != nil {
		return nil, err
	}

	if _, err = created.ConfirmDispatch(
		acceptance.TrackingID,
		acceptance.EstimatedPickupAt,
		acceptance.EstimatedDeliveryAt,
		now,
	); err != nil {
		return nil, err
	}

	if err = repo.Add(ctx, created); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.DispatchTotal.WithLabelValues(command.ProviderID(), "accepted").Inc()
	h.logger.InfoContext(ctx, "Order dispatched",
		"order_id", command.OrderID().String(),
		"delivery_id", created.ID().String(),
		"provider", command.ProviderID(),
		"tracking_id", created.TrackingID(),
	)

	if err = h.orders.MarkOrderDispatched(ctx, command.OrderID(), created.ID()); err != nil {
		// The delivery exists and is tracked; the order write-back is
		// reconciled by the order subsystem on its next read.
		h.logger.ErrorContext(ctx, "Failed to mark order dispatched",
			"order_id", command.OrderID().String(), "error", err)
	}

	return created, nil
}

// submitToCourier performs the single bounded network submission.
func (h DispatchOrderCommandHandler) submitToCourier(
	ctx context.Context,
	adapter ports.CourierAPIProvider,
	request delivery.Request,
) (ports.Acceptance, error) {
	cctx, cancel := context.WithTimeout(ctx, h.courierTimeout)
	defer cancel()

	return adapter.CreateDelivery(cctx, request)
}

func (h DispatchOrderCommandHandler) recordDispatchFailure(
	ctx context.Context,
	command DispatchOrderCommand,
	cause error,
) {
	outcome := "rejected"
	if errors.Is(cause, errs.ErrCourierTransport) {
		outcome = "transport_error"
	}
	metrics.DispatchTotal.WithLabelValues(command.ProviderID(), outcome).Inc()

	h.logger.ErrorContext(ctx, "Dispatch failed",
		"order_id", command.OrderID().String(),
		"provider", command.ProviderID(),
		"outcome", outcome,
		"error", cause,
	)

	if err := h.orders.MarkOrderAwaitingDispatch(ctx, command.OrderID(), cause.Error()); err != nil {
		h.logger.ErrorContext(ctx, "Failed to return order to dispatch queue",
			"order_id", command.OrderID().String(), "error", err)
	}
}
