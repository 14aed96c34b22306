package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/orderlock"
)

// ReassignDeliveryCommandHandler moves an order's active delivery to a
// different courier:
//
//  1. best-effort cancellation against the current provider
//  2. the existing delivery becomes cancelled regardless of whether the
//     courier acknowledged, with the acknowledgement outcome recorded in the
//     failure reason
//  3. a fresh dispatch against the new provider creates the successor
//     delivery, and the old record is marked superseded, never deleted
//
// If the new courier refuses the shipment, the cancellation still stands and
// the order is returned to the dispatch queue for the operator.
type ReassignDeliveryCommandHandler struct {
	uowFactory     DeliveryUoWFactory
	registry       ports.ProviderRegistry
	orders         ports.OrderLifecycle
	locks          *orderlock.KeyedMutex
	courierTimeout time.Duration
	logger         *slog.Logger
}

// NewReassignDeliveryCommandHandler creates a handler for operator
// reassignments.
func NewReassignDeliveryCommandHandler(
	uowFactory DeliveryUoWFactory,
	registry ports.ProviderRegistry,
	orders ports.OrderLifecycle,
	locks *orderlock.KeyedMutex,
	courierTimeout time.Duration,
	logger *slog.Logger,
) ReassignDeliveryCommandHandler {
	return ReassignDeliveryCommandHandler{
		uowFactory:     uowFactory,
		registry:       registry,
		orders:         orders,
		locks:          locks,
		courierTimeout: courierTimeout,
		logger:         logger.With("component", "reassign_delivery_handler"),
	}
}

// Handle processes the reassignment and returns the successor delivery.
func (h ReassignDeliveryCommandHandler) Handle(
	ctx context.Context,
	command ReassignDeliveryCommand,
) (*delivery.Delivery, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	// Resolve the new provider before touching the old delivery so an
	// unknown provider aborts the whole operation cleanly.
	newAdapter, err := h.registry.Resolve(command.NewProviderID())
	if err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(command.OrderID())
	defer unlock()

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.DeliveryRepository()

	current, err := repo.FindActiveByOrder(ctx, command.OrderID())
	if err != nil {
		return nil, err
	}

	reason := h.cancelWithCurrentProvider(ctx, current, command.NewProviderID())

	now := time.Now().UTC()
	if _, err = current.Cancel(reason, now); err != nil {
		return nil, err
	}

	successor, err := h.dispatchSuccessor(ctx, newAdapter, current, command, now)
	if err != nil {
		// The cancellation must survive even though the new courier
		// refused; the order goes back to the dispatch queue.
		if updateErr := repo.Update(ctx, current); updateErr != nil {
			return nil, updateErr
		}
		if commitErr := uow.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}
		h.recordSuccessorFailure(ctx, command, err)
		return nil, err
	}

	if err = repo.Add(ctx, successor); err != nil {
		return nil, err
	}

	if err = current.Supersede(successor.ID()); err != nil {
		return nil, err
	}

	if err = repo.Update(ctx, current); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.DispatchTotal.WithLabelValues(command.NewProviderID(), "accepted").Inc()
	h.logger.InfoContext(ctx, "Delivery reassigned",
		"order_id", command.OrderID().String(),
		"old_delivery_id", current.ID().String(),
		"new_delivery_id", successor.ID().String(),
		"new_provider", command.NewProviderID(),
	)

	if err = h.orders.MarkOrderDispatched(ctx, command.OrderID(), successor.ID()); err != nil {
		h.logger.ErrorContext(ctx, "Failed to mark order dispatched after reassignment",
			"order_id", command.OrderID().String(), "error", err)
	}

	return successor, nil
}

// cancelWithCurrentProvider attempts the best-effort courier cancellation and
// builds the failure reason describing the acknowledgement outcome.
func (h ReassignDeliveryCommandHandler) cancelWithCurrentProvider(
	ctx context.Context,
	current *delivery.Delivery,
	newProviderID string,
) string {
	adapter, err := h.registry.Resolve(current.ProviderID())
	if err != nil {
		// The old provider disappeared from configuration; the physical
		// shipment cannot be cancelled but the reassignment proceeds.
		h.logger.ErrorContext(ctx, "Cannot resolve current provider for cancellation",
			"provider", current.ProviderID(), "error", err)
		return fmt.Sprintf("reassigned to %s, cancellation not attempted: %s", newProviderID, err)
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
		return fmt.Sprintf("reassigned to %s, cancellation attempt failed: %s", newProviderID, err)
	case !acked:
		// Cancellation denied; the courier may still deliver the old
		// shipment. Operators see this in the failure reason.
		return fmt.Sprintf("reassigned to %s, courier did not acknowledge cancellation", newProviderID)
	default:
		return fmt.Sprintf("reassigned to %s, courier acknowledged cancellation", newProviderID)
	}
}

// dispatchSuccessor performs the single courier submission for the
// replacement delivery, reusing the original dispatch payload and fee.
func (h ReassignDeliveryCommandHandler) dispatchSuccessor(
	ctx context.Context,
	adapter ports.CourierAPIProvider,
	current *delivery.Delivery,
	command ReassignDeliveryCommand,
	now time.Time,
) (*delivery.Delivery, error) {
	cctx, cancel := context.WithTimeout(ctx, h.courierTimeout)
	defer cancel()

	acceptance, err := adapter.CreateDelivery(cctx, current.Request())
	if err != nil {
		return nil, err
	}

	successor, err := delivery.NewDelivery(
		kernel.NewUUID(),
		command.OrderID(),
		command.NewProviderID(),
		current.Request(),
		current.Fee(),
		now,
	)
	if err != nil {
		return nil, err
	}

	if _, err = successor.ConfirmDispatch(
		acceptance.TrackingID,
		acceptance.EstimatedPickupAt,
		acceptance.EstimatedDeliveryAt,
		now,
	); err != nil {
		return nil, err
	}

	return successor, nil
}

func (h ReassignDeliveryCommandHandler) recordSuccessorFailure(
	ctx context.Context,
	command ReassignDeliveryCommand,
	cause error,
) {
	metrics.DispatchTotal.WithLabelValues(command.NewProviderID(), "rejected").Inc()
	h.logger.ErrorContext(ctx, "Reassignment dispatch failed, old delivery cancelled",
		"order_id", command.OrderID().String(),
		"new_provider", command.NewProviderID(),
		"error", cause,
	)

	if err := h.orders.MarkOrderAwaitingDispatch(ctx, command.OrderID(), cause.Error()); err != nil {
		h.logger.ErrorContext(ctx, "Failed to return order to dispatch queue",
			"order_id", command.OrderID().String(), "error", err)
	}
}
