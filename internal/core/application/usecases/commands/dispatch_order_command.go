package commands

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrDispatchOrderCommandIsNotConstructed = errors.New(
		"DispatchOrderCommand must be created via NewDispatchOrderCommand constructor",
	)
	ErrProviderIDIsRequired = errors.New("provider id is required")
	ErrFeeIsInvalid         = errors.New("fee must not be negative")
)

// DispatchOrderCommand represents a request to submit an order's shipment to
// a courier for the first time. The dispatch request carries real order and
// vendor data supplied by the order subsystem; the core never fills in
// placeholder values.
//
// Example:
//
//	cmd, err := NewDispatchOrderCommand(orderID, "g4s", request, 35000)
//	if err != nil {
//	    return fmt.Errorf("invalid dispatch data: %w", err)
//	}
//
//	created, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, errs.ErrDuplicateDispatch) {
//	    // order already has an active delivery, nothing was submitted
//	}
type DispatchOrderCommand struct { //nolint:recvcheck //using for validation
	orderID    kernel.UUID
	providerID string
	request    delivery.Request
	fee        int64

	guard guard.ConstructorGuard
}

// NewDispatchOrderCommand creates a command to dispatch an order. Validates
// that the order identifier, provider identifier, and dispatch request are
// complete and that the fee is non-negative.
func NewDispatchOrderCommand(
	orderID kernel.UUID,
	providerID string,
	request delivery.Request,
	fee int64,
) (DispatchOrderCommand, error) {
	cmd := DispatchOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setProviderID(providerID),
		cmd.setRequest(request),
		cmd.setFee(fee),
	); err != nil {
		return DispatchOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c DispatchOrderCommand) Validate() error {
	return c.guard.Validate(ErrDispatchOrderCommandIsNotConstructed)
}

// OrderID returns the order to dispatch.
func (c DispatchOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// ProviderID returns the courier provider chosen for the dispatch.
func (c DispatchOrderCommand) ProviderID() string {
	return c.providerID
}

// Request returns the provider-agnostic dispatch payload.
func (c DispatchOrderCommand) Request() delivery.Request {
	return c.request
}

// Fee returns the delivery fee in minor currency units.
func (c DispatchOrderCommand) Fee() int64 {
	return c.fee
}

func (c *DispatchOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *DispatchOrderCommand) setProviderID(providerID string) error {
	if providerID == "" {
		return ErrProviderIDIsRequired
	}
	c.providerID = providerID
	return nil
}

func (c *DispatchOrderCommand) setRequest(request delivery.Request) error {
	if err := request.Validate(); err != nil {
		return fmt.Errorf("request is invalid: %w", err)
	}
	c.request = request
	return nil
}

func (c *DispatchOrderCommand) setFee(fee int64) error {
	if fee < 0 {
		return ErrFeeIsInvalid
	}
	c.fee = fee
	return nil
}
