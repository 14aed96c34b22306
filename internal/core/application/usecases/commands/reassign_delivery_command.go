package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrReassignDeliveryCommandIsNotConstructed = errors.New(
	"ReassignDeliveryCommand must be created via NewReassignDeliveryCommand constructor",
)

// ReassignDeliveryCommand represents an operator's decision to move an
// order's active delivery to a different courier. This is the only path that
// allows a second Delivery record to exist for the same order.
type ReassignDeliveryCommand struct { //nolint:recvcheck //using for validation
	orderID       kernel.UUID
	newProviderID string

	guard guard.ConstructorGuard
}

// NewReassignDeliveryCommand creates a reassignment command.
func NewReassignDeliveryCommand(orderID kernel.UUID, newProviderID string) (ReassignDeliveryCommand, error) {
	cmd := ReassignDeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setNewProviderID(newProviderID),
	); err != nil {
		return ReassignDeliveryCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c ReassignDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrReassignDeliveryCommandIsNotConstructed)
}

// OrderID returns the order whose delivery is being reassigned.
func (c ReassignDeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}

// NewProviderID returns the courier that will take over the delivery.
func (c ReassignDeliveryCommand) NewProviderID() string {
	return c.newProviderID
}

func (c *ReassignDeliveryCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *ReassignDeliveryCommand) setNewProviderID(providerID string) error {
	if providerID == "" {
		return ErrProviderIDIsRequired
	}
	c.newProviderID = providerID
	return nil
}
