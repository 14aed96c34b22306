package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrCancelDeliveryCommandIsNotConstructed = errors.New(
	"CancelDeliveryCommand is not constructed")

// CancelDeliveryCommand stops the active delivery for an order, for example
// when the customer cancels the purchase.
type CancelDeliveryCommand struct {
	orderID kernel.UUID
	reason  string

	guard guard.ConstructorGuard
}

func NewCancelDeliveryCommand(orderID kernel.UUID, reason string) (CancelDeliveryCommand, error) {
	var err error
	command := CancelDeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	err = errors.Join(err, command.setOrderID(orderID))
	err = errors.Join(err, command.setReason(reason))

	if err != nil {
		return CancelDeliveryCommand{}, err
	}
	return command, nil
}

func (c CancelDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCancelDeliveryCommandIsNotConstructed)
}

func (c CancelDeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c CancelDeliveryCommand) Reason() string {
	return c.reason
}

func (c *CancelDeliveryCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("orderID", err)
	}
	c.orderID = orderID
	return nil
}

func (c *CancelDeliveryCommand) setReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errs.NewValueIsRequiredError("reason")
	}
	c.reason = reason
	return nil
}
