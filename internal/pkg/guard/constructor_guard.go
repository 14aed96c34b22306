// Package guard provides a construction marker for value objects,
// commands, and queries. Embedding a ConstructorGuard in a struct makes it
// possible to detect zero-value instances that bypassed the designated
// constructor, so validation can fail early instead of letting half-built
// objects reach the domain.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when the caller passes
// a nil validation error for an unconstructed object. It guarantees that
// validation of a zero value always fails with a meaningful message.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks whether its enclosing object was created through a
// constructor function. The zero value means "not constructed".
//
// Example:
//
//	type ReassignDeliveryCommand struct {
//	    orderID kernel.UUID
//	    guard   guard.ConstructorGuard
//	}
//
//	func NewReassignDeliveryCommand(orderID kernel.UUID) (ReassignDeliveryCommand, error) {
//	    ...
//	    return ReassignDeliveryCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
//	}
//
//	func (c ReassignDeliveryCommand) Validate() error {
//	    return c.guard.Validate(ErrReassignDeliveryCommandIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard that marks the enclosing object as
// properly constructed. Call it only from constructor functions.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns nil if the object was built through its constructor.
// For a zero-value guard it returns validationError, or
// ErrDefaultConstructorGuard when validationError is nil.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
