package delivery

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the normalized lifecycle state of a delivery. Every
// courier's native vocabulary is mapped onto this closed set by the status
// normalizer, so the rest of the system reasons about exactly one state
// machine.
//
// State transitions:
//
//	Pending ──> PickupScheduled ──> PickedUp ──> InTransit ──> OutForDelivery ──> Delivered
//	   │               │                │            │               │
//	   └───────────────┴────────────────┴────────────┴───────────────┴──> Failed / Cancelled
//
// Progress states form a total order (the declaration order below) and a
// delivery only ever advances along it; Delivered, Failed, and Cancelled are
// terminal and accept no further transitions. Skipping intermediate states is
// allowed because couriers report at different granularities.
type Status int

const (
	// Unknown represents an invalid or unmapped status.
	// This value (0) helps catch uninitialized Status values and is the
	// flagged-passthrough result for courier codes with no known mapping.
	Unknown Status = iota

	// Pending means the courier accepted the delivery but has not yet
	// scheduled a pickup. Initial status of every dispatched delivery.
	Pending

	// PickupScheduled means the courier committed to a pickup window.
	PickupScheduled

	// PickedUp means the courier collected the package from the vendor.
	PickedUp

	// InTransit means the package is moving through the courier network.
	InTransit

	// OutForDelivery means the package is on the last leg to the customer.
	OutForDelivery

	// Delivered means the customer received the package. Terminal.
	Delivered

	// Failed means the courier definitively could not complete the
	// delivery. Terminal.
	Failed

	// Cancelled means the delivery was cancelled by an operator, the
	// customer, or a reassignment. Terminal.
	Cancelled
)

// getStatusStrings returns the wire names for all statuses, including Unknown.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:         "unknown",
		Pending:         "pending",
		PickupScheduled: "pickup_scheduled",
		PickedUp:        "picked_up",
		InTransit:       "in_transit",
		OutForDelivery:  "out_for_delivery",
		Delivered:       "delivered",
		Failed:          "failed",
		Cancelled:       "cancelled",
	}
}

// getValidStatusStrings returns the wire names for valid statuses only.
// Unknown is excluded to support validation.
func getValidStatusStrings() map[Status]string {
	m := getStatusStrings()
	delete(m, Unknown)
	return m
}

// StatusFromString parses a wire name back into a Status. Used when loading
// normalizer tables and when reconstructing deliveries from persistence.
// Returns an error for names outside the closed set.
func StatusFromString(s string) (Status, error) {
	for status, name := range getValidStatusStrings() {
		if name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status",
		fmt.Errorf("%q is not a known delivery status", s),
	)
}

// String returns the snake_case wire name of the status. It implements
// fmt.Stringer and is safe to call on any value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// Validate checks that the Status is one of the closed set.
// Unknown (0) and out-of-range values are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause(
			"status",
			fmt.Errorf("%d is not a valid status", s),
		)
	}
	return nil
}

// IsTerminal reports whether the status is final. Terminal deliveries accept
// no further transitions; the only way forward is an explicit reassignment,
// which creates a new delivery record.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Failed || s == Cancelled
}

// CanTransitionTo reports whether a delivery in status s may move to next.
//
// Rules:
//   - a terminal status accepts nothing
//   - any non-terminal status accepts any terminal status
//   - otherwise next must be strictly later in the progress order
//
// The comparison uses the total order of the enum declaration, which makes
// tie-breaks between concurrently reported updates deterministic: equal or
// earlier statuses are always rejected.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Validate() != nil || next.Validate() != nil {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next.IsTerminal() {
		return true
	}
	return next > s
}
