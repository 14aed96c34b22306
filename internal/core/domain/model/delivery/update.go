package delivery

import (
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// UpdateSource identifies where a delivery update originated. The audit trail
// distinguishes courier-reported progress from manual operator actions and
// internal system transitions.
type UpdateSource int

const (
	// SourceUnknown represents an invalid or undefined source.
	SourceUnknown UpdateSource = iota

	// SourceSystem marks updates produced by the orchestrator itself,
	// such as the initial dispatch record or a reassignment cancellation.
	SourceSystem

	// SourceCourier marks updates ingested from courier webhooks or polls.
	SourceCourier

	// SourceAdmin marks updates entered manually by an operator.
	SourceAdmin
)

// getSourceStrings returns the wire names for all update sources.
func getSourceStrings() map[UpdateSource]string {
	return map[UpdateSource]string{
		SourceUnknown: "unknown",
		SourceSystem:  "system",
		SourceCourier: "courier",
		SourceAdmin:   "admin",
	}
}

// SourceFromString parses a wire name back into an UpdateSource.
func SourceFromString(s string) (UpdateSource, error) {
	for source, name := range getSourceStrings() {
		if source != SourceUnknown && name == s {
			return source, nil
		}
	}
	return SourceUnknown, errs.NewValueIsInvalidErrorWithCause(
		"source",
		fmt.Errorf("%q is not a known update source", s),
	)
}

// String returns the wire name of the source.
func (s UpdateSource) String() string {
	if str, ok := getSourceStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// Validate checks that the source is one of system, courier, or admin.
func (s UpdateSource) Validate() error {
	if s != SourceSystem && s != SourceCourier && s != SourceAdmin {
		return errs.NewValueIsInvalidErrorWithCause(
			"source",
			fmt.Errorf("%d is not a valid update source", s),
		)
	}
	return nil
}

// Update is one append-only audit trail entry for a delivery. Updates are the
// source of truth for the state machine's history: they are never mutated or
// deleted, and their timestamps are non-decreasing per delivery.
type Update struct {
	id          kernel.UUID
	deliveryID  kernel.UUID
	status      Status
	description string
	location    string
	timestamp   time.Time
	source      UpdateSource

	isConstructed bool
}

// NewUpdate creates a validated audit trail entry. Location is optional;
// every other field is mandatory.
func NewUpdate(
	id kernel.UUID,
	deliveryID kernel.UUID,
	status Status,
	description string,
	location string,
	timestamp time.Time,
	source UpdateSource,
) (Update, error) {
	if err := id.Validate(); err != nil {
		return Update{}, err
	}
	if err := deliveryID.Validate(); err != nil {
		return Update{}, err
	}
	if err := status.Validate(); err != nil {
		return Update{}, err
	}
	if err := source.Validate(); err != nil {
		return Update{}, err
	}
	if timestamp.IsZero() {
		return Update{}, errs.NewValueIsRequiredError("timestamp")
	}

	return Update{
		id:            id,
		deliveryID:    deliveryID,
		status:        status,
		description:   description,
		location:      location,
		timestamp:     timestamp,
		source:        source,
		isConstructed: true,
	}, nil
}

// ID returns the update's unique identifier.
func (u Update) ID() kernel.UUID {
	return u.id
}

// DeliveryID returns the identifier of the delivery this update belongs to.
func (u Update) DeliveryID() kernel.UUID {
	return u.deliveryID
}

// Status returns the normalized status recorded by this update.
func (u Update) Status() Status {
	return u.status
}

// Description returns the human-readable explanation of the update.
func (u Update) Description() string {
	return u.description
}

// Location returns the optional courier-reported location. May be empty.
func (u Update) Location() string {
	return u.location
}

// Timestamp returns when the update took effect.
func (u Update) Timestamp() time.Time {
	return u.timestamp
}

// Source returns where the update originated.
func (u Update) Source() UpdateSource {
	return u.source
}

// Validate returns an error for zero-value updates that bypassed NewUpdate.
func (u Update) Validate() error {
	if !u.isConstructed {
		return errs.NewValueIsRequiredError("Update must be created via NewUpdate")
	}
	return nil
}
