package kernel

import (
	"strings"

	"dispatch/internal/pkg/errs"
)

// ErrAddressIsNotConstructed is returned when validating a zero-value Address.
var ErrAddressIsNotConstructed = errs.NewValueIsRequiredError("Address must be created via NewAddress")

// Address is a value object describing a pickup or dropoff point for a
// delivery. Street and city are mandatory; notes carry free-form directions
// for the courier ("gate code 4411", "third floor").
//
// Address is immutable: once constructed its fields cannot change.
type Address struct {
	street string
	city   string
	notes  string

	isConstructed bool
}

// NewAddress creates a validated Address. Street and city must be non-blank;
// notes are optional.
func NewAddress(street, city, notes string) (Address, error) {
	if strings.TrimSpace(street) == "" {
		return Address{}, errs.NewValueIsRequiredError("street")
	}
	if strings.TrimSpace(city) == "" {
		return Address{}, errs.NewValueIsRequiredError("city")
	}

	return Address{
		street:        strings.TrimSpace(street),
		city:          strings.TrimSpace(city),
		notes:         strings.TrimSpace(notes),
		isConstructed: true,
	}, nil
}

// Street returns the street line of the address.
func (a Address) Street() string {
	return a.street
}

// City returns the city of the address.
func (a Address) City() string {
	return a.city
}

// Notes returns optional courier directions. May be empty.
func (a Address) Notes() string {
	return a.notes
}

// String returns a single-line rendering suitable for courier API payloads.
func (a Address) String() string {
	if a.notes == "" {
		return a.street + ", " + a.city
	}
	return a.street + ", " + a.city + " (" + a.notes + ")"
}

// IsEqual reports whether two addresses have identical street, city, and notes.
func (a Address) IsEqual(other Address) bool {
	return a.street == other.street && a.city == other.city && a.notes == other.notes
}

// Validate returns ErrAddressIsNotConstructed for the zero value.
func (a Address) Validate() error {
	if !a.isConstructed {
		return ErrAddressIsNotConstructed
	}
	return nil
}
