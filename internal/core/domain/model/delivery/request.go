package delivery

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// ErrRequestIsNotConstructed is returned when a Request was not created
// through NewRequest.
var ErrRequestIsNotConstructed = errors.New("Request must be created via NewRequest constructor")

// Request is the provider-agnostic dispatch payload built from order and
// vendor data. Every courier adapter translates a Request into its own wire
// format; the orchestrator never speaks a provider's dialect directly.
//
// Weight and declared value come from real order data supplied by the order
// subsystem; the dispatch core never substitutes placeholder values.
type Request struct {
	pickupAddress  kernel.Address
	dropoffAddress kernel.Address
	vendorPhone    kernel.Phone
	customerPhone  kernel.Phone
	description    string
	instructions   string
	weightKG       float64
	declaredValue  int64

	isConstructed bool
}

// NewRequest creates a validated dispatch payload.
//
// Parameters:
//   - pickupAddress / dropoffAddress: vendor and customer addresses
//   - vendorPhone / customerPhone: contacts the courier may call
//   - description: what is inside the package, shown to the courier
//   - instructions: optional special handling notes
//   - weightKG: package weight, must be positive
//   - declaredValue: insured value in minor currency units, non-negative
func NewRequest(
	pickupAddress kernel.Address,
	dropoffAddress kernel.Address,
	vendorPhone kernel.Phone,
	customerPhone kernel.Phone,
	description string,
	instructions string,
	weightKG float64,
	declaredValue int64,
) (Request, error) {
	r := Request{
		description:   description,
		instructions:  instructions,
		isConstructed: true,
	}

	if err := errors.Join(
		r.setPickupAddress(pickupAddress),
		r.setDropoffAddress(dropoffAddress),
		r.setVendorPhone(vendorPhone),
		r.setCustomerPhone(customerPhone),
		r.setDescription(description),
		r.setWeightKG(weightKG),
		r.setDeclaredValue(declaredValue),
	); err != nil {
		return Request{}, err
	}

	return r, nil
}

// Validate ensures the Request was built through NewRequest.
func (r Request) Validate() error {
	if !r.isConstructed {
		return ErrRequestIsNotConstructed
	}
	return nil
}

// PickupAddress returns the vendor-side collection address.
func (r Request) PickupAddress() kernel.Address {
	return r.pickupAddress
}

// DropoffAddress returns the customer-side delivery address.
func (r Request) DropoffAddress() kernel.Address {
	return r.dropoffAddress
}

// VendorPhone returns the pickup contact number.
func (r Request) VendorPhone() kernel.Phone {
	return r.vendorPhone
}

// CustomerPhone returns the dropoff contact number.
func (r Request) CustomerPhone() kernel.Phone {
	return r.customerPhone
}

// Description returns the package contents description.
func (r Request) Description() string {
	return r.description
}

// Instructions returns optional special handling notes. May be empty.
func (r Request) Instructions() string {
	return r.instructions
}

// WeightKG returns the declared package weight in kilograms.
func (r Request) WeightKG() float64 {
	return r.weightKG
}

// DeclaredValue returns the insured value in minor currency units.
func (r Request) DeclaredValue() int64 {
	return r.declaredValue
}

func (r *Request) setPickupAddress(a kernel.Address) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.pickupAddress = a
	return nil
}

func (r *Request) setDropoffAddress(a kernel.Address) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.dropoffAddress = a
	return nil
}

func (r *Request) setVendorPhone(p kernel.Phone) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.vendorPhone = p
	return nil
}

func (r *Request) setCustomerPhone(p kernel.Phone) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.customerPhone = p
	return nil
}

func (r *Request) setDescription(description string) error {
	if description == "" {
		return errs.NewValueIsRequiredError("description")
	}
	r.description = description
	return nil
}

func (r *Request) setWeightKG(weightKG float64) error {
	if weightKG <= 0 {
		return errs.NewValueIsInvalidErrorWithCause(
			"weightKG",
			fmt.Errorf("%v is not greater than 0", weightKG),
		)
	}
	r.weightKG = weightKG
	return nil
}

func (r *Request) setDeclaredValue(declaredValue int64) error {
	if declaredValue < 0 {
		return errs.NewValueIsInvalidErrorWithCause(
			"declaredValue",
			fmt.Errorf("%d is negative", declaredValue),
		)
	}
	r.declaredValue = declaredValue
	return nil
}
