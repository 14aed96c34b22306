package kernel

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"
)

// ErrPhoneIsNotConstructed is returned when validating a zero-value Phone.
var ErrPhoneIsNotConstructed = errs.NewValueIsRequiredError("Phone must be created via NewPhone")

// Phone is a value object for contact phone numbers passed to couriers.
// Numbers are kept in loose international form: an optional leading "+"
// followed by 7 to 15 digits. Separators and spaces are stripped on
// construction so the same number always normalizes identically.
type Phone struct {
	number string

	isConstructed bool
}

// NewPhone normalizes and validates a phone number string.
func NewPhone(raw string) (Phone, error) {
	normalized := normalizePhone(raw)
	if normalized == "" {
		return Phone{}, errs.NewValueIsRequiredError("phone")
	}

	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return Phone{}, errs.NewValueIsInvalidErrorWithCause(
			"phone",
			fmt.Errorf("%q must contain 7 to 15 digits", raw),
		)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Phone{}, errs.NewValueIsInvalidErrorWithCause(
				"phone",
				fmt.Errorf("%q contains a non-digit character", raw),
			)
		}
	}

	return Phone{number: normalized, isConstructed: true}, nil
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separator, dropped
		default:
			b.WriteRune(r) // kept so validation rejects it
		}
	}
	return b.String()
}

// String returns the normalized number.
func (p Phone) String() string {
	return p.number
}

// IsEqual reports whether two phones normalize to the same number.
func (p Phone) IsEqual(other Phone) bool {
	return p.number == other.number
}

// Validate returns ErrPhoneIsNotConstructed for the zero value.
func (p Phone) Validate() error {
	if !p.isConstructed {
		return ErrPhoneIsNotConstructed
	}
	return nil
}
