package services

import (
	"fmt"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/pkg/errs"
)

// NormalizedStatus is the result of translating a courier's native status
// code into the internal closed enum. Mapped is false for codes (or
// providers) with no known mapping; the raw code is preserved so nothing a
// courier tells us is ever silently dropped, only visibly ambiguous.
type NormalizedStatus struct {
	Status delivery.Status
	Raw    string
	Mapped bool
}

// StatusNormalizer translates provider status vocabularies into the internal
// Status enum. It is a pure domain service: Normalize has no side effects,
// never fails, and maps deterministically for every known pair.
//
// The per-provider tables are finite mappings supplied at startup and
// validated against the closed enum at construction time, so an unmapped
// provider status is a detectable configuration gap rather than a silent bug.
type StatusNormalizer struct {
	tables map[string]map[string]delivery.Status
}

// NewStatusNormalizer builds a normalizer from per-provider lookup tables.
// Every target status is validated against the closed enum; a table entry
// pointing outside it is a configuration error and fails construction.
func NewStatusNormalizer(tables map[string]map[string]delivery.Status) (StatusNormalizer, error) {
	if len(tables) == 0 {
		return StatusNormalizer{}, errs.NewValueIsRequiredError("tables")
	}

	copied := make(map[string]map[string]delivery.Status, len(tables))
	for providerID, table := range tables {
		if providerID == "" {
			return StatusNormalizer{}, errs.NewValueIsRequiredError("providerID")
		}
		if len(table) == 0 {
			return StatusNormalizer{}, errs.NewValueIsRequiredError(
				fmt.Sprintf("status table for provider %s", providerID),
			)
		}

		providerTable := make(map[string]delivery.Status, len(table))
		for raw, status := range table {
			if raw == "" {
				return StatusNormalizer{}, errs.NewValueIsRequiredError(
					fmt.Sprintf("raw status code for provider %s", providerID),
				)
			}
			if err := status.Validate(); err != nil {
				return StatusNormalizer{}, errs.NewValueIsInvalidErrorWithCause(
					fmt.Sprintf("status mapping %s/%s", providerID, raw),
					err,
				)
			}
			providerTable[raw] = status
		}
		copied[providerID] = providerTable
	}

	return StatusNormalizer{tables: copied}, nil
}

// Normalize translates one provider status code. It is total: codes outside
// the provider's table, and providers without a table, return a flagged
// passthrough with Status Unknown and Mapped false.
func (n StatusNormalizer) Normalize(providerID, raw string) NormalizedStatus {
	if table, ok := n.tables[providerID]; ok {
		if status, ok := table[raw]; ok {
			return NormalizedStatus{Status: status, Raw: raw, Mapped: true}
		}
	}
	return NormalizedStatus{Status: delivery.Unknown, Raw: raw, Mapped: false}
}

// HasProvider reports whether a status table is configured for the provider.
func (n StatusNormalizer) HasProvider(providerID string) bool {
	_, ok := n.tables[providerID]
	return ok
}

// Table returns a copy of one provider's mapping, for validation and tests.
func (n StatusNormalizer) Table(providerID string) map[string]delivery.Status {
	table, ok := n.tables[providerID]
	if !ok {
		return nil
	}
	out := make(map[string]delivery.Status, len(table))
	for raw, status := range table {
		out[raw] = status
	}
	return out
}
