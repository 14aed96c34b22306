package services

import (
	"dispatch/internal/core/domain/model/delivery"
)

// Provider identifiers for the couriers currently integrated.
const (
	ProviderG4S   = "g4s"
	ProviderFargo = "fargo_courier"
)

// DefaultStatusTables returns the built-in vocabulary mappings for the
// integrated couriers. Each table is the provider's documented status set;
// codes a provider starts emitting that are not listed here surface as
// flagged passthroughs until the table is extended.
func DefaultStatusTables() map[string]map[string]delivery.Status {
	return map[string]map[string]delivery.Status{
		ProviderG4S: {
			"ORDER_RECEIVED": delivery.Pending,
			"PICKUP_BOOKED":  delivery.PickupScheduled,
			"COLLECTED":      delivery.PickedUp,
			"LINEHAUL":       delivery.InTransit,
			"WITH_COURIER":   delivery.OutForDelivery,
			"POD_CONFIRMED":  delivery.Delivered,
			"UNDELIVERABLE":  delivery.Failed,
			"CANCELLED":      delivery.Cancelled,
		},
		ProviderFargo: {
			"queued":         delivery.Pending,
			"rider_assigned": delivery.PickupScheduled,
			"collected":      delivery.PickedUp,
			"on_the_way":     delivery.InTransit,
			"arriving":       delivery.OutForDelivery,
			"completed":      delivery.Delivered,
			"failed":         delivery.Failed,
			"void":           delivery.Cancelled,
		},
	}
}
