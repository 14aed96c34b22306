// Package metrics exposes Prometheus counters for the dispatch core. The
// counters cover the paths operators actually page on: dispatch outcomes per
// provider, courier API failures, rejected status regressions, and courier
// status codes with no configured mapping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTotal counts dispatch attempts by provider and outcome
	// (accepted, rejected, transport_error, duplicate).
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_attempts_total",
		Help: "Dispatch attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	// CourierRequestErrors counts failed courier API calls by provider and
	// operation, split into transport vs rejected classes.
	CourierRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_request_errors_total",
		Help: "Courier API call failures by provider, operation, and class.",
	}, []string{"provider", "op", "class"})

	// StatusRegressions counts out-of-order courier updates that were
	// logged and discarded.
	StatusRegressions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_status_regressions_total",
		Help: "Courier status updates rejected because they would regress a delivery.",
	}, []string{"provider"})

	// UnmappedStatuses counts courier status codes with no entry in the
	// provider's normalization table. A nonzero rate means the table needs
	// extending.
	UnmappedStatuses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_unmapped_statuses_total",
		Help: "Courier status codes that passed through the normalizer unmapped.",
	}, []string{"provider"})
)
