package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the courier dispatch taxonomy. Each class drives a
// different recovery policy:
//
//   - ErrProviderNotSupported: configuration bug, fatal for the request.
//   - ErrCourierTransport: network-level failure or timeout, transient and
//     retryable by the background polling job, never by the immediate caller.
//   - ErrCourierRejected: the courier understood and refused the request,
//     fatal for this attempt and surfaced to an operator.
//   - ErrStatusRegression: out-of-order status update, logged and discarded.
//   - ErrDuplicateDispatch: a second dispatch for an order that already has an
//     active delivery, rejected before any network call.
var (
	ErrProviderNotSupported = errors.New("provider not supported")
	ErrCourierTransport     = errors.New("courier transport error")
	ErrCourierRejected      = errors.New("courier rejected request")
	ErrStatusRegression     = errors.New("status regression")
	ErrDuplicateDispatch    = errors.New("duplicate dispatch")
)

// ProviderNotSupportedError indicates that no adapter is registered for the
// given provider identifier.
type ProviderNotSupportedError struct {
	ProviderID string
}

// NewProviderNotSupportedError creates a ProviderNotSupportedError for the
// unknown provider identifier.
func NewProviderNotSupportedError(providerID string) *ProviderNotSupportedError {
	return &ProviderNotSupportedError{ProviderID: providerID}
}

func (e *ProviderNotSupportedError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s", ErrProviderNotSupported, e.ProviderID))
}

func (e *ProviderNotSupportedError) Unwrap() error {
	return ErrProviderNotSupported
}

// CourierTransportError indicates that a courier API call failed before the
// courier could give a definitive answer: connection failures, timeouts, or
// 5xx responses. The operation that failed is recorded in Op.
type CourierTransportError struct {
	ProviderID string
	Op         string
	Cause      error
}

// NewCourierTransportError creates a CourierTransportError for the failed
// operation against the given provider.
func NewCourierTransportError(providerID, op string, cause error) *CourierTransportError {
	return &CourierTransportError{ProviderID: providerID, Op: op, Cause: cause}
}

func (e *CourierTransportError) Error() string {
	if e.Cause != nil {
		return sanitize(fmt.Sprintf("%s: provider is: %s, op is: %s (cause: %s)",
			ErrCourierTransport, e.ProviderID, e.Op, e.Cause))
	}
	return sanitize(fmt.Sprintf("%s: provider is: %s, op is: %s", ErrCourierTransport, e.ProviderID, e.Op))
}

func (e *CourierTransportError) Unwrap() error {
	return ErrCourierTransport
}

// CourierRejectedError indicates that the courier validated the request and
// refused it, for example because of an unserviceable address or failed
// authentication. Reason carries the courier's human-readable explanation.
type CourierRejectedError struct {
	ProviderID string
	Reason     string
}

// NewCourierRejectedError creates a CourierRejectedError carrying the
// courier's explanation for the refusal.
func NewCourierRejectedError(providerID, reason string) *CourierRejectedError {
	return &CourierRejectedError{ProviderID: providerID, Reason: reason}
}

func (e *CourierRejectedError) Error() string {
	return sanitize(fmt.Sprintf("%s: provider is: %s, reason is: %s", ErrCourierRejected, e.ProviderID, e.Reason))
}

func (e *CourierRejectedError) Unwrap() error {
	return ErrCourierRejected
}

// StatusRegressionError indicates that an incoming status update would move a
// delivery to an earlier state than its current one. Regressions are logged
// as anomalies and never applied.
type StatusRegressionError struct {
	DeliveryID string
	From       string
	To         string
}

// NewStatusRegressionError creates a StatusRegressionError describing the
// rejected transition.
func NewStatusRegressionError(deliveryID, from, to string) *StatusRegressionError {
	return &StatusRegressionError{DeliveryID: deliveryID, From: from, To: to}
}

func (e *StatusRegressionError) Error() string {
	return sanitize(fmt.Sprintf("%s: delivery is: %s, from is: %s, to is: %s",
		ErrStatusRegression, e.DeliveryID, e.From, e.To))
}

func (e *StatusRegressionError) Unwrap() error {
	return ErrStatusRegression
}

// DuplicateDispatchError indicates that an order already has an active
// delivery and must not be submitted to a courier a second time.
type DuplicateDispatchError struct {
	OrderID          string
	ActiveDeliveryID string
}

// NewDuplicateDispatchError creates a DuplicateDispatchError naming the order
// and its already-active delivery.
func NewDuplicateDispatchError(orderID, activeDeliveryID string) *DuplicateDispatchError {
	return &DuplicateDispatchError{OrderID: orderID, ActiveDeliveryID: activeDeliveryID}
}

func (e *DuplicateDispatchError) Error() string {
	return sanitize(fmt.Sprintf("%s: order is: %s, active delivery is: %s",
		ErrDuplicateDispatch, e.OrderID, e.ActiveDeliveryID))
}

func (e *DuplicateDispatchError) Unwrap() error {
	return ErrDuplicateDispatch
}
