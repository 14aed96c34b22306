// Package errs provides standardized error types for the dispatch core.
// It implements a consistent pattern for error creation, formatting, and
// unwrapping that is used throughout the application.
//
// Two groups of errors live here:
//
//   - Generic validation and lookup errors shared by every layer:
//     ObjectNotFoundError, ValueIsInvalidError, ValueIsRequiredError.
//   - The courier dispatch taxonomy that drives recovery policy:
//     ProviderNotSupportedError, CourierTransportError, CourierRejectedError,
//     StatusRegressionError, DuplicateDispatchError.
//
// Each error type follows the same pattern:
//   - A sentinel error variable (e.g. ErrCourierTransport)
//   - A struct type with fields for error details
//   - Constructor functions, with and without cause where a cause makes sense
//   - Error() method for single-line formatting
//   - Unwrap() method returning the sentinel, so errors.Is classification
//     works without importing concrete structs
package errs
