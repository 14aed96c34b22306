// Package kernel provides core domain primitives shared across the dispatch
// core. It contains small, immutable value objects that carry their own
// validation, following Domain-Driven Design principles:
//
//   - UUID: entity identifier wrapping github.com/google/uuid
//   - Address: a street address used for pickup and dropoff points
//   - Phone: a contact phone number in loose international form
//
// All value objects in this package are constructed through factory functions
// and expose Validate methods so zero values can be detected when objects are
// reconstructed from persistence or external input.
package kernel
