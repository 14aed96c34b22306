// Package delivery provides the domain model for order-dispatch attempts
// against third-party couriers.
//
// The package includes:
//   - Delivery: the aggregate root for one dispatch attempt, owning the
//     normalized status state machine and the append-only audit trail
//   - Status: the closed internal status enum with a total progress order
//   - Update: one immutable audit trail entry with its source
//   - Request: the provider-agnostic dispatch payload
//
// Key business rules:
//   - a delivery's status only advances or jumps to a terminal state; courier
//     updates that would regress it are rejected as anomalies
//   - delivered, failed, and cancelled are final; the only way forward from a
//     terminal state is a reassignment that creates a new Delivery record and
//     marks the old one superseded
//   - audit trail entries are never mutated or deleted and their timestamps
//     are non-decreasing per delivery
//
// The package follows Domain-Driven Design principles: rich behavior on the
// aggregate, constructor-enforced invariants, and validation on restore.
package delivery
