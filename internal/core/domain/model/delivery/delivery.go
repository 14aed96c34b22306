package delivery

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

var (
	// ErrDeliveryIsNotConstructed is returned when a Delivery instance was not
	// created through NewDelivery or RestoreDelivery.
	ErrDeliveryIsNotConstructed = errors.New("Delivery must be created via NewDelivery or RestoreDelivery")

	// ErrTrackingAlreadyAssigned is returned when ConfirmDispatch is called on
	// a delivery that already carries a tracking identifier.
	ErrTrackingAlreadyAssigned = errors.New("delivery already has a tracking identifier")

	// ErrDeliveryNotCancelled is returned when Supersede is called on a
	// delivery that was not cancelled first.
	ErrDeliveryNotCancelled = errors.New("only a cancelled delivery can be superseded")
)

// Delivery is the aggregate root for one order-dispatch attempt. It owns the
// normalized status state machine and the append-only audit trail of Updates.
//
// Invariants:
//   - at most one active (non-terminal) Delivery exists per order; the
//     orchestrator enforces this before creating a new one
//   - the status only advances along the Status total order or jumps to a
//     terminal state, never regresses
//   - update timestamps are non-decreasing; out-of-order courier timestamps
//     are clamped to the previous update's time
//   - terminal states are final; reassignment supersedes via a new record
type Delivery struct {
	id         kernel.UUID
	orderID    kernel.UUID
	providerID string
	trackingID string

	status  Status
	request Request
	fee     int64

	failureReason string
	supersededBy  *kernel.UUID

	createdAt           time.Time
	estimatedPickupAt   *time.Time
	actualPickupAt      *time.Time
	estimatedDeliveryAt *time.Time
	actualDeliveryAt    *time.Time

	updates     []Update
	uncommitted []Update

	isConstructed bool
}

// NewDelivery creates a Delivery in Pending status for a freshly dispatched
// order. The tracking identifier is assigned afterwards via ConfirmDispatch,
// once the courier has accepted the shipment.
func NewDelivery(
	id kernel.UUID,
	orderID kernel.UUID,
	providerID string,
	request Request,
	fee int64,
	now time.Time,
) (*Delivery, error) {
	d := &Delivery{
		status:        Pending,
		createdAt:     now,
		isConstructed: true,
	}

	if err := errors.Join(
		d.setID(id),
		d.setOrderID(orderID),
		d.setProviderID(providerID),
		d.setRequest(request),
		d.setFee(fee),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// RestoreDeliveryParams carries every persisted field needed to rebuild a
// Delivery aggregate from storage.
type RestoreDeliveryParams struct {
	ID                  kernel.UUID
	OrderID             kernel.UUID
	ProviderID          string
	TrackingID          string
	Status              Status
	Request             Request
	Fee                 int64
	FailureReason       string
	SupersededBy        *kernel.UUID
	CreatedAt           time.Time
	EstimatedPickupAt   *time.Time
	ActualPickupAt      *time.Time
	EstimatedDeliveryAt *time.Time
	ActualDeliveryAt    *time.Time
	Updates             []Update
}

// RestoreDelivery reconstructs a Delivery from persistence without replaying
// transitions. Status and identifiers are still validated so corrupt rows
// fail loudly instead of producing a half-valid aggregate.
func RestoreDelivery(p RestoreDeliveryParams) (*Delivery, error) {
	d := &Delivery{
		trackingID:          p.TrackingID,
		failureReason:       p.FailureReason,
		supersededBy:        p.SupersededBy,
		createdAt:           p.CreatedAt,
		estimatedPickupAt:   p.EstimatedPickupAt,
		actualPickupAt:      p.ActualPickupAt,
		estimatedDeliveryAt: p.EstimatedDeliveryAt,
		actualDeliveryAt:    p.ActualDeliveryAt,
		updates:             p.Updates,
		isConstructed:       true,
	}

	if err := errors.Join(
		d.setID(p.ID),
		d.setOrderID(p.OrderID),
		d.setProviderID(p.ProviderID),
		d.setRequest(p.Request),
		d.setFee(p.Fee),
		p.Status.Validate(),
	); err != nil {
		return nil, err
	}
	d.status = p.Status

	return d, nil
}

// Validate ensures the Delivery was built through a constructor.
func (d *Delivery) Validate() error {
	if d == nil || !d.isConstructed {
		return ErrDeliveryIsNotConstructed
	}
	return nil
}

// IsEqual compares two deliveries by identifier.
func (d *Delivery) IsEqual(other *Delivery) bool {
	return other != nil && d.id.IsEqual(other.id)
}

// ID returns the delivery's unique identifier.
func (d *Delivery) ID() kernel.UUID {
	return d.id
}

// OrderID returns the identifier of the order this delivery fulfills.
func (d *Delivery) OrderID() kernel.UUID {
	return d.orderID
}

// ProviderID returns the courier provider handling this delivery.
func (d *Delivery) ProviderID() string {
	return d.providerID
}

// TrackingID returns the courier-issued tracking identifier.
// Empty until the courier accepts the shipment.
func (d *Delivery) TrackingID() string {
	return d.trackingID
}

// Status returns the current normalized status.
func (d *Delivery) Status() Status {
	return d.status
}

// Request returns the dispatch payload the delivery was created from.
func (d *Delivery) Request() Request {
	return d.request
}

// Fee returns the delivery fee in minor currency units.
func (d *Delivery) Fee() int64 {
	return d.fee
}

// FailureReason returns why the delivery failed or was cancelled.
// Empty while the delivery is progressing normally.
func (d *Delivery) FailureReason() string {
	return d.failureReason
}

// SupersededBy returns the identifier of the replacement delivery created by
// a reassignment, or nil if this delivery was never superseded.
func (d *Delivery) SupersededBy() *kernel.UUID {
	return d.supersededBy
}

// CreatedAt returns when the delivery record was created.
func (d *Delivery) CreatedAt() time.Time {
	return d.createdAt
}

// EstimatedPickupAt returns the courier's pickup estimate, if provided.
func (d *Delivery) EstimatedPickupAt() *time.Time {
	return d.estimatedPickupAt
}

// ActualPickupAt returns when the courier reported picking up the package.
func (d *Delivery) ActualPickupAt() *time.Time {
	return d.actualPickupAt
}

// EstimatedDeliveryAt returns the courier's delivery estimate, if provided.
func (d *Delivery) EstimatedDeliveryAt() *time.Time {
	return d.estimatedDeliveryAt
}

// ActualDeliveryAt returns when the courier reported delivering the package.
func (d *Delivery) ActualDeliveryAt() *time.Time {
	return d.actualDeliveryAt
}

// Updates returns the full audit trail in append order.
func (d *Delivery) Updates() []Update {
	return d.updates
}

// UncommittedUpdates returns updates appended since the aggregate was loaded.
// The repository persists these and then calls MarkUpdatesCommitted.
func (d *Delivery) UncommittedUpdates() []Update {
	return d.uncommitted
}

// MarkUpdatesCommitted clears the uncommitted update buffer after the
// repository has persisted it.
func (d *Delivery) MarkUpdatesCommitted() {
	d.uncommitted = nil
}

// IsActive reports whether the delivery is still in flight. A delivery with a
// terminal status is not active.
func (d *Delivery) IsActive() bool {
	return d.isConstructed && !d.status.IsTerminal()
}

// ConfirmDispatch records the courier's acceptance of the shipment: the
// tracking identifier and the courier's pickup/delivery estimates. It appends
// the delivery's first audit trail entry with source "system".
//
// Returns ErrTrackingAlreadyAssigned if called twice, which would indicate a
// duplicate submission to the courier.
func (d *Delivery) ConfirmDispatch(
	trackingID string,
	estimatedPickupAt *time.Time,
	estimatedDeliveryAt *time.Time,
	now time.Time,
) (Update, error) {
	if err := d.Validate(); err != nil {
		return Update{}, err
	}
	if trackingID == "" {
		return Update{}, errs.NewValueIsRequiredError("trackingID")
	}
	if d.trackingID != "" {
		return Update{}, ErrTrackingAlreadyAssigned
	}

	d.trackingID = trackingID
	d.estimatedPickupAt = estimatedPickupAt
	d.estimatedDeliveryAt = estimatedDeliveryAt

	description := fmt.Sprintf("dispatched to %s, tracking %s", d.providerID, trackingID)
	return d.appendUpdate(Pending, description, "", now, SourceSystem)
}

// ApplyStatus moves the delivery to the next normalized status and appends
// exactly one audit trail entry. Transitions that do not advance the state
// machine return a StatusRegressionError and change nothing; this single rule
// makes webhook ingestion and polling safe to run concurrently, whatever the
// courier's delivery guarantees are.
//
// Side effects of specific transitions:
//   - PickedUp records the actual pickup time
//   - Delivered records the actual delivery time
//   - Failed records the description as the failure reason
func (d *Delivery) ApplyStatus(
	next Status,
	description string,
	location string,
	at time.Time,
	source UpdateSource,
) (Update, error) {
	if err := d.Validate(); err != nil {
		return Update{}, err
	}
	if err := next.Validate(); err != nil {
		return Update{}, err
	}

	if !d.status.CanTransitionTo(next) {
		return Update{}, errs.NewStatusRegressionError(d.id.String(), d.status.String(), next.String())
	}

	update, err := d.appendUpdate(next, description, location, at, source)
	if err != nil {
		return Update{}, err
	}

	d.status = next
	effectiveAt := update.Timestamp()
	switch next {
	case PickedUp:
		d.actualPickupAt = &effectiveAt
	case Delivered:
		d.actualDeliveryAt = &effectiveAt
	case Failed:
		d.failureReason = description
	}

	return update, nil
}

// Cancel moves the delivery to Cancelled, recording why. Used for customer
// cancellations and as the first half of a reassignment; reason captures the
// courier's acknowledgement outcome so operators can see whether the physical
// shipment may still arrive.
func (d *Delivery) Cancel(reason string, at time.Time) (Update, error) {
	if err := d.Validate(); err != nil {
		return Update{}, err
	}
	if d.status.IsTerminal() {
		return Update{}, errs.NewValueIsInvalidErrorWithCause(
			"delivery",
			fmt.Errorf("cannot cancel delivery in terminal status %s", d.status),
		)
	}

	update, err := d.appendUpdate(Cancelled, reason, "", at, SourceSystem)
	if err != nil {
		return Update{}, err
	}

	d.status = Cancelled
	d.failureReason = reason
	return update, nil
}

// Supersede links a cancelled delivery to its replacement. The old record is
// kept forever; reassignment never deletes.
func (d *Delivery) Supersede(successorID kernel.UUID) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := successorID.Validate(); err != nil {
		return err
	}
	if d.status != Cancelled {
		return ErrDeliveryNotCancelled
	}

	d.supersededBy = &successorID
	return nil
}

// appendUpdate builds and stores one audit trail entry. Timestamps are
// clamped to the previous entry's time so the per-delivery sequence stays
// non-decreasing even when courier clocks disagree with ours.
func (d *Delivery) appendUpdate(
	status Status,
	description string,
	location string,
	at time.Time,
	source UpdateSource,
) (Update, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if n := len(d.updates); n > 0 {
		if last := d.updates[n-1].Timestamp(); at.Before(last) {
			at = last
		}
	}

	update, err := NewUpdate(kernel.NewUUID(), d.id, status, description, location, at, source)
	if err != nil {
		return Update{}, err
	}

	d.updates = append(d.updates, update)
	d.uncommitted = append(d.uncommitted, update)
	return update, nil
}

func (d *Delivery) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Delivery) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	d.orderID = orderID
	return nil
}

func (d *Delivery) setProviderID(providerID string) error {
	if providerID == "" {
		return errs.NewValueIsRequiredError("providerID")
	}
	d.providerID = providerID
	return nil
}

func (d *Delivery) setRequest(request Request) error {
	if err := request.Validate(); err != nil {
		return err
	}
	d.request = request
	return nil
}

func (d *Delivery) setFee(fee int64) error {
	if fee < 0 {
		return errs.NewValueIsInvalidErrorWithCause("fee", fmt.Errorf("%d is negative", fee))
	}
	d.fee = fee
	return nil
}
