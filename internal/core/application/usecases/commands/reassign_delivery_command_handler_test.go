package commands_test

import (
	"errors"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReassignDeliveryCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "fargo_courier")
	require.NoError(t, err)

	current := confirmedDelivery(t, orderID, "g4s", "G4S-200")

	oldAdapter := &MockCourierProvider{id: "g4s"}
	oldAdapter.On("CancelDelivery", mock.Anything, "G4S-200").Return(true, nil).Once()

	newAdapter := &MockCourierProvider{id: "fargo_courier"}
	newAdapter.On("CreateDelivery", mock.Anything, mock.AnythingOfType("delivery.Request")).
		Return(ports.Acceptance{TrackingID: "FG-200"}, nil).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(newAdapter, nil).Once()
	registry.On("Resolve", "g4s").Return(oldAdapter, nil).Once()

	repo := new(MockDeliveryRepository)
	repo.On("FindActiveByOrder", mock.Anything, orderID).Return(current, nil).Once()
	repo.On("Add", mock.Anything, mock.AnythingOfType("*delivery.Delivery")).Return(nil).Once()
	repo.On("Update", mock.Anything, current).Return(nil).Once()

	uow := new(MockDeliveryUoW)
	uow.On("DeliveryRepository").Return(repo).Once()
	uow.On("Begin", mock.Anything).Return(nil).Once()
	uow.On("Commit", mock.Anything).Return(nil).Once()
	uow.On("Rollback", mock.Anything).Return(nil).Once()

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderDispatched", mock.Anything, orderID, mock.AnythingOfType("kernel.UUID")).
		Return(nil).Once()

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	successor, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, successor)

	assert.Equal(t, "fargo_courier", successor.ProviderID())
	assert.Equal(t, "FG-200", successor.TrackingID())
	assert.True(t, successor.IsActive())

	assert.Equal(t, delivery.Cancelled, current.Status())
	require.NotNil(t, current.SupersededBy())
	assert.True(t, current.SupersededBy().IsEqual(successor.ID()))
	assert.Contains(t, current.FailureReason(), "acknowledged cancellation")

	oldAdapter.AssertExpectations(t)
	newAdapter.AssertExpectations(t)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestReassignDeliveryCommandHandler_Handle_CancellationDeniedStillReassigns(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "fargo_courier")
	require.NoError(t, err)

	current := confirmedDelivery(t, orderID, "g4s", "G4S-201")

	oldAdapter := &MockCourierProvider{id: "g4s"}
	oldAdapter.On("CancelDelivery", mock.Anything, "G4S-201").Return(false, nil).Once()

	newAdapter := &MockCourierProvider{id: "fargo_courier"}
	newAdapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{TrackingID: "FG-201"}, nil).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(newAdapter, nil).Once()
	registry.On("Resolve", "g4s").Return(oldAdapter, nil).Once()

	repo := new(MockDeliveryRepository)
	repo.On("FindActiveByOrder", mock.Anything, orderID).Return(current, nil).Once()
	repo.On("Add", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Update", mock.Anything, current).Return(nil).Once()

	uow := new(MockDeliveryUoW)
	uow.On("DeliveryRepository").Return(repo).Once()
	uow.On("Begin", mock.Anything).Return(nil).Once()
	uow.On("Commit", mock.Anything).Return(nil).Once()
	uow.On("Rollback", mock.Anything).Return(nil).Once()

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderDispatched", mock.Anything, orderID, mock.Anything).Return(nil).Once()

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	successor, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, successor)

	assert.Equal(t, delivery.Cancelled, current.Status())
	assert.Contains(t, current.FailureReason(), "did not acknowledge cancellation")
}

func TestReassignDeliveryCommandHandler_Handle_UnknownNewProviderAborts(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "pigeon_post")
	require.NoError(t, err)

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "pigeon_post").
		Return(nil, errs.NewProviderNotSupportedError("pigeon_post")).Once()

	// The active delivery is never touched, never cancelled.
	factory := new(MockDeliveryUoWFactory)

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, new(MockOrderLifecycle), newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrProviderNotSupported)
	factory.AssertNotCalled(t, "Create")
}

func TestReassignDeliveryCommandHandler_Handle_NoActiveDelivery(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "fargo_courier")
	require.NoError(t, err)

	newAdapter := &MockCourierProvider{id: "fargo_courier"}
	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(newAdapter, nil).Once()

	repo := new(MockDeliveryRepository)
	repo.On("FindActiveByOrder", mock.Anything, orderID).
		Return(nil, errs.NewObjectNotFoundError("orderID", orderID.String())).Once()

	uow := new(MockDeliveryUoW)
	uow.On("DeliveryRepository").Return(repo).Once()
	uow.On("Begin", mock.Anything).Return(nil).Once()
	uow.On("Rollback", mock.Anything).Return(nil).Once()

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, new(MockOrderLifecycle), newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	newAdapter.AssertNotCalled(t, "CreateDelivery", mock.Anything, mock.Anything)
}

func TestReassignDeliveryCommandHandler_Handle_NewCourierRefuses(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "fargo_courier")
	require.NoError(t, err)

	current := confirmedDelivery(t, orderID, "g4s", "G4S-202")

	oldAdapter := &MockCourierProvider{id: "g4s"}
	oldAdapter.On("CancelDelivery", mock.Anything, "G4S-202").Return(true, nil).Once()

	newAdapter := &MockCourierProvider{id: "fargo_courier"}
	newAdapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{}, errs.NewCourierRejectedError("fargo_courier", "no riders available")).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(newAdapter, nil).Once()
	registry.On("Resolve", "g4s").Return(oldAdapter, nil).Once()

	repo := new(MockDeliveryRepository)
	repo.On("FindActiveByOrder", mock.Anything, orderID).Return(current, nil).Once()
	// The cancellation is still committed even though the new courier refused.
	repo.On("Update", mock.Anything, current).Return(nil).Once()

	uow := new(MockDeliveryUoW)
	uow.On("DeliveryRepository").Return(repo).Once()
	uow.On("Begin", mock.Anything).Return(nil).Once()
	uow.On("Commit", mock.Anything).Return(nil).Once()
	uow.On("Rollback", mock.Anything).Return(nil).Once()

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderAwaitingDispatch", mock.Anything, orderID, mock.AnythingOfType("string")).
		Return(nil).Once()

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrCourierRejected)

	assert.Equal(t, delivery.Cancelled, current.Status())
	assert.Nil(t, current.SupersededBy())
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestReassignDeliveryCommandHandler_Handle_OldCourierTransportError(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewReassignDeliveryCommand(orderID, "fargo_courier")
	require.NoError(t, err)

	current := confirmedDelivery(t, orderID, "g4s", "G4S-203")

	oldAdapter := &MockCourierProvider{id: "g4s"}
	oldAdapter.On("CancelDelivery", mock.Anything, "G4S-203").
		Return(false, errs.NewCourierTransportError("g4s", "cancelDelivery", errors.New("timeout"))).Once()

	newAdapter := &MockCourierProvider{id: "fargo_courier"}
	newAdapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{TrackingID: "FG-203"}, nil).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(newAdapter, nil).Once()
	registry.On("Resolve", "g4s").Return(oldAdapter, nil).Once()

	repo := new(MockDeliveryRepository)
	repo.On("FindActiveByOrder", mock.Anything, orderID).Return(current, nil).Once()
	repo.On("Add", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Update", mock.Anything, current).Return(nil).Once()

	uow := new(MockDeliveryUoW)
	uow.On("DeliveryRepository").Return(repo).Once()
	uow.On("Begin", mock.Anything).Return(nil).Once()
	uow.On("Commit", mock.Anything).Return(nil).Once()
	uow.On("Rollback", mock.Anything).Return(nil).Once()

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderDispatched", mock.Anything, orderID, mock.Anything).Return(nil).Once()

	h := commands.NewReassignDeliveryCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	successor, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, successor)

	assert.Equal(t, delivery.Cancelled, current.Status())
	assert.Contains(t, current.FailureReason(), "cancellation attempt failed")
}
