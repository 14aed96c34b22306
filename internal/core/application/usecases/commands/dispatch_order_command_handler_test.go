package commands_test

import (
	"errors"
	"io"
	"log/slog"
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchOrderCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewDispatchOrderCommand(orderID, "g4s", testRequest(t), 35000)
	require.NoError(t, err)

	adapter := &MockCourierProvider{id: "g4s"}
	adapter.On("CreateDelivery", mock.Anything, mock.AnythingOfType("delivery.Request")).
		Return(ports.Acceptance{TrackingID: "G4S-001"}, nil).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "g4s").Return(adapter, nil).Once()

	repo := new(MockDeliveryRepository)
	uow := new(MockDeliveryUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("DeliveryRepository").Return(repo).Once(),
		repo.On("FindActiveByOrder", mock.Anything, orderID).
			Return(nil, errs.NewObjectNotFoundError("orderID", orderID.String())).Once(),
		repo.On("Add", mock.Anything, mock.AnythingOfType("*delivery.Delivery")).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderDispatched", mock.Anything, orderID, mock.AnythingOfType("kernel.UUID")).
		Return(nil).Once()

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	created, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "G4S-001", created.TrackingID())
	assert.Equal(t, delivery.Pending, created.Status())
	assert.True(t, created.IsActive())

	adapter.AssertExpectations(t)
	registry.AssertExpectations(t)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestDispatchOrderCommandHandler_Handle_ValidationError(t *testing.T) {
	h := commands.NewDispatchOrderCommandHandler(
		new(MockDeliveryUoWFactory), new(MockProviderRegistry), new(MockOrderLifecycle),
		newLocks(), time.Second, discardLogger())

	_, err := h.Handle(t.Context(), commands.DispatchOrderCommand{})
	require.ErrorIs(t, err, commands.ErrDispatchOrderCommandIsNotConstructed)
}

func TestDispatchOrderCommandHandler_Handle_UnknownProvider(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewDispatchOrderCommand(kernel.NewUUID(), "pigeon_post", testRequest(t), 100)
	require.NoError(t, err)

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "pigeon_post").
		Return(nil, errs.NewProviderNotSupportedError("pigeon_post")).Once()

	// No unit of work is ever opened for an unknown provider.
	factory := new(MockDeliveryUoWFactory)

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, new(MockOrderLifecycle), newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrProviderNotSupported)
	registry.AssertExpectations(t)
	factory.AssertExpectations(t)
}

func TestDispatchOrderCommandHandler_Handle_DuplicateDispatch(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewDispatchOrderCommand(orderID, "g4s", testRequest(t), 35000)
	require.NoError(t, err)

	active := confirmedDelivery(t, orderID, "g4s", "G4S-OLD")

	adapter := &MockCourierProvider{id: "g4s"}

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "g4s").Return(adapter, nil).Once()

	repo := new(MockDeliveryRepository)
	uow := new(MockDeliveryUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("DeliveryRepository").Return(repo).Once(),
		repo.On("FindActiveByOrder", mock.Anything, orderID).Return(active, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, new(MockOrderLifecycle), newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrDuplicateDispatch)

	var dup *errs.DuplicateDispatchError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, orderID.String(), dup.OrderID)
	assert.Equal(t, active.ID().String(), dup.ActiveDeliveryID)

	// The courier never saw a second submission.
	adapter.AssertNotCalled(t, "CreateDelivery", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestDispatchOrderCommandHandler_Handle_CourierRejected(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewDispatchOrderCommand(orderID, "fargo_courier", testRequest(t), 20000)
	require.NoError(t, err)

	adapter := &MockCourierProvider{id: "fargo_courier"}
	adapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{}, errs.NewCourierRejectedError("fargo_courier", "weight over limit")).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "fargo_courier").Return(adapter, nil).Once()

	repo := new(MockDeliveryRepository)
	uow := new(MockDeliveryUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("DeliveryRepository").Return(repo).Once(),
		repo.On("FindActiveByOrder", mock.Anything, orderID).
			Return(nil, errs.NewObjectNotFoundError("orderID", orderID.String())).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderAwaitingDispatch", mock.Anything, orderID, mock.AnythingOfType("string")).
		Return(nil).Once()

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrCourierRejected)

	// No delivery record exists for a refused submission.
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestDispatchOrderCommandHandler_Handle_TransportErrorReturnsOrderToQueue(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewDispatchOrderCommand(orderID, "g4s", testRequest(t), 35000)
	require.NoError(t, err)

	adapter := &MockCourierProvider{id: "g4s"}
	adapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{},
			errs.NewCourierTransportError("g4s", "createDelivery", errors.New("connection refused"))).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "g4s").Return(adapter, nil).Once()

	repo := new(MockDeliveryRepository)
	uow := new(MockDeliveryUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("DeliveryRepository").Return(repo).Once(),
		repo.On("FindActiveByOrder", mock.Anything, orderID).
			Return(nil, errs.NewObjectNotFoundError("orderID", orderID.String())).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	orders := new(MockOrderLifecycle)
	orders.On("MarkOrderAwaitingDispatch", mock.Anything, orderID, mock.AnythingOfType("string")).
		Return(nil).Once()

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, orders, newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, errs.ErrCourierTransport)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
}

func TestDispatchOrderCommandHandler_Handle_CommitError(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewDispatchOrderCommand(orderID, "g4s", testRequest(t), 35000)
	require.NoError(t, err)

	adapter := &MockCourierProvider{id: "g4s"}
	adapter.On("CreateDelivery", mock.Anything, mock.Anything).
		Return(ports.Acceptance{TrackingID: "G4S-002"}, nil).Once()

	registry := new(MockProviderRegistry)
	registry.On("Resolve", "g4s").Return(adapter, nil).Once()

	repo := new(MockDeliveryRepository)
	uow := new(MockDeliveryUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("DeliveryRepository").Return(repo).Once(),
		repo.On("FindActiveByOrder", mock.Anything, orderID).
			Return(nil, errs.NewObjectNotFoundError("orderID", orderID.String())).Once(),
		repo.On("Add", mock.Anything, mock.Anything).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(errors.New("commit error")).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockDeliveryUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewDispatchOrderCommandHandler(
		factory, registry, new(MockOrderLifecycle), newLocks(), time.Second, discardLogger())

	_, err = h.Handle(ctx, cmd)
	require.Error(t, err)
	uow.AssertExpectations(t)
}
