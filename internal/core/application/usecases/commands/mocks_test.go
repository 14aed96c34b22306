package commands_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/orderlock"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeliveryRepository struct{ mock.Mock }

func (m *MockDeliveryRepository) Add(ctx context.Context, aggregate *delivery.Delivery) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Update(ctx context.Context, aggregate *delivery.Delivery) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) FindActiveByOrder(
	ctx context.Context, orderID kernel.UUID,
) (*delivery.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) FindByTrackingID(
	ctx context.Context, trackingID string,
) (*delivery.Delivery, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) FindAllActive(ctx context.Context) ([]*delivery.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

type MockDeliveryUoW struct{ mock.Mock }

func (m *MockDeliveryUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDeliveryUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDeliveryUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDeliveryUoW) DeliveryRepository() ports.DeliveryRepository {
	args := m.Called()
	return args.Get(0).(ports.DeliveryRepository)
}

type MockDeliveryUoWFactory struct{ mock.Mock }

func (m *MockDeliveryUoWFactory) Create() commands.DeliveryUoW {
	args := m.Called()
	return args.Get(0).(commands.DeliveryUoW)
}

type MockCourierProvider struct {
	mock.Mock
	id string
}

func (m *MockCourierProvider) ProviderID() string { return m.id }

func (m *MockCourierProvider) CreateDelivery(
	ctx context.Context, request delivery.Request,
) (ports.Acceptance, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(ports.Acceptance), args.Error(1)
}

func (m *MockCourierProvider) GetDeliveryStatus(
	ctx context.Context, trackingID string,
) (ports.CourierStatus, error) {
	args := m.Called(ctx, trackingID)
	return args.Get(0).(ports.CourierStatus), args.Error(1)
}

func (m *MockCourierProvider) CancelDelivery(ctx context.Context, trackingID string) (bool, error) {
	args := m.Called(ctx, trackingID)
	return args.Bool(0), args.Error(1)
}

type MockProviderRegistry struct{ mock.Mock }

func (m *MockProviderRegistry) Resolve(providerID string) (ports.CourierAPIProvider, error) {
	args := m.Called(providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.CourierAPIProvider), args.Error(1)
}

func (m *MockProviderRegistry) IDs() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

type MockOrderLifecycle struct{ mock.Mock }

func (m *MockOrderLifecycle) MarkOrderDispatched(
	ctx context.Context, orderID kernel.UUID, deliveryID kernel.UUID,
) error {
	args := m.Called(ctx, orderID, deliveryID)
	return args.Error(0)
}

func (m *MockOrderLifecycle) MarkOrderDelivered(ctx context.Context, orderID kernel.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrderLifecycle) MarkOrderDeliveryFailed(
	ctx context.Context, orderID kernel.UUID, reason string,
) error {
	args := m.Called(ctx, orderID, reason)
	return args.Error(0)
}

func (m *MockOrderLifecycle) MarkOrderAwaitingDispatch(
	ctx context.Context, orderID kernel.UUID, reason string,
) error {
	args := m.Called(ctx, orderID, reason)
	return args.Error(0)
}

func testRequest(t *testing.T) delivery.Request {
	t.Helper()

	pickup, err := kernel.NewAddress("14 Industrial Way", "Nairobi", "warehouse B")
	require.NoError(t, err)
	dropoff, err := kernel.NewAddress("88 Garden Estate Rd", "Nairobi", "")
	require.NoError(t, err)
	vendorPhone, err := kernel.NewPhone("+254712000001")
	require.NoError(t, err)
	customerPhone, err := kernel.NewPhone("+254712000002")
	require.NoError(t, err)

	req, err := delivery.NewRequest(
		pickup, dropoff, vendorPhone, customerPhone,
		"ceramic dinner set", "fragile", 2.4, 450000,
	)
	require.NoError(t, err)
	return req
}

func confirmedDelivery(t *testing.T, orderID kernel.UUID, providerID, trackingID string) *delivery.Delivery {
	t.Helper()

	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID, providerID, testRequest(t), 35000, time.Now().UTC(),
	)
	require.NoError(t, err)
	_, err = d.ConfirmDispatch(trackingID, nil, nil, time.Now().UTC())
	require.NoError(t, err)
	return d
}

func newLocks() *orderlock.KeyedMutex {
	return orderlock.NewKeyedMutex()
}
