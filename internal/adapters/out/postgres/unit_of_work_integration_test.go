package postgres_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/migrations"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UnitOfWorkIntegrationTestSuite exercises the GORM-based unit of work and
// delivery repository against a real PostgreSQL database.
type UnitOfWorkIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

// SetupSuite starts the PostgreSQL container and applies the embedded goose
// migrations, so the tests run against the production schema, including the
// partial unique index on active deliveries.
func (suite *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(migrations.Apply(sqlDB))

	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

// SetupTest truncates all tables to prevent test interference.
func (suite *UnitOfWorkIntegrationTestSuite) SetupTest() {
	err := suite.db.Exec("TRUNCATE TABLE delivery_updates, deliveries").Error
	suite.Require().NoError(err)
}

// TearDownSuite cleans up the PostgreSQL container.
func (suite *UnitOfWorkIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		err := suite.container.Terminate(context.Background())
		suite.Require().NoError(err)
	}
}

func (suite *UnitOfWorkIntegrationTestSuite) newDelivery(orderID kernel.UUID) *delivery.Delivery {
	pickup, err := kernel.NewAddress("14 Industrial Way", "Nairobi", "warehouse B")
	suite.Require().NoError(err)
	dropoff, err := kernel.NewAddress("88 Garden Estate Rd", "Nairobi", "")
	suite.Require().NoError(err)
	vendorPhone, err := kernel.NewPhone("+254712000001")
	suite.Require().NoError(err)
	customerPhone, err := kernel.NewPhone("+254712000002")
	suite.Require().NoError(err)

	request, err := delivery.NewRequest(
		pickup, dropoff, vendorPhone, customerPhone,
		"ceramic dinner set", "fragile", 2.4, 450000,
	)
	suite.Require().NoError(err)

	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID, "g4s", request, 35000, time.Now().UTC())
	suite.Require().NoError(err)
	return d
}

func (suite *UnitOfWorkIntegrationTestSuite) confirmedDelivery(
	orderID kernel.UUID, trackingID string,
) *delivery.Delivery {
	d := suite.newDelivery(orderID)
	_, err := d.ConfirmDispatch(trackingID, nil, nil, time.Now().UTC())
	suite.Require().NoError(err)
	return d
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWorkFactory_Create() {
	uow1 := suite.factory.Create()
	uow2 := suite.factory.Create()

	suite.NotSame(uow1, uow2, "Factory should create separate instances")
	suite.NotNil(uow1.DeliveryRepository())
	suite.NotNil(uow2.DeliveryRepository())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionLifecycle() {
	ctx := context.Background()
	uow := suite.factory.Create()

	err := uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.Begin(ctx)
	suite.Require().NoError(err, "Multiple begin calls should be safe")

	err = uow.Commit(ctx)
	suite.Require().NoError(err)

	err = uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.Rollback(ctx)
	suite.Require().NoError(err)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionErrors() {
	ctx := context.Background()
	uow := suite.factory.Create()

	err := uow.Commit(ctx)
	suite.Require().Error(err, "Should error when committing without active transaction")

	err = uow.Rollback(ctx)
	suite.Require().Error(err, "Should error when rolling back without active transaction")
}

func (suite *UnitOfWorkIntegrationTestSuite) TestAddAndGet_RoundTripsAggregateWithTrail() {
	ctx := context.Background()
	orderID := kernel.NewUUID()
	d := suite.confirmedDelivery(orderID, "G4S-500")

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, d))
	suite.Require().NoError(uow.Commit(ctx))

	suite.Empty(d.UncommittedUpdates(), "Add should mark the trail committed")

	restored, err := suite.factory.Create().DeliveryRepository().Get(ctx, d.ID())
	suite.Require().NoError(err)

	suite.True(restored.ID().IsEqual(d.ID()))
	suite.True(restored.OrderID().IsEqual(orderID))
	suite.Equal("g4s", restored.ProviderID())
	suite.Equal("G4S-500", restored.TrackingID())
	suite.Equal(delivery.Pending, restored.Status())
	suite.Equal(int64(35000), restored.Fee())
	suite.Equal("ceramic dinner set", restored.Request().Description())
	suite.Require().Len(restored.Updates(), 1)
	suite.Equal(delivery.SourceSystem, restored.Updates()[0].Source())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUpdate_AppendsOnlyNewTrailEntries() {
	ctx := context.Background()
	d := suite.confirmedDelivery(kernel.NewUUID(), "G4S-501")

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, d))
	suite.Require().NoError(uow.Commit(ctx))

	_, err := d.ApplyStatus(
		delivery.PickedUp, "package collected", "Nairobi depot",
		time.Now().UTC(), delivery.SourceCourier)
	suite.Require().NoError(err)

	uow = suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Update(ctx, d))
	suite.Require().NoError(uow.Commit(ctx))

	restored, err := suite.factory.Create().DeliveryRepository().Get(ctx, d.ID())
	suite.Require().NoError(err)

	suite.Equal(delivery.PickedUp, restored.Status())
	suite.NotNil(restored.ActualPickupAt())
	suite.Require().Len(restored.Updates(), 2)
	suite.Equal(delivery.Pending, restored.Updates()[0].Status())
	suite.Equal(delivery.PickedUp, restored.Updates()[1].Status())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUpdate_UnknownDelivery() {
	ctx := context.Background()
	d := suite.confirmedDelivery(kernel.NewUUID(), "G4S-502")

	err := suite.factory.Create().DeliveryRepository().Update(ctx, d)
	suite.Require().ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestRollback_DiscardsAggregateAndTrail() {
	ctx := context.Background()
	d := suite.confirmedDelivery(kernel.NewUUID(), "G4S-503")

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, d))

	_, err := uow.DeliveryRepository().Get(ctx, d.ID())
	suite.Require().NoError(err, "Aggregate should be visible inside the transaction")

	suite.Require().NoError(uow.Rollback(ctx))

	_, err = suite.factory.Create().DeliveryRepository().Get(ctx, d.ID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)

	var trailRows int64
	suite.Require().NoError(
		suite.db.Table("delivery_updates").Count(&trailRows).Error)
	suite.Zero(trailRows, "Rollback should discard audit trail rows too")
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFindActiveByOrder() {
	ctx := context.Background()
	orderID := kernel.NewUUID()
	active := suite.confirmedDelivery(orderID, "G4S-504")

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, active))
	suite.Require().NoError(uow.Commit(ctx))

	found, err := suite.factory.Create().DeliveryRepository().FindActiveByOrder(ctx, orderID)
	suite.Require().NoError(err)
	suite.True(found.ID().IsEqual(active.ID()))

	_, err = suite.factory.Create().DeliveryRepository().FindActiveByOrder(ctx, kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFindActiveByOrder_IgnoresTerminal() {
	ctx := context.Background()
	orderID := kernel.NewUUID()
	cancelled := suite.confirmedDelivery(orderID, "G4S-505")
	_, err := cancelled.Cancel("customer cancelled", time.Now().UTC())
	suite.Require().NoError(err)

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, cancelled))
	suite.Require().NoError(uow.Commit(ctx))

	_, err = suite.factory.Create().DeliveryRepository().FindActiveByOrder(ctx, orderID)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFindByTrackingID() {
	ctx := context.Background()
	d := suite.confirmedDelivery(kernel.NewUUID(), "G4S-506")

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, d))
	suite.Require().NoError(uow.Commit(ctx))

	found, err := suite.factory.Create().DeliveryRepository().FindByTrackingID(ctx, "G4S-506")
	suite.Require().NoError(err)
	suite.True(found.ID().IsEqual(d.ID()))

	_, err = suite.factory.Create().DeliveryRepository().FindByTrackingID(ctx, "GHOST")
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFindAllActive_OldestFirst() {
	ctx := context.Background()

	first := suite.confirmedDelivery(kernel.NewUUID(), "G4S-507")
	second := suite.confirmedDelivery(kernel.NewUUID(), "G4S-508")
	done := suite.confirmedDelivery(kernel.NewUUID(), "G4S-509")
	_, err := done.ApplyStatus(
		delivery.Delivered, "delivered", "", time.Now().UTC(), delivery.SourceCourier)
	suite.Require().NoError(err)

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	repo := uow.DeliveryRepository()
	suite.Require().NoError(repo.Add(ctx, first))
	suite.Require().NoError(repo.Add(ctx, second))
	suite.Require().NoError(repo.Add(ctx, done))
	suite.Require().NoError(uow.Commit(ctx))

	active, err := suite.factory.Create().DeliveryRepository().FindAllActive(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(active, 2)
	suite.True(active[0].ID().IsEqual(first.ID()))
	suite.True(active[1].ID().IsEqual(second.ID()))
}

func (suite *UnitOfWorkIntegrationTestSuite) TestSchema_RejectsSecondActiveDeliveryPerOrder() {
	ctx := context.Background()
	orderID := kernel.NewUUID()

	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(
		uow.DeliveryRepository().Add(ctx, suite.confirmedDelivery(orderID, "G4S-510")))
	suite.Require().NoError(uow.Commit(ctx))

	// The partial unique index backstops the orchestrator's own duplicate
	// check at the schema level.
	uow = suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	err := uow.DeliveryRepository().Add(ctx, suite.confirmedDelivery(orderID, "G4S-511"))
	suite.Require().Error(err)
	suite.Require().NoError(uow.Rollback(ctx))
}

func (suite *UnitOfWorkIntegrationTestSuite) TestSupersededChain_Persists() {
	ctx := context.Background()
	orderID := kernel.NewUUID()

	old := suite.confirmedDelivery(orderID, "G4S-512")
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.DeliveryRepository().Add(ctx, old))
	suite.Require().NoError(uow.Commit(ctx))

	_, err := old.Cancel("reassigned to fargo_courier", time.Now().UTC())
	suite.Require().NoError(err)

	successor := suite.confirmedDelivery(orderID, "FG-512")
	suite.Require().NoError(old.Supersede(successor.ID()))

	uow = suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	repo := uow.DeliveryRepository()
	suite.Require().NoError(repo.Add(ctx, successor))
	suite.Require().NoError(repo.Update(ctx, old))
	suite.Require().NoError(uow.Commit(ctx))

	restored, err := suite.factory.Create().DeliveryRepository().Get(ctx, old.ID())
	suite.Require().NoError(err)
	suite.Equal(delivery.Cancelled, restored.Status())
	suite.Require().NotNil(restored.SupersededBy())
	suite.True(restored.SupersededBy().IsEqual(successor.ID()))
}

func TestUnitOfWorkIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}
