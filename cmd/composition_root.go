package cmd

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"gorm.io/gorm"

	inhttp "dispatch/internal/adapters/in/http"
	inkafka "dispatch/internal/adapters/in/kafka"
	"dispatch/internal/adapters/out/couriers"
	outkafka "dispatch/internal/adapters/out/kafka"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/orderlock"
)

// CompositionRoot wires adapters to use cases. Shared collaborators (the
// provider registry, the per-order lock table, the lifecycle producer) are
// built once; handlers are built per call site.
type CompositionRoot struct {
	config     Config
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory
	registry   *couriers.Registry
	normalizer services.StatusNormalizer
	orders     ports.OrderLifecycle
	locks      *orderlock.KeyedMutex
	logger     *slog.Logger
}

// NewCompositionRoot builds the shared collaborators. The caller owns the
// database handle and the Kafka producer.
func NewCompositionRoot(
	config Config,
	gormDB *gorm.DB,
	producer sarama.SyncProducer,
	logger *slog.Logger,
) (*CompositionRoot, error) {
	g4s, err := couriers.NewG4SClient(config.G4SBaseURL, config.G4SAPIToken, config.CourierTimeout)
	if err != nil {
		return nil, fmt.Errorf("build g4s client: %w", err)
	}

	fargo, err := couriers.NewFargoClient(
		config.FargoBaseURL, config.FargoAPIKey, config.CourierTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("build fargo client: %w", err)
	}

	registry, err := couriers.NewRegistry(g4s, fargo)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	normalizer, err := services.NewStatusNormalizer(services.DefaultStatusTables())
	if err != nil {
		return nil, fmt.Errorf("build status normalizer: %w", err)
	}

	orders, err := outkafka.NewOrderLifecycleProducer(
		producer, config.KafkaOrderEventsTopic, logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build order lifecycle producer: %w", err)
	}

	return &CompositionRoot{
		config:     config,
		gormDB:     gormDB,
		uowFactory: *postgres.NewGormUnitOfWorkFactory(gormDB),
		registry:   registry,
		normalizer: normalizer,
		orders:     orders,
		locks:      orderlock.NewKeyedMutex(),
		logger:     logger,
	}, nil
}

func (c *CompositionRoot) deliveryUoWFactory() commands.DeliveryUoWFactory {
	return FuncDeliveryUoWFactory(func() commands.DeliveryUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateDispatchOrderCommandHandler() commands.DispatchOrderCommandHandler {
	return commands.NewDispatchOrderCommandHandler(
		c.deliveryUoWFactory(),
		c.registry,
		c.orders,
		c.locks,
		c.config.CourierTimeout,
		c.logger,
	)
}

func (c *CompositionRoot) CreateIngestStatusCommandHandler() commands.IngestStatusCommandHandler {
	return commands.NewIngestStatusCommandHandler(
		c.deliveryUoWFactory(),
		c.normalizer,
		c.orders,
		c.locks,
		c.logger,
	)
}

func (c *CompositionRoot) CreateReassignDeliveryCommandHandler() commands.ReassignDeliveryCommandHandler {
	return commands.NewReassignDeliveryCommandHandler(
		c.deliveryUoWFactory(),
		c.registry,
		c.orders,
		c.locks,
		c.config.CourierTimeout,
		c.logger,
	)
}

func (c *CompositionRoot) CreateCancelDeliveryCommandHandler() commands.CancelDeliveryCommandHandler {
	return commands.NewCancelDeliveryCommandHandler(
		c.deliveryUoWFactory(),
		c.registry,
		c.locks,
		c.config.CourierTimeout,
		c.logger,
	)
}

func (c *CompositionRoot) CreateGetActiveDeliveriesQueryHandler() queries.GetActiveDeliveriesQueryHandler {
	return queries.NewGetActiveDeliveriesQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetDeliveryUpdatesQueryHandler() queries.GetDeliveryUpdatesQueryHandler {
	return queries.NewGetDeliveryUpdatesQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateHTTPServer() *inhttp.Server {
	return inhttp.NewServer(
		c.CreateIngestStatusCommandHandler(),
		c.CreateReassignDeliveryCommandHandler(),
		c.CreateCancelDeliveryCommandHandler(),
		c.CreateGetActiveDeliveriesQueryHandler(),
		c.CreateGetDeliveryUpdatesQueryHandler(),
	)
}

func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	pollingJob, err := jobs.NewStatusPollingJob(
		c.deliveryUoWFactory(),
		c.registry,
		c.CreateIngestStatusCommandHandler(),
		c.config.StatusPollSchedule,
		c.config.CourierTimeout,
		c.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build status polling job: %w", err)
	}

	return jobs.NewJobManager(pollingJob)
}

func (c *CompositionRoot) CreateDispatchConsumer(
	group sarama.ConsumerGroup,
) (*inkafka.DispatchConsumer, error) {
	handler := c.CreateDispatchOrderCommandHandler()
	return inkafka.NewDispatchConsumer(
		group, c.config.KafkaDispatchRequestsTopic, handler, c.logger,
	)
}

type FuncDeliveryUoWFactory func() commands.DeliveryUoW

func (f FuncDeliveryUoWFactory) Create() commands.DeliveryUoW {
	return f()
}
