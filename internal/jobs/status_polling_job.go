package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

const (
	// maxParallelPolls bounds concurrent courier API calls per cycle so a
	// large active set does not hammer the providers.
	maxParallelPolls = 8

	// pollRetries is how many times a transport failure is retried with
	// exponential backoff before the delivery waits for the next cycle.
	pollRetries = 2
)

// StatusPollingJob periodically asks every courier for the current status of
// each active delivery. Webhooks remain the primary status source; polling
// is the safety net for providers with unreliable or missing webhooks.
//
// Poll results go through the same ingestion path as webhooks, so the
// advancement-only rule applies: a poll that races a fresher webhook loses
// as a regression and changes nothing.
type StatusPollingJob struct {
	uowFactory    commands.DeliveryUoWFactory
	registry      ports.ProviderRegistry
	ingestHandler commands.IngestStatusCommandHandler
	schedule      string
	pollTimeout   time.Duration
	cron          *cron.Cron
	logger        *slog.Logger
}

// NewStatusPollingJob creates the polling job. schedule is a cron expression
// with a seconds field; pollTimeout bounds each courier API call.
func NewStatusPollingJob(
	uowFactory commands.DeliveryUoWFactory,
	registry ports.ProviderRegistry,
	ingestHandler commands.IngestStatusCommandHandler,
	schedule string,
	pollTimeout time.Duration,
	logger *slog.Logger,
) (*StatusPollingJob, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if registry == nil {
		return nil, errs.NewValueIsRequiredError("registry")
	}
	if schedule == "" {
		return nil, errs.NewValueIsRequiredError("schedule")
	}
	if pollTimeout <= 0 {
		return nil, errs.NewValueIsInvalidError("pollTimeout")
	}
	if logger == nil {
		return nil, errs.NewValueIsRequiredError("logger")
	}

	return &StatusPollingJob{
		uowFactory:    uowFactory,
		registry:      registry,
		ingestHandler: ingestHandler,
		schedule:      schedule,
		pollTimeout:   pollTimeout,
		// A slow cycle must not stack on top of itself.
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger.With("component", "status_polling_job"),
	}, nil
}

// Start schedules the polling job.
func (j *StatusPollingJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()
		if err := j.PollOnce(ctx); err != nil {
			j.logger.ErrorContext(ctx, "status poll cycle failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("status polling job started", "schedule", j.schedule)
	return nil
}

// Stop stops the polling job and waits for an in-flight cycle to finish.
func (j *StatusPollingJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("status polling job stopped")
}

// PollOnce runs a single polling cycle over all active deliveries. Failures
// of individual deliveries are logged and skipped; the returned error covers
// only the active-set lookup.
func (j *StatusPollingJob) PollOnce(ctx context.Context) error {
	// Reads happen outside any transaction; each poll result is committed
	// by the ingestion handler in its own unit of work.
	repo := j.uowFactory.Create().DeliveryRepository()

	active, err := repo.FindAllActive(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	j.logger.DebugContext(ctx, "polling couriers", "deliveries", len(active))

	group := errgroup.Group{}
	group.SetLimit(maxParallelPolls)

	for _, d := range active {
		group.Go(func() error {
			j.pollDelivery(ctx, d)
			return nil
		})
	}

	return group.Wait()
}

func (j *StatusPollingJob) pollDelivery(ctx context.Context, d *delivery.Delivery) {
	if d.TrackingID() == "" {
		// Not yet confirmed by the courier, nothing to poll.
		return
	}

	log := j.logger.With(
		"delivery_id", d.ID().String(),
		"provider_id", d.ProviderID(),
		"tracking_id", d.TrackingID(),
	)

	adapter, err := j.registry.Resolve(d.ProviderID())
	if err != nil {
		log.ErrorContext(ctx, "active delivery references unknown provider", "error", err)
		return
	}

	status, err := j.pollWithRetry(ctx, adapter, d.TrackingID())
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrObjectNotFound):
		log.WarnContext(ctx, "courier no longer recognizes tracking id")
		return
	default:
		log.WarnContext(ctx, "status poll failed, will retry next cycle", "error", err)
		return
	}

	cmd, err := commands.NewIngestStatusCommand(
		d.TrackingID(),
		d.ProviderID(),
		status.RawStatus,
		status.Description,
		status.Location,
		status.Timestamp,
		delivery.SourceSystem,
	)
	if err != nil {
		log.ErrorContext(ctx, "poll result does not form a valid status report", "error", err)
		return
	}

	if err := j.ingestHandler.Handle(ctx, cmd); err != nil {
		log.ErrorContext(ctx, "failed to ingest polled status", "error", err)
	}
}

// pollWithRetry retries transport failures with exponential backoff. All
// other errors are definitive for this cycle.
func (j *StatusPollingJob) pollWithRetry(
	ctx context.Context,
	adapter ports.CourierAPIProvider,
	trackingID string,
) (ports.CourierStatus, error) {
	var status ports.CourierStatus

	operation := func() error {
		pollCtx, cancel := context.WithTimeout(ctx, j.pollTimeout)
		defer cancel()

		current, err := adapter.GetDeliveryStatus(pollCtx, trackingID)
		if err != nil {
			if errors.Is(err, errs.ErrCourierTransport) {
				return err
			}
			return backoff.Permanent(err)
		}

		status = current
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pollRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return ports.CourierStatus{}, err
	}
	return status, nil
}
