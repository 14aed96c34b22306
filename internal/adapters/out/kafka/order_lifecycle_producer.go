// Package kafka publishes order lifecycle events to the order subsystem.
//
// The dispatch core never mutates order rows directly. Every coarse order
// transition (dispatched, delivered, failed, returned to the queue) is
// emitted as an event on a single topic, keyed by order id so that all
// events for one order land on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// Event names carried in the "event" field of every payload.
const (
	EventOrderDispatched       = "order.dispatched"
	EventOrderDelivered        = "order.delivered"
	EventOrderDeliveryFailed   = "order.delivery_failed"
	EventOrderAwaitingDispatch = "order.awaiting_dispatch"
)

// orderEvent is the wire payload for every lifecycle transition. Fields that
// do not apply to a given event are omitted.
type orderEvent struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

var _ ports.OrderLifecycle = (*OrderLifecycleProducer)(nil)

// OrderLifecycleProducer implements ports.OrderLifecycle on top of a Kafka
// sync producer. Publishing is synchronous: a nil return means the broker
// acknowledged the event.
type OrderLifecycleProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	clock    func() time.Time
}

// NewOrderLifecycleProducer creates the producer adapter. The caller owns
// the sarama producer and closes it on shutdown.
func NewOrderLifecycleProducer(
	producer sarama.SyncProducer,
	topic string,
	logger *slog.Logger,
) (*OrderLifecycleProducer, error) {
	if producer == nil {
		return nil, errs.NewValueIsRequiredError("producer")
	}
	if topic == "" {
		return nil, errs.NewValueIsRequiredError("topic")
	}
	if logger == nil {
		return nil, errs.NewValueIsRequiredError("logger")
	}

	return &OrderLifecycleProducer{
		producer: producer,
		topic:    topic,
		logger:   logger.With("component", "order-lifecycle-producer"),
		clock:    time.Now,
	}, nil
}

// NewSyncProducer connects to the brokers with the settings the adapter
// expects: acknowledged writes and a bounded publish timeout.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return producer, nil
}

// MarkOrderDispatched publishes that the order is now tracked by a courier
// under the given delivery.
func (p *OrderLifecycleProducer) MarkOrderDispatched(
	ctx context.Context, orderID kernel.UUID, deliveryID kernel.UUID,
) error {
	return p.publish(ctx, orderEvent{
		Event:      EventOrderDispatched,
		OrderID:    orderID.String(),
		DeliveryID: deliveryID.String(),
	})
}

// MarkOrderDelivered publishes that the order reached the customer.
func (p *OrderLifecycleProducer) MarkOrderDelivered(
	ctx context.Context, orderID kernel.UUID,
) error {
	return p.publish(ctx, orderEvent{
		Event:   EventOrderDelivered,
		OrderID: orderID.String(),
	})
}

// MarkOrderDeliveryFailed publishes a terminal delivery failure.
func (p *OrderLifecycleProducer) MarkOrderDeliveryFailed(
	ctx context.Context, orderID kernel.UUID, reason string,
) error {
	return p.publish(ctx, orderEvent{
		Event:   EventOrderDeliveryFailed,
		OrderID: orderID.String(),
		Reason:  reason,
	})
}

// MarkOrderAwaitingDispatch publishes that the order must be re-queued for
// dispatch.
func (p *OrderLifecycleProducer) MarkOrderAwaitingDispatch(
	ctx context.Context, orderID kernel.UUID, reason string,
) error {
	return p.publish(ctx, orderEvent{
		Event:   EventOrderAwaitingDispatch,
		OrderID: orderID.String(),
		Reason:  reason,
	})
}

func (p *OrderLifecycleProducer) publish(ctx context.Context, event orderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event.OccurredAt = p.clock().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Event, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s event for order %s: %w", event.Event, event.OrderID, err)
	}

	p.logger.Debug("published order lifecycle event",
		"event", event.Event,
		"order_id", event.OrderID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}
