// Package kafka consumes dispatch requests from the order subsystem.
//
// When an order becomes ready for shipment the order subsystem publishes a
// dispatch request. This adapter decodes the request, turns it into a
// dispatch command, and hands it to the application layer. Offsets are
// always committed: a malformed or rejected request is logged and skipped,
// failed submissions are re-queued through the order lifecycle events, so
// redelivering the same message would only repeat work.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// DispatchHandler processes a decoded dispatch command.
type DispatchHandler interface {
	Handle(ctx context.Context, command commands.DispatchOrderCommand) (*delivery.Delivery, error)
}

// dispatchRequest is the wire format of a dispatch request message.
type dispatchRequest struct {
	OrderID       string         `json:"order_id"`
	ProviderID    string         `json:"provider_id"`
	Fee           int64          `json:"fee"`
	Pickup        addressPayload `json:"pickup"`
	Dropoff       addressPayload `json:"dropoff"`
	VendorPhone   string         `json:"vendor_phone"`
	CustomerPhone string         `json:"customer_phone"`
	Description   string         `json:"description"`
	Instructions  string         `json:"instructions"`
	WeightKG      float64        `json:"weight_kg"`
	DeclaredValue int64          `json:"declared_value"`
}

type addressPayload struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Notes  string `json:"notes"`
}

// DispatchConsumer reads dispatch requests from a consumer group and feeds
// them into the dispatch command handler.
type DispatchConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler DispatchHandler
	logger  *slog.Logger
}

// NewDispatchConsumer creates the consumer adapter. The caller owns the
// consumer group and closes it on shutdown.
func NewDispatchConsumer(
	group sarama.ConsumerGroup,
	topic string,
	handler DispatchHandler,
	logger *slog.Logger,
) (*DispatchConsumer, error) {
	if group == nil {
		return nil, errs.NewValueIsRequiredError("group")
	}
	if topic == "" {
		return nil, errs.NewValueIsRequiredError("topic")
	}
	if handler == nil {
		return nil, errs.NewValueIsRequiredError("handler")
	}
	if logger == nil {
		return nil, errs.NewValueIsRequiredError("logger")
	}

	return &DispatchConsumer{
		group:   group,
		topic:   topic,
		handler: handler,
		logger:  logger.With("component", "dispatch-consumer"),
	}, nil
}

// NewConsumerGroup connects to the brokers as the given consumer group.
func NewConsumerGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka consumer group %s: %w", groupID, err)
	}
	return group, nil
}

// Run consumes until the context is cancelled. Kafka rebalances end each
// Consume call, so the loop re-enters until shutdown.
func (c *DispatchConsumer) Run(ctx context.Context) error {
	c.logger.Info("dispatch consumer started", "topic", c.topic)

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %s: %w", c.topic, err)
		}
		if ctx.Err() != nil {
			c.logger.Info("dispatch consumer stopped")
			return nil
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *DispatchConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *DispatchConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler. Every message is
// marked consumed regardless of outcome; see the package comment.
func (c *DispatchConsumer) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for msg := range claim.Messages() {
		c.ProcessMessage(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

// ProcessMessage decodes one dispatch request and runs it through the
// command handler. Failures are logged, never returned: the caller commits
// the offset either way.
func (c *DispatchConsumer) ProcessMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var request dispatchRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		c.logger.Error("skipping malformed dispatch request",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		return
	}

	command, err := toCommand(request)
	if err != nil {
		c.logger.Error("skipping invalid dispatch request",
			"error", err, "order_id", request.OrderID)
		return
	}

	created, err := c.handler.Handle(ctx, command)
	switch {
	case err == nil:
		c.logger.Info("order dispatched from queue",
			"order_id", request.OrderID,
			"delivery_id", created.ID().String(),
			"provider_id", request.ProviderID,
		)
	case errors.Is(err, errs.ErrDuplicateDispatch):
		// Redelivered message or a racing manual dispatch. The order
		// already has an active delivery, nothing to do.
		c.logger.Info("dispatch request already satisfied", "order_id", request.OrderID)
	default:
		// The handler has already returned the order to the dispatch
		// queue where that applies.
		c.logger.Error("dispatch request failed",
			"error", err, "order_id", request.OrderID, "provider_id", request.ProviderID)
	}
}

func toCommand(request dispatchRequest) (commands.DispatchOrderCommand, error) {
	orderID, err := kernel.UUIDFromString(request.OrderID)
	if err != nil {
		return commands.DispatchOrderCommand{}, fmt.Errorf("order_id: %w", err)
	}

	pickup, err := kernel.NewAddress(request.Pickup.Street, request.Pickup.City, request.Pickup.Notes)
	if err != nil {
		return commands.DispatchOrderCommand{}, fmt.Errorf("pickup: %w", err)
	}

	dropoff, err := kernel.NewAddress(request.Dropoff.Street, request.Dropoff.City, request.Dropoff.Notes)
	if err != nil {
		return commands.DispatchOrderCommand{}, fmt.Errorf("dropoff: %w", err)
	}

	vendorPhone, err := kernel.NewPhone(request.VendorPhone)
	if err != nil {
		return commands.DispatchOrderCommand{}, fmt.Errorf("vendor_phone: %w", err)
	}

	customerPhone, err := kernel.NewPhone(request.CustomerPhone)
	if err != nil {
		return commands.DispatchOrderCommand{}, fmt.Errorf("customer_phone: %w", err)
	}

	deliveryRequest, err := delivery.NewRequest(
		pickup,
		dropoff,
		vendorPhone,
		customerPhone,
		request.Description,
		request.Instructions,
		request.WeightKG,
		request.DeclaredValue,
	)
	if err != nil {
		return commands.DispatchOrderCommand{}, err
	}

	return commands.NewDispatchOrderCommand(orderID, request.ProviderID, deliveryRequest, request.Fee)
}
