// Package event publishes storefront domain events to Kafka. Events are an
// observability tap on the shopper's journey; publishing failures are logged
// by callers and never fail the shopper-facing action.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/puremall/storefront/internal/domain"
	pkgkafka "github.com/puremall/storefront/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicOrderCreated   = "storefront.order.created"
	TopicOrderPaid      = "storefront.order.paid"
	TopicOrderCancelled = "storefront.order.cancelled"
	TopicOrderDeleted   = "storefront.order.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// Source identifier for events originating from this service.
const SourceStorefront = "storefront-session"

// publisher is the slice of pkg/kafka.Producer the event producer needs.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID     string `json:"sessionId"`
	Action        string `json:"action"`
	LineCount     int    `json:"lineCount"`
	SelectedCount int    `json:"selectedCount"`
	TotalQuantity int    `json:"totalQuantity"`
	TotalAmount   int64  `json:"totalAmount"`
}

// OrderEventData is the payload shared by the order lifecycle events.
type OrderEventData struct {
	SessionID     string `json:"sessionId"`
	OrderNumber   string `json:"orderNumber"`
	Status        string `json:"status"`
	OrderAmount   int64  `json:"orderAmount"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	ItemCount     int    `json:"itemCount"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event with the cart's derived
// totals after a mutation. action names the mutation (add, update_quantity,
// select, remove, checkout).
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID, action string, lines domain.CartLines) error {
	data := CartUpdatedData{
		SessionID:     sessionID,
		Action:        action,
		LineCount:     len(lines),
		SelectedCount: lines.SelectedCount(),
		TotalQuantity: lines.TotalQuantity(),
		TotalAmount:   lines.TotalAmount(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, sessionID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", sessionID),
		slog.String("action", action),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	data := CartUpdatedData{SessionID: sessionID, Action: "clear"}

	event, err := pkgkafka.NewEvent(TopicCartCleared, sessionID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("session_id", sessionID),
	)

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, sessionID string, order *domain.Order) error {
	return p.publishOrderEvent(ctx, TopicOrderCreated, sessionID, order)
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, sessionID string, order *domain.Order) error {
	return p.publishOrderEvent(ctx, TopicOrderPaid, sessionID, order)
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, sessionID string, order *domain.Order) error {
	return p.publishOrderEvent(ctx, TopicOrderCancelled, sessionID, order)
}

// PublishOrderDeleted publishes an order.deleted event.
func (p *Producer) PublishOrderDeleted(ctx context.Context, sessionID string, order *domain.Order) error {
	return p.publishOrderEvent(ctx, TopicOrderDeleted, sessionID, order)
}

func (p *Producer) publishOrderEvent(ctx context.Context, topic, sessionID string, order *domain.Order) error {
	data := OrderEventData{
		SessionID:     sessionID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		OrderAmount:   order.OrderAmount,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     len(order.Items),
	}

	event, err := pkgkafka.NewEvent(topic, order.OrderNumber, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published order event",
		slog.String("topic", topic),
		slog.String("order_number", order.OrderNumber),
		slog.String("status", order.Status),
	)

	return nil
}
