package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated     = pkgkafka.Topic("cart", "updated")
	TopicCartCleared     = pkgkafka.Topic("cart", "cleared")
	TopicDiscountApplied = pkgkafka.Topic("cart", "discount_applied")
	TopicCheckoutStarted = pkgkafka.Topic("checkout", "started")
	TopicOrderPlaced     = pkgkafka.Topic("order", "placed")
	TopicNotification    = pkgkafka.Topic("notification", "sent")
)

// Aggregate types.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeCheckout = "checkout"
	AggregateTypeOrder    = "order"
	AggregateTypeShopper  = "shopper"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// Publisher is the part of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	ShopperID string            `json:"shopper_id"`
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  string            `json:"subtotal"`
	Discount  string            `json:"discount_code,omitempty"`
}

// DiscountAppliedData is the payload for a cart.discount_applied event.
type DiscountAppliedData struct {
	ShopperID string `json:"shopper_id"`
	Code      string `json:"code"`
}

// CheckoutStartedData is the payload for a checkout.started event.
type CheckoutStartedData struct {
	ShopperID string `json:"shopper_id"`
	ItemCount int    `json:"item_count"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID           string `json:"order_id"`
	ShopperID         string `json:"shopper_id"`
	ShippingMethod    string `json:"shipping_method"`
	PaymentMethod     string `json:"payment_method"`
	ItemCount         int    `json:"item_count"`
	Total             string `json:"total"`
	Currency          string `json:"currency"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

// NotificationData is the payload for a notification.sent event.
type NotificationData struct {
	ShopperID string `json:"shopper_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Producer publishes storefront domain events. A Producer with a nil
// publisher drops every event, which is how events are disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	agg := pkgkafka.Aggregate{ID: aggregateID, Type: aggregateType}
	event, err := pkgkafka.NewEvent(topic, agg, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithShopperID(logger.ShopperIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		ShopperID: cart.ShopperID,
		Items:     cart.Items,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal().StringFixed(2),
	}
	if cart.Discount != nil {
		data.Discount = cart.Discount.Code
	}
	return p.publish(ctx, TopicCartUpdated, cart.ShopperID, AggregateTypeCart, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, shopperID string) error {
	return p.publish(ctx, TopicCartCleared, shopperID, AggregateTypeCart, map[string]string{"shopper_id": shopperID})
}

// PublishDiscountApplied publishes a cart.discount_applied event.
func (p *Producer) PublishDiscountApplied(ctx context.Context, shopperID, code string) error {
	return p.publish(ctx, TopicDiscountApplied, shopperID, AggregateTypeCart, DiscountAppliedData{ShopperID: shopperID, Code: code})
}

// PublishCheckoutStarted publishes a checkout.started event.
func (p *Producer) PublishCheckoutStarted(ctx context.Context, s *domain.CheckoutSession) error {
	var count int
	for _, item := range s.Items {
		count += item.Quantity
	}
	return p.publish(ctx, TopicCheckoutStarted, s.ShopperID, AggregateTypeCheckout, CheckoutStartedData{
		ShopperID: s.ShopperID,
		ItemCount: count,
		Total:     s.Entry.Total.StringFixed(2),
		Currency:  s.Entry.Currency,
	})
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPlaced, o.ID, AggregateTypeOrder, OrderPlacedData{
		OrderID:           o.ID,
		ShopperID:         o.ShopperID,
		ShippingMethod:    string(o.ShippingMethod),
		PaymentMethod:     string(o.PaymentMethod),
		ItemCount:         o.ItemCount(),
		Total:             o.Pricing.Total.StringFixed(2),
		Currency:          o.Pricing.Currency,
		EstimatedDelivery: o.EstimatedDelivery.Format("2006-01-02"),
	})
}

// PublishNotification publishes a notification.sent event.
func (p *Producer) PublishNotification(ctx context.Context, shopperID, kind, message string) error {
	return p.publish(ctx, TopicNotification, shopperID, AggregateTypeShopper, NotificationData{
		ShopperID: shopperID,
		Kind:      kind,
		Message:   message,
	})
}
