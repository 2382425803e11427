package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, event: e})
	return nil
}

func TestPublishOrderPlaced(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, slog.Default())
	o := &domain.Order{
		ID:                "01ORDER",
		ShopperID:         "shopper-1",
		ShippingMethod:    domain.ShippingExpress,
		PaymentMethod:     domain.PaymentCash,
		Items:             []domain.CartItem{{ProductID: "1", Quantity: 3}},
		Pricing:           domain.PricingBreakdown{Total: decimal.RequireFromString("2587.5"), Currency: "SAR"},
		EstimatedDelivery: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	ctx := logger.WithCorrelationID(context.Background(), "req-1")
	ctx = logger.WithShopperID(ctx, "shopper-1")
	require.NoError(t, p.PublishOrderPlaced(ctx, o))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "storefront.order.placed", pub.events[0].topic)
	assert.Equal(t, pkgkafka.Aggregate{ID: "01ORDER", Type: AggregateTypeOrder}, pub.events[0].event.Aggregate)
	assert.Equal(t, "req-1", pub.events[0].event.CorrelationID)
	assert.Equal(t, "shopper-1", pub.events[0].event.ShopperID)

	data, err := pkgkafka.Decode[OrderPlacedData](pub.events[0].event)
	require.NoError(t, err)
	assert.Equal(t, "2587.50", data.Total)
	assert.Equal(t, 3, data.ItemCount)
	assert.Equal(t, "2026-03-12", data.EstimatedDelivery)
}

func TestPublishCartUpdated(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, slog.Default())
	c := domain.NewCart("shopper-1")
	c.Items = append(c.Items, domain.CartItem{ProductID: "2", UnitPrice: decimal.NewFromInt(450), Quantity: 2})

	require.NoError(t, p.PublishCartUpdated(context.Background(), c))

	data, err := pkgkafka.Decode[CartUpdatedData](pub.events[0].event)
	require.NoError(t, err)
	assert.Equal(t, TopicCartUpdated, pub.events[0].topic)
	assert.Equal(t, "900.00", data.Subtotal)
	assert.Equal(t, 2, data.ItemCount)
}

func TestProducer_Disabled(t *testing.T) {
	p := NewProducer(nil, slog.Default())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishCartCleared(context.Background(), "shopper-1"))
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducer(&recordingPublisher{err: errors.New("broker down")}, slog.Default())

	err := p.PublishNotification(context.Background(), "shopper-1", "success", "added")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.notification.sent event")
}
