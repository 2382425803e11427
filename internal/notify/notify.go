// Package notify delivers shopper-facing messages about cart and checkout
// actions.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/utafrali/storefront/pkg/logger"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Sink receives notifications. Delivery is best effort.
type Sink interface {
	Notify(ctx context.Context, shopperID string, kind Kind, message string) error
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(l *slog.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Notify(ctx context.Context, shopperID string, kind Kind, message string) error {
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "notification",
		slog.String("shopper_id", shopperID),
		slog.String("kind", string(kind)),
		slog.String("message", message),
	)
	return nil
}

// EventPublisher publishes notifications as events.
type EventPublisher interface {
	PublishNotification(ctx context.Context, shopperID, kind, message string) error
}

// EventSink forwards notifications to the event stream.
type EventSink struct {
	publisher EventPublisher
}

// NewEventSink creates a sink backed by publisher.
func NewEventSink(publisher EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Notify(ctx context.Context, shopperID string, kind Kind, message string) error {
	return s.publisher.PublishNotification(ctx, shopperID, string(kind), message)
}

// FanOut delivers to every sink and joins their errors.
type FanOut []Sink

func (f FanOut) Notify(ctx context.Context, shopperID string, kind Kind, message string) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, shopperID, kind, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
