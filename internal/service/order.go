package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/idempotency"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/submission"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/tracing"
)

// maxIDAttempts bounds the retries when a generated order id is already taken.
const maxIDAttempts = 5

// OrderDeps groups the collaborators of an OrderService.
type OrderDeps struct {
	Sessions    repository.CheckoutRepository
	Carts       repository.CartRepository
	Ledger      repository.OrderLedger
	Idempotency idempotency.Store
	Submitter   submission.Submitter
	Engine      *domain.PricingEngine
	IDs         IDGenerator
	Delivery    domain.DeliveryDays
	Producer    *event.Producer
	Notifier    notify.Sink
	Locks       *ShopperLocks
	Logger      *slog.Logger
}

// OrderService turns a reviewed checkout session into a confirmed order.
type OrderService struct {
	deps OrderDeps
	now  func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(deps OrderDeps) *OrderService {
	if deps.Submitter == nil {
		deps.Submitter = submission.Noop{}
	}
	if deps.IDs == nil {
		deps.IDs = NewULIDGenerator()
	}
	return &OrderService{deps: deps, now: time.Now}
}

// PlaceOrder places the order for the shopper's checkout session.
//
// The token identifies the session. When it is empty the session's own token
// is used. Repeating a successful placement with the same token returns the
// order already recorded. A second placement while one is in flight is
// refused. Any failure before the order reaches the ledger leaves the session
// untouched so the shopper can retry.
func (s *OrderService) PlaceOrder(ctx context.Context, shopperID, token string) (*domain.Order, error) {
	ctx, span := tracing.Tracer("storefront/service").Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("shopper.id", shopperID))

	order, err := s.placeOrder(ctx, shopperID, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		orderPlacementFailures.WithLabelValues(errorCode(err)).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, shopperID, token string) (*domain.Order, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	log := logger.WithContext(ctx, s.deps.Logger)

	if token != "" {
		if order, ok, err := s.replay(ctx, shopperID, token); err != nil || ok {
			return order, err
		}
	}

	session, err := s.loadSession(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = session.IdempotencyToken
	} else if token != session.IdempotencyToken {
		return nil, apperrors.Conflict("idempotency key does not belong to the current checkout")
	}

	locked, err := s.deps.Idempotency.TryLock(ctx, token)
	if err != nil {
		return nil, apperrors.Persistence("lock order placement", err)
	}
	if !locked {
		return nil, apperrors.Conflict("an order for this checkout is already being placed")
	}

	order, err := s.assemble(ctx, session)
	if err == nil {
		err = s.deps.Submitter.Submit(ctx, order)
	}
	if err == nil {
		err = s.deps.Ledger.Append(ctx, order)
	}
	if err != nil {
		if relErr := s.deps.Idempotency.Release(context.WithoutCancel(ctx), token); relErr != nil {
			log.ErrorContext(ctx, "failed to release placement lock", slog.String("error", relErr.Error()))
		}
		log.WarnContext(ctx, "order placement failed",
			slog.String("shopper_id", shopperID),
			slog.Bool("retryable", apperrors.IsRetryable(err)),
			slog.String("error", err.Error()),
		)
		s.notify(ctx, shopperID, notify.KindError, "your order could not be placed")
		return nil, err
	}

	// The order is durable from here on; the remaining steps are cleanup.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.deps.Idempotency.Remember(cleanupCtx, token, order.ID); err != nil {
		log.ErrorContext(ctx, "failed to record placement result",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	s.clearShopper(cleanupCtx, shopperID, log)

	ordersPlaced.WithLabelValues(string(order.ShippingMethod), string(order.PaymentMethod)).Inc()
	orderTotals.Observe(order.Pricing.Total.InexactFloat64())

	log.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("shopper_id", shopperID),
		slog.String("total", order.Pricing.Total.StringFixed(2)),
		slog.String("shipping_method", string(order.ShippingMethod)),
	)
	if err := s.deps.Producer.PublishOrderPlaced(cleanupCtx, order); err != nil {
		log.ErrorContext(ctx, "failed to publish order placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	s.notify(cleanupCtx, shopperID, notify.KindSuccess, fmt.Sprintf("order %s confirmed", order.ID))
	return order, nil
}

// replay returns the order previously placed with token, if any.
func (s *OrderService) replay(ctx context.Context, shopperID, token string) (*domain.Order, bool, error) {
	orderID, ok, err := s.deps.Idempotency.Recall(ctx, token)
	if err != nil {
		return nil, false, apperrors.Persistence("recall order placement", err)
	}
	if !ok {
		return nil, false, nil
	}
	order, err := s.deps.Ledger.FindByID(ctx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("find replayed order: %w", err)
	}
	if order.ShopperID != shopperID {
		return nil, false, apperrors.Conflict("idempotency key belongs to another shopper")
	}
	logger.WithContext(ctx, s.deps.Logger).InfoContext(ctx, "order placement replayed",
		slog.String("order_id", order.ID),
	)
	return order, true, nil
}

func (s *OrderService) loadSession(ctx context.Context, shopperID string) (*domain.CheckoutSession, error) {
	unlock := s.deps.Locks.Lock(shopperID)
	defer unlock()

	session, err := s.deps.Sessions.Get(ctx, shopperID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("checkout session", shopperID)
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return session, nil
}

// assemble reprices the session and builds the order under a fresh id.
func (s *OrderService) assemble(ctx context.Context, session *domain.CheckoutSession) (*domain.Order, error) {
	session.Reprice(s.deps.Engine)
	now := s.now().UTC()
	id, err := s.newOrderID(ctx, now)
	if err != nil {
		return nil, err
	}
	return domain.NewOrder(session, id, now, s.deps.Delivery)
}

func (s *OrderService) newOrderID(ctx context.Context, now time.Time) (string, error) {
	for range maxIDAttempts {
		id := s.deps.IDs.NewID(now)
		exists, err := s.deps.Ledger.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check order id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", apperrors.Internal(errors.New("could not allocate a unique order id"))
}

func (s *OrderService) clearShopper(ctx context.Context, shopperID string, log *slog.Logger) {
	unlock := s.deps.Locks.Lock(shopperID)
	defer unlock()

	if err := s.deps.Carts.Delete(ctx, shopperID); err != nil {
		log.ErrorContext(ctx, "failed to clear cart after order", slog.String("error", err.Error()))
	}
	if err := s.deps.Sessions.Delete(ctx, shopperID); err != nil {
		log.ErrorContext(ctx, "failed to delete checkout session after order", slog.String("error", err.Error()))
	}
}

// GetOrder returns one of the shopper's orders. Orders of other shoppers are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, shopperID, orderID string) (*domain.Order, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	order, err := s.deps.Ledger.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShopperID != shopperID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

// ListOrders returns one page of the shopper's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, shopperID string, page pagination.Params) (pagination.Result[domain.Order], error) {
	if shopperID == "" {
		return pagination.Result[domain.Order]{}, apperrors.InvalidInput("shopper id is required")
	}
	orders, total, err := s.deps.Ledger.ListByShopper(ctx, shopperID, page)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, page), nil
}

func (s *OrderService) notify(ctx context.Context, shopperID string, kind notify.Kind, message string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, shopperID, kind, message); err != nil {
		logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "notification not delivered", slog.String("error", err.Error()))
	}
}

func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
