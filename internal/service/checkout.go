package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// CheckoutService drives the checkout session of each shopper through the
// personal, shipping, payment and review steps.
type CheckoutService struct {
	sessions repository.CheckoutRepository
	carts    repository.CartRepository
	engine   *domain.PricingEngine
	producer *event.Producer
	notifier notify.Sink
	locks    *ShopperLocks
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	sessions repository.CheckoutRepository,
	carts repository.CartRepository,
	engine *domain.PricingEngine,
	producer *event.Producer,
	notifier notify.Sink,
	locks *ShopperLocks,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		carts:    carts,
		engine:   engine,
		producer: producer,
		notifier: notifier,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// Start snapshots the cart into a fresh checkout session, replacing any
// session the shopper already had.
func (s *CheckoutService) Start(ctx context.Context, shopperID string) (*domain.CheckoutSession, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	unlock := s.locks.Lock(shopperID)
	defer unlock()

	cart, err := s.carts.Get(ctx, shopperID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		cart = domain.NewCart(shopperID)
	}

	session, err := domain.NewCheckoutSession(cart, s.engine, s.newToken(), s.now().UTC())
	if err != nil {
		s.notify(ctx, shopperID, notify.KindError, "your cart is empty")
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	s.log(ctx).InfoContext(ctx, "checkout started",
		slog.String("shopper_id", shopperID),
		slog.Int("lines", len(session.Items)),
		slog.String("total", session.Entry.Total.StringFixed(2)),
	)
	if err := s.producer.PublishCheckoutStarted(ctx, session); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish checkout started event", slog.String("error", err.Error()))
	}
	return session, nil
}

// Get returns the shopper's checkout session.
func (s *CheckoutService) Get(ctx context.Context, shopperID string) (*domain.CheckoutSession, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	return s.load(ctx, shopperID)
}

// UpdateCustomer replaces the personal details.
func (s *CheckoutService) UpdateCustomer(ctx context.Context, shopperID string, customer domain.Customer) (*domain.CheckoutSession, error) {
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.Customer = customer
		return nil
	})
}

// UpdateShippingAddress replaces the delivery address.
func (s *CheckoutService) UpdateShippingAddress(ctx context.Context, shopperID string, address domain.ShippingAddress) (*domain.CheckoutSession, error) {
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.ShippingAddress = address
		return nil
	})
}

// SetShippingMethod switches the delivery speed and reprices the session.
func (s *CheckoutService) SetShippingMethod(ctx context.Context, shopperID string, method domain.ShippingMethod) (*domain.CheckoutSession, error) {
	if !method.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown shipping method %q", method))
	}
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.ShippingMethod = method
		cs.Reprice(s.engine)
		return nil
	})
}

// SetPaymentMethod selects how the order is paid.
func (s *CheckoutService) SetPaymentMethod(ctx context.Context, shopperID string, method domain.PaymentMethod) (*domain.CheckoutSession, error) {
	if !method.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment method %q", method))
	}
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.PaymentMethod = method
		return nil
	})
}

// SetCard stores the card details with separators stripped from the number.
func (s *CheckoutService) SetCard(ctx context.Context, shopperID string, card domain.CardDetails) (*domain.CheckoutSession, error) {
	card.CardNumber = validator.NormalizeCardNumber(card.CardNumber)
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.Card = &card
		return nil
	})
}

// AcceptTerms records whether the shopper accepted the terms of sale.
func (s *CheckoutService) AcceptTerms(ctx context.Context, shopperID string, accepted bool) (*domain.CheckoutSession, error) {
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		cs.TermsAccepted = accepted
		return nil
	})
}

// GoToStep moves the session to target. Forward moves that fail validation
// leave the session where it was and return the field errors.
func (s *CheckoutService) GoToStep(ctx context.Context, shopperID string, target domain.Step) (*domain.CheckoutSession, error) {
	return s.mutate(ctx, shopperID, func(cs *domain.CheckoutSession) error {
		from := cs.Step
		if err := cs.GoToStep(target, s.now().UTC()); err != nil {
			if errors.Is(err, apperrors.ErrValidation) {
				stepRejections.WithLabelValues(firstFailingStep(cs, from, target).String()).Inc()
				s.notify(ctx, shopperID, notify.KindError, "please correct the highlighted fields")
			}
			return err
		}
		s.log(ctx).InfoContext(ctx, "checkout step changed",
			slog.String("shopper_id", shopperID),
			slog.String("from", from.String()),
			slog.String("to", target.String()),
		)
		return nil
	})
}

func firstFailingStep(cs *domain.CheckoutSession, from, target domain.Step) domain.Step {
	for step := from; step < target; step++ {
		if len(cs.ValidateStep(step)) > 0 {
			return step
		}
	}
	return from
}

// mutate applies fn to the stored session under the shopper lock. A session
// sitting on Review gets its projection rebuilt so it never shows stale data.
func (s *CheckoutService) mutate(ctx context.Context, shopperID string, fn func(*domain.CheckoutSession) error) (*domain.CheckoutSession, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	unlock := s.locks.Lock(shopperID)
	defer unlock()

	session, err := s.load(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now().UTC()
	if session.Step == domain.StepReview {
		review := domain.BuildReview(session)
		session.Review = &review
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}
	return session, nil
}

func (s *CheckoutService) load(ctx context.Context, shopperID string) (*domain.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, shopperID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("checkout session", shopperID)
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return session, nil
}

func (s *CheckoutService) notify(ctx context.Context, shopperID string, kind notify.Kind, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, shopperID, kind, message); err != nil {
		s.log(ctx).WarnContext(ctx, "notification not delivered", slog.String("error", err.Error()))
	}
}

func (s *CheckoutService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}
