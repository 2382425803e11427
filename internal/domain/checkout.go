package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Step is a checkout stage. Steps are ordered; forward moves are gated.
type Step int

const (
	StepPersonal Step = iota + 1
	StepShipping
	StepPayment
	StepReview
)

// Valid reports whether s is one of the four checkout steps.
func (s Step) Valid() bool {
	return s >= StepPersonal && s <= StepReview
}

func (s Step) String() string {
	switch s {
	case StepPersonal:
		return "personal"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// PaymentMethod is how the shopper intends to pay.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentMada       PaymentMethod = "mada"
	PaymentApplePay   PaymentMethod = "apple_pay"
	PaymentCash       PaymentMethod = "cash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentMada, PaymentApplePay, PaymentCash:
		return true
	}
	return false
}

// Customer holds the personal details collected on the first step.
type Customer struct {
	FirstName string `json:"first_name" validate:"notblank"`
	LastName  string `json:"last_name" validate:"notblank"`
	Email     string `json:"email" validate:"notblank,contact_email"`
	Phone     string `json:"phone" validate:"notblank"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ShippingAddress is the delivery destination. City is a key such as "riyadh".
type ShippingAddress struct {
	Address    string `json:"address" validate:"notblank"`
	City       string `json:"city" validate:"notblank"`
	District   string `json:"district" validate:"notblank"`
	PostalCode string `json:"postal_code,omitempty"`
}

// CardDetails is only collected for credit card payments.
type CardDetails struct {
	CardNumber     string `json:"card_number" validate:"notblank,card_number"`
	CardholderName string `json:"cardholder_name" validate:"notblank"`
	ExpiryDate     string `json:"expiry_date" validate:"notblank"`
	CVV            string `json:"cvv" validate:"notblank"`
}

// Last4 returns the final four digits of the normalized card number.
func (c CardDetails) Last4() string {
	n := validator.NormalizeCardNumber(c.CardNumber)
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}

// CheckoutSession is the in-progress checkout of one shopper. Items is a frozen
// copy of the cart taken at entry; Entry records the prices shown at that time
// and Pricing is kept current as the shipping method changes.
type CheckoutSession struct {
	ShopperID        string            `json:"shopper_id"`
	Step             Step              `json:"step"`
	Customer         Customer          `json:"customer"`
	ShippingAddress  ShippingAddress   `json:"shipping_address"`
	ShippingMethod   ShippingMethod    `json:"shipping_method"`
	PaymentMethod    PaymentMethod     `json:"payment_method"`
	Card             *CardDetails      `json:"card,omitempty"`
	TermsAccepted    bool              `json:"terms_accepted"`
	Items            []CartItem        `json:"items"`
	Discount         *AppliedDiscount  `json:"discount,omitempty"`
	Entry            PricingBreakdown  `json:"entry"`
	Pricing          PricingBreakdown  `json:"pricing"`
	Review           *ReviewProjection `json:"review,omitempty"`
	IdempotencyToken string            `json:"idempotency_token"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewCheckoutSession starts a checkout from the cart. It fails with an empty
// cart error when the cart has no lines.
func NewCheckoutSession(c *Cart, engine *PricingEngine, token string, now time.Time) (*CheckoutSession, error) {
	if c.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}
	s := &CheckoutSession{
		ShopperID:        c.ShopperID,
		Step:             StepPersonal,
		ShippingMethod:   ShippingStandard,
		PaymentMethod:    PaymentCreditCard,
		Items:            c.Snapshot(),
		IdempotencyToken: token,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c.Discount != nil {
		d := *c.Discount
		s.Discount = &d
	}
	s.Reprice(engine)
	s.Entry = s.Pricing
	return s, nil
}

// Reprice recomputes the live breakdown over the frozen items.
func (s *CheckoutSession) Reprice(engine *PricingEngine) {
	s.Pricing = engine.Compute(s.Items, s.Discount, s.ShippingMethod).Rounded()
}

// ValidateStep returns the field errors that block leaving step, in form order.
func (s *CheckoutSession) ValidateStep(step Step) []apperrors.FieldError {
	switch step {
	case StepPersonal:
		return fieldErrors(validator.Validate(s.Customer))
	case StepShipping:
		return fieldErrors(validator.Validate(s.ShippingAddress))
	case StepPayment:
		if !s.PaymentMethod.Valid() {
			return []apperrors.FieldError{{Field: "payment_method", Message: "must be one of: credit_card mada apple_pay cash"}}
		}
		if s.PaymentMethod != PaymentCreditCard {
			return nil
		}
		card := CardDetails{}
		if s.Card != nil {
			card = *s.Card
		}
		return fieldErrors(validator.Validate(card))
	case StepReview:
		var errs []apperrors.FieldError
		if len(s.Items) == 0 {
			errs = append(errs, apperrors.FieldError{Field: "items", Message: "the cart has no items"})
		}
		if !s.TermsAccepted {
			errs = append(errs, apperrors.FieldError{Field: "terms_accepted", Message: "terms must be accepted"})
		}
		return errs
	}
	return nil
}

func fieldErrors(err error) []apperrors.FieldError {
	if err == nil {
		return nil
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return valErr.FieldErrors()
	}
	return []apperrors.FieldError{{Field: "_", Message: err.Error()}}
}

// GoToStep moves the session to target. Moving forward requires every step
// from the current one up to (not including) target to validate; the first
// failing step's errors are returned and the session does not move. Moving
// backward is always allowed. Entering Review refreshes the review projection.
func (s *CheckoutSession) GoToStep(target Step, now time.Time) error {
	if !target.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown checkout step %d", int(target)))
	}
	if target > s.Step {
		for step := s.Step; step < target; step++ {
			if errs := s.ValidateStep(step); len(errs) > 0 {
				return apperrors.Validation(errs)
			}
		}
	}
	s.Step = target
	s.UpdatedAt = now
	if target == StepReview {
		review := BuildReview(s)
		s.Review = &review
	}
	return nil
}

// ReadyToPlace checks the placement preconditions: the session is on Review,
// and every step including Review validates.
func (s *CheckoutSession) ReadyToPlace() error {
	if len(s.Items) == 0 {
		return apperrors.EmptyCart()
	}
	if s.Step != StepReview {
		return apperrors.Conflict("checkout must be on the review step to place an order")
	}
	for step := StepPersonal; step <= StepReview; step++ {
		if errs := s.ValidateStep(step); len(errs) > 0 {
			return apperrors.Validation(errs)
		}
	}
	return nil
}
