package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// IdempotencyHeader carries the checkout token on place-order requests.
const IdempotencyHeader = "Idempotency-Key"

// CheckoutHandler handles HTTP requests for checkout and order placement.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, orders: orders, logger: logger}
}

// ShippingMethodRequest selects the delivery speed.
type ShippingMethodRequest struct {
	Method string `json:"method" validate:"oneof=standard express"`
}

// PaymentMethodRequest selects how the order is paid.
type PaymentMethodRequest struct {
	Method string `json:"method" validate:"oneof=credit_card mada apple_pay cash"`
}

// TermsRequest records acceptance of the terms of sale.
type TermsRequest struct {
	Accepted bool `json:"accepted"`
}

// StepRequest names the step to move to.
type StepRequest struct {
	Step int `json:"step" validate:"gte=1,lte=4"`
}

// PlaceOrderRequest may carry the idempotency key in the body instead of the header.
type PlaceOrderRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// Start handles POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusCreated, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.Start(r.Context(), shopperID)
	})
}

// Get handles GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.Get(r.Context(), shopperID)
	})
}

// UpdateCustomer handles PUT /api/v1/checkout/customer. Incomplete details are
// stored; they are checked when the shopper leaves the step.
func (h *CheckoutHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.Customer
	if err := validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.UpdateCustomer(r.Context(), shopperID, req)
	})
}

// UpdateShippingAddress handles PUT /api/v1/checkout/shipping-address
func (h *CheckoutHandler) UpdateShippingAddress(w http.ResponseWriter, r *http.Request) {
	var req domain.ShippingAddress
	if err := validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.UpdateShippingAddress(r.Context(), shopperID, req)
	})
}

// SetShippingMethod handles PUT /api/v1/checkout/shipping-method
func (h *CheckoutHandler) SetShippingMethod(w http.ResponseWriter, r *http.Request) {
	var req ShippingMethodRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.SetShippingMethod(r.Context(), shopperID, domain.ShippingMethod(req.Method))
	})
}

// SetPaymentMethod handles PUT /api/v1/checkout/payment-method
func (h *CheckoutHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.SetPaymentMethod(r.Context(), shopperID, domain.PaymentMethod(req.Method))
	})
}

// SetCard handles PUT /api/v1/checkout/card
func (h *CheckoutHandler) SetCard(w http.ResponseWriter, r *http.Request) {
	var req domain.CardDetails
	if err := validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.SetCard(r.Context(), shopperID, req)
	})
}

// AcceptTerms handles PUT /api/v1/checkout/terms
func (h *CheckoutHandler) AcceptTerms(w http.ResponseWriter, r *http.Request) {
	var req TermsRequest
	if err := validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.AcceptTerms(r.Context(), shopperID, req.Accepted)
	})
}

// GoToStep handles POST /api/v1/checkout/step
func (h *CheckoutHandler) GoToStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, http.StatusOK, func(shopperID string) (*domain.CheckoutSession, error) {
		return h.checkout.GoToStep(r.Context(), shopperID, domain.Step(req.Step))
	})
}

// PlaceOrder handles POST /api/v1/checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	shopperID, err := middleware.MustShopperID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	token := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if token == "" && r.ContentLength > 0 {
		var req PlaceOrderRequest
		if err := validator.Decode(r, &req); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		token = strings.TrimSpace(req.IdempotencyKey)
	}

	order, err := h.orders.PlaceOrder(r.Context(), shopperID, token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, status int, fn func(shopperID string) (*domain.CheckoutSession, error)) {
	shopperID, err := middleware.MustShopperID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	session, err := fn(shopperID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, redactCard(session))
}

// redactCard hides the stored card number and CVV from responses.
func redactCard(s *domain.CheckoutSession) *domain.CheckoutSession {
	if s.Card == nil {
		return s
	}
	out := *s
	card := *s.Card
	if last4 := card.Last4(); last4 != "" {
		card.CardNumber = strings.Repeat("*", 12) + last4
	}
	if card.CVV != "" {
		card.CVV = "***"
	}
	out.Card = &card
	return &out
}
