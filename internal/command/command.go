// Package command maps shopper intents to service operations. Every mutating
// storefront action has an intent name, so any client can drive the cart,
// checkout and wishlist through a single entry point.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Intent names.
const (
	CartAddItem        = "cart.add_item"
	CartAddProduct     = "cart.add_product"
	CartSetQuantity    = "cart.set_quantity"
	CartIncrease       = "cart.increase"
	CartDecrease       = "cart.decrease"
	CartRemoveItem     = "cart.remove_item"
	CartClear          = "cart.clear"
	CartApplyDiscount  = "cart.apply_discount"
	CartRemoveDiscount = "cart.remove_discount"
	CartMoveToWishlist = "cart.move_to_wishlist"

	CheckoutStart             = "checkout.start"
	CheckoutUpdateCustomer    = "checkout.update_customer"
	CheckoutUpdateAddress     = "checkout.update_shipping_address"
	CheckoutSetShippingMethod = "checkout.set_shipping_method"
	CheckoutSetPaymentMethod  = "checkout.set_payment_method"
	CheckoutSetCard           = "checkout.set_card"
	CheckoutAcceptTerms       = "checkout.accept_terms"
	CheckoutGoToStep          = "checkout.go_to_step"
	CheckoutPlaceOrder        = "checkout.place_order"

	WishlistAdd    = "wishlist.add"
	WishlistRemove = "wishlist.remove"
)

// Command is one shopper action.
type Command struct {
	Intent  string          `json:"intent" validate:"notblank"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler executes the payload of one intent.
type Handler func(ctx context.Context, shopperID string, payload json.RawMessage) (any, error)

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher returns an empty dispatcher. Use Register or NewStorefront to
// populate it.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler), logger: logger}
}

// Register binds intent to h, replacing any previous handler.
func (d *Dispatcher) Register(intent string, h Handler) {
	d.handlers[intent] = h
}

// Intents lists the registered intents in lexical order.
func (d *Dispatcher) Intents() []string {
	out := make([]string, 0, len(d.handlers))
	for intent := range d.handlers {
		out = append(out, intent)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler registered for cmd.Intent.
func (d *Dispatcher) Dispatch(ctx context.Context, shopperID string, cmd Command) (any, error) {
	if shopperID == "" {
		return nil, apperrors.InvalidInput("shopper id is required")
	}
	h, ok := d.handlers[cmd.Intent]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown intent %q", cmd.Intent))
	}

	result, err := h(ctx, shopperID, cmd.Payload)
	if err != nil {
		logger.WithContext(ctx, d.logger).DebugContext(ctx, "command rejected",
			slog.String("intent", cmd.Intent),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return result, nil
}

// bind decodes and validates the payload before calling fn.
func bind[T any](fn func(ctx context.Context, shopperID string, p T) (any, error)) Handler {
	return func(ctx context.Context, shopperID string, payload json.RawMessage) (any, error) {
		var p T
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if err := validator.Validate(p); err != nil {
			var valErr *validator.ValidationError
			if errors.As(err, &valErr) {
				return nil, apperrors.Validation(valErr.FieldErrors())
			}
			return nil, apperrors.InvalidInput(err.Error())
		}
		return fn(ctx, shopperID, p)
	}
}

// bindPartial decodes without validating, for forms that may be saved
// incomplete and are checked later by the step validators.
func bindPartial[T any](fn func(ctx context.Context, shopperID string, p T) (any, error)) Handler {
	return func(ctx context.Context, shopperID string, payload json.RawMessage) (any, error) {
		var p T
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return fn(ctx, shopperID, p)
	}
}

func decode(payload json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("decode payload: %v", err))
	}
	return nil
}

// ProductPayload addresses a cart line or wishlist entry.
type ProductPayload struct {
	ProductID string `json:"product_id" validate:"notblank"`
}

// QuantityPayload sets the quantity of a line. Range checks happen in the cart
// so the error carries the product and bounds.
type QuantityPayload struct {
	ProductID string `json:"product_id" validate:"notblank"`
	Quantity  int    `json:"quantity"`
}

// DiscountPayload carries a discount code.
type DiscountPayload struct {
	Code string `json:"code" validate:"notblank"`
}

// ShippingMethodPayload selects the delivery speed.
type ShippingMethodPayload struct {
	Method string `json:"method" validate:"oneof=standard express"`
}

// PaymentMethodPayload selects how the order is paid.
type PaymentMethodPayload struct {
	Method string `json:"method" validate:"oneof=credit_card mada apple_pay cash"`
}

// TermsPayload records acceptance of the terms of sale.
type TermsPayload struct {
	Accepted bool `json:"accepted"`
}

// StepPayload names the checkout step to move to.
type StepPayload struct {
	Step int `json:"step" validate:"gte=1,lte=4"`
}

// PlaceOrderPayload carries the optional idempotency key.
type PlaceOrderPayload struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// WishlistItemPayload saves a product to the wishlist.
type WishlistItemPayload struct {
	ProductID string          `json:"product_id" validate:"notblank"`
	Name      string          `json:"name" validate:"notblank"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
}

// Services are the operations the storefront dispatcher drives.
type Services struct {
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Wishlist *service.WishlistService
}

// NewStorefront returns a dispatcher with every storefront intent registered.
func NewStorefront(svc Services, logger *slog.Logger) *Dispatcher {
	d := NewDispatcher(logger)
	registerCart(d, svc.Cart)
	registerCheckout(d, svc.Checkout, svc.Orders)
	registerWishlist(d, svc.Wishlist)
	return d
}

func registerCart(d *Dispatcher, cart *service.CartService) {
	d.Register(CartAddItem, bind(func(ctx context.Context, shopperID string, p service.AddItemInput) (any, error) {
		return cart.AddItem(ctx, shopperID, p)
	}))
	d.Register(CartAddProduct, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return cart.AddProduct(ctx, shopperID, p.ProductID)
	}))
	d.Register(CartSetQuantity, bind(func(ctx context.Context, shopperID string, p QuantityPayload) (any, error) {
		return cart.SetQuantity(ctx, shopperID, p.ProductID, p.Quantity)
	}))
	d.Register(CartIncrease, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return cart.IncreaseQuantity(ctx, shopperID, p.ProductID)
	}))
	d.Register(CartDecrease, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return cart.DecreaseQuantity(ctx, shopperID, p.ProductID)
	}))
	d.Register(CartRemoveItem, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return cart.RemoveItem(ctx, shopperID, p.ProductID)
	}))
	d.Register(CartClear, func(ctx context.Context, shopperID string, _ json.RawMessage) (any, error) {
		return cart.ClearCart(ctx, shopperID)
	})
	d.Register(CartApplyDiscount, bind(func(ctx context.Context, shopperID string, p DiscountPayload) (any, error) {
		return cart.ApplyDiscount(ctx, shopperID, p.Code)
	}))
	d.Register(CartRemoveDiscount, func(ctx context.Context, shopperID string, _ json.RawMessage) (any, error) {
		return cart.RemoveDiscount(ctx, shopperID)
	})
	d.Register(CartMoveToWishlist, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return cart.MoveToWishlist(ctx, shopperID, p.ProductID)
	}))
}

func registerCheckout(d *Dispatcher, checkout *service.CheckoutService, orders *service.OrderService) {
	d.Register(CheckoutStart, func(ctx context.Context, shopperID string, _ json.RawMessage) (any, error) {
		return checkout.Start(ctx, shopperID)
	})
	d.Register(CheckoutUpdateCustomer, bindPartial(func(ctx context.Context, shopperID string, p domain.Customer) (any, error) {
		return checkout.UpdateCustomer(ctx, shopperID, p)
	}))
	d.Register(CheckoutUpdateAddress, bindPartial(func(ctx context.Context, shopperID string, p domain.ShippingAddress) (any, error) {
		return checkout.UpdateShippingAddress(ctx, shopperID, p)
	}))
	d.Register(CheckoutSetShippingMethod, bind(func(ctx context.Context, shopperID string, p ShippingMethodPayload) (any, error) {
		return checkout.SetShippingMethod(ctx, shopperID, domain.ShippingMethod(p.Method))
	}))
	d.Register(CheckoutSetPaymentMethod, bind(func(ctx context.Context, shopperID string, p PaymentMethodPayload) (any, error) {
		return checkout.SetPaymentMethod(ctx, shopperID, domain.PaymentMethod(p.Method))
	}))
	d.Register(CheckoutSetCard, bindPartial(func(ctx context.Context, shopperID string, p domain.CardDetails) (any, error) {
		return checkout.SetCard(ctx, shopperID, p)
	}))
	d.Register(CheckoutAcceptTerms, bindPartial(func(ctx context.Context, shopperID string, p TermsPayload) (any, error) {
		return checkout.AcceptTerms(ctx, shopperID, p.Accepted)
	}))
	d.Register(CheckoutGoToStep, bind(func(ctx context.Context, shopperID string, p StepPayload) (any, error) {
		return checkout.GoToStep(ctx, shopperID, domain.Step(p.Step))
	}))
	d.Register(CheckoutPlaceOrder, bindPartial(func(ctx context.Context, shopperID string, p PlaceOrderPayload) (any, error) {
		return orders.PlaceOrder(ctx, shopperID, p.IdempotencyKey)
	}))
}

func registerWishlist(d *Dispatcher, wishlist *service.WishlistService) {
	d.Register(WishlistAdd, bind(func(ctx context.Context, shopperID string, p WishlistItemPayload) (any, error) {
		return wishlist.Add(ctx, shopperID, domain.WishlistItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			ImageURL:  p.ImageURL,
		})
	}))
	d.Register(WishlistRemove, bind(func(ctx context.Context, shopperID string, p ProductPayload) (any, error) {
		return wishlist.Remove(ctx, shopperID, p.ProductID)
	}))
}
