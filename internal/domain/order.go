package domain

import (
	"time"
)

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

// OrderStatusConfirmed is the only status an order is created with.
const OrderStatusConfirmed OrderStatus = "confirmed"

// DeliveryDays is the number of days added to the placement date to estimate delivery.
type DeliveryDays struct {
	Standard int
	Express  int
}

// DefaultDeliveryDays returns five days for standard and two for express.
func DefaultDeliveryDays() DeliveryDays {
	return DeliveryDays{Standard: 5, Express: 2}
}

// For returns the delivery days of method.
func (d DeliveryDays) For(method ShippingMethod) int {
	if method == ShippingExpress {
		return d.Express
	}
	return d.Standard
}

// Order is an immutable record of a placed checkout.
type Order struct {
	ID                string           `json:"id"`
	ShopperID         string           `json:"shopper_id"`
	Status            OrderStatus      `json:"status"`
	Customer          Customer         `json:"customer"`
	ShippingAddress   ShippingAddress  `json:"shipping_address"`
	ShippingMethod    ShippingMethod   `json:"shipping_method"`
	PaymentMethod     PaymentMethod    `json:"payment_method"`
	CardLast4         string           `json:"card_last4,omitempty"`
	Items             []CartItem       `json:"items"`
	Discount          *AppliedDiscount `json:"discount,omitempty"`
	Pricing           PricingBreakdown `json:"pricing"`
	EstimatedDelivery time.Time        `json:"estimated_delivery"`
	IdempotencyToken  string           `json:"idempotency_token"`
	CreatedAt         time.Time        `json:"created_at"`
}

// NewOrder assembles an order from a session that is ready to place. The
// session's live pricing is used as-is, so callers reprice first.
func NewOrder(s *CheckoutSession, id string, now time.Time, days DeliveryDays) (*Order, error) {
	if err := s.ReadyToPlace(); err != nil {
		return nil, err
	}

	o := &Order{
		ID:                id,
		ShopperID:         s.ShopperID,
		Status:            OrderStatusConfirmed,
		Customer:          s.Customer,
		ShippingAddress:   s.ShippingAddress,
		ShippingMethod:    s.ShippingMethod,
		PaymentMethod:     s.PaymentMethod,
		Items:             make([]CartItem, len(s.Items)),
		Pricing:           s.Pricing.Rounded(),
		EstimatedDelivery: now.AddDate(0, 0, days.For(s.ShippingMethod)),
		IdempotencyToken:  s.IdempotencyToken,
		CreatedAt:         now,
	}
	copy(o.Items, s.Items)
	if s.Discount != nil {
		d := *s.Discount
		o.Discount = &d
	}
	if s.PaymentMethod == PaymentCreditCard && s.Card != nil {
		o.CardLast4 = s.Card.Last4()
	}
	return o, nil
}

// ItemCount returns the sum of line quantities.
func (o *Order) ItemCount() int {
	var n int
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
