package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ShippingMethod selects the delivery tier.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// Valid reports whether m is a known shipping method.
func (m ShippingMethod) Valid() bool {
	return m == ShippingStandard || m == ShippingExpress
}

// PricingRules holds the configurable inputs of the pricing engine.
type PricingRules struct {
	VATRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	ExpressShipping       decimal.Decimal
	Currency              string
}

// DefaultPricingRules returns 15% VAT, free standard shipping from 500 and a
// flat 50 otherwise, express always 50.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		VATRate:               decimal.RequireFromString("0.15"),
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShipping:          decimal.NewFromInt(50),
		ExpressShipping:       decimal.NewFromInt(50),
		Currency:              "SAR",
	}
}

// Validate checks that rates and amounts are in range.
func (r PricingRules) Validate() error {
	if r.VATRate.IsNegative() || r.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("vat rate %s must be within [0, 1]", r.VATRate)
	}
	if r.FreeShippingThreshold.IsNegative() || r.FlatShipping.IsNegative() || r.ExpressShipping.IsNegative() {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	return nil
}

// PricingBreakdown is the derived price summary of a cart.
// Total == Subtotal - DiscountAmount + ShippingCost + TaxAmount.
type PricingBreakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}

// PricingEngine computes breakdowns with exact decimal arithmetic.
type PricingEngine struct {
	rules PricingRules
}

// NewPricingEngine returns an engine using rules.
func NewPricingEngine(rules PricingRules) *PricingEngine {
	return &PricingEngine{rules: rules}
}

// Rules returns the engine's configuration.
func (e *PricingEngine) Rules() PricingRules {
	return e.rules
}

// Shipping returns the shipping cost. Express has a fixed price; standard is
// free once the pre-discount subtotal reaches the threshold.
func (e *PricingEngine) Shipping(subtotal decimal.Decimal, method ShippingMethod) decimal.Decimal {
	if method == ShippingExpress {
		return e.rules.ExpressShipping
	}
	if subtotal.GreaterThanOrEqual(e.rules.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.rules.FlatShipping
}

// Compute prices the items with the discount and shipping method. Components
// are unrounded; call Rounded before display or persistence.
func (e *PricingEngine) Compute(items []CartItem, discount *AppliedDiscount, method ShippingMethod) PricingBreakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	discountAmount := discount.Amount(subtotal)
	shipping := e.Shipping(subtotal, method)
	tax := subtotal.Sub(discountAmount).Mul(e.rules.VATRate)

	return PricingBreakdown{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		ShippingCost:   shipping,
		TaxAmount:      tax,
		Total:          subtotal.Sub(discountAmount).Add(shipping).Add(tax),
		Currency:       e.rules.Currency,
	}
}

// ComputeCart is Compute over a cart's lines and discount.
func (e *PricingEngine) ComputeCart(c *Cart, method ShippingMethod) PricingBreakdown {
	return e.Compute(c.Items, c.Discount, method)
}

// Rounded rounds every component to two decimal places and recomputes the
// total from the rounded parts so the identity holds exactly.
func (b PricingBreakdown) Rounded() PricingBreakdown {
	r := PricingBreakdown{
		Subtotal:       b.Subtotal.Round(2),
		DiscountAmount: b.DiscountAmount.Round(2),
		ShippingCost:   b.ShippingCost.Round(2),
		TaxAmount:      b.TaxAmount.Round(2),
		Currency:       b.Currency,
	}
	r.Total = r.Subtotal.Sub(r.DiscountAmount).Add(r.ShippingCost).Add(r.TaxAmount)
	return r
}
