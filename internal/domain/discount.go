package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DiscountKind distinguishes percentage codes from fixed-amount codes.
type DiscountKind string

const (
	DiscountPercentage  DiscountKind = "percentage"
	DiscountFixedAmount DiscountKind = "fixed_amount"
)

// DiscountCode is a catalog entry. Value is a percent in [0,100] for
// percentage codes and a currency amount for fixed codes.
type DiscountCode struct {
	Code    string          `json:"code"`
	Kind    DiscountKind    `json:"kind"`
	Value   decimal.Decimal `json:"value"`
	Message string          `json:"message"`
}

// AppliedDiscount is the discount currently attached to a cart.
type AppliedDiscount struct {
	Code  string          `json:"code"`
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Amount returns the discount for the given subtotal, clamped to the subtotal.
func (d *AppliedDiscount) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if d == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	case DiscountFixedAmount:
		amount = d.Value
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}

// DiscountCatalog resolves codes against a fixed table.
type DiscountCatalog struct {
	codes map[string]DiscountCode
}

// NewDiscountCatalog builds a catalog keyed by normalized code.
func NewDiscountCatalog(codes ...DiscountCode) *DiscountCatalog {
	m := make(map[string]DiscountCode, len(codes))
	for _, c := range codes {
		c.Code = NormalizeCode(c.Code)
		m[c.Code] = c
	}
	return &DiscountCatalog{codes: m}
}

// DefaultDiscountCatalog returns the storefront's built-in codes.
func DefaultDiscountCatalog() *DiscountCatalog {
	return NewDiscountCatalog(
		DiscountCode{Code: "WELCOME10", Kind: DiscountPercentage, Value: decimal.NewFromInt(10), Message: "10% off your order"},
		DiscountCode{Code: "FURNITURE15", Kind: DiscountPercentage, Value: decimal.NewFromInt(15), Message: "15% off your order"},
		DiscountCode{Code: "SAVE20", Kind: DiscountPercentage, Value: decimal.NewFromInt(20), Message: "20% off your order"},
		DiscountCode{Code: "FREESHIP", Kind: DiscountFixedAmount, Value: decimal.NewFromInt(50), Message: "shipping discount applied"},
	)
}

// NormalizeCode trims surrounding whitespace and upper-cases a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve looks up a code case-insensitively.
func (c *DiscountCatalog) Resolve(code string) (DiscountCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return DiscountCode{}, apperrors.Validation([]apperrors.FieldError{{Field: "code", Message: "is required"}})
	}
	dc, ok := c.codes[normalized]
	if !ok {
		return DiscountCode{}, apperrors.InvalidDiscountCode(normalized)
	}
	return dc, nil
}

// Apply attaches the discount to the cart. Only one discount may be applied at
// a time; a second code is refused until the first is removed.
func (c *Cart) Apply(dc DiscountCode) error {
	if c.Discount != nil {
		if c.Discount.Code == dc.Code {
			return nil
		}
		return apperrors.Conflict("discount " + c.Discount.Code + " is already applied; remove it first")
	}
	c.Discount = &AppliedDiscount{Code: dc.Code, Kind: dc.Kind, Value: dc.Value}
	return nil
}

// RemoveDiscount detaches the applied discount, if any.
func (c *Cart) RemoveDiscount() {
	c.Discount = nil
}
