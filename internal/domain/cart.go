package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Quantity bounds for a single cart line.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// DefaultMaxLines caps the number of distinct products in one cart.
const DefaultMaxLines = 50

// CartItem is one line of a cart. A cart holds at most one line per product.
type CartItem struct {
	ProductID         string           `json:"product_id"`
	Name              string           `json:"name"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price,omitempty"`
	Quantity          int              `json:"quantity"`
	ImageURL          string           `json:"image_url,omitempty"`
}

// LineTotal is unitPrice × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a shopper's set of line items in insertion order plus the applied discount.
type Cart struct {
	ShopperID string           `json:"shopper_id"`
	Items     []CartItem       `json:"items"`
	Discount  *AppliedDiscount `json:"discount,omitempty"`
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewCart returns an empty cart for the shopper.
func NewCart(shopperID string) *Cart {
	return &Cart{ShopperID: shopperID, Items: []CartItem{}}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the sum of line quantities.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns Σ unitPrice × quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// FindItemIndex returns the index of the line for productID, or -1.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem merges item into the existing line for the same product or appends
// it. item.Quantity is the increment and must be within [MinQuantity,
// MaxQuantity]; a merged quantity is capped at MaxQuantity. The cart is left
// unchanged when an error is returned.
func (c *Cart) AddItem(item CartItem, maxLines int) error {
	if item.ProductID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
		return apperrors.QuantityOutOfRange(item.ProductID, item.Quantity, MinQuantity, MaxQuantity)
	}
	if item.UnitPrice.IsNegative() {
		return apperrors.InvalidInput("unit price must not be negative")
	}

	if idx := c.FindItemIndex(item.ProductID); idx >= 0 {
		merged := c.Items[idx].Quantity + item.Quantity
		if merged > MaxQuantity {
			merged = MaxQuantity
		}
		c.Items[idx].Quantity = merged
		return nil
	}

	if maxLines > 0 && len(c.Items) >= maxLines {
		return apperrors.Conflict("cart line limit reached")
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity replaces the quantity of an existing line. Values outside
// [MinQuantity, MaxQuantity] are rejected so the caller can redisplay the last
// valid value.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return apperrors.NotFound("cart item", productID)
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return apperrors.QuantityOutOfRange(productID, quantity, MinQuantity, MaxQuantity)
	}
	c.Items[idx].Quantity = quantity
	return nil
}

// Increase adds one to a line, stopping at MaxQuantity.
func (c *Cart) Increase(productID string) error {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return apperrors.NotFound("cart item", productID)
	}
	if c.Items[idx].Quantity < MaxQuantity {
		c.Items[idx].Quantity++
	}
	return nil
}

// Decrease removes one from a line, stopping at MinQuantity.
func (c *Cart) Decrease(productID string) error {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return apperrors.NotFound("cart item", productID)
	}
	if c.Items[idx].Quantity > MinQuantity {
		c.Items[idx].Quantity--
	}
	return nil
}

// RemoveItem deletes the line for productID and returns it. Removing an absent
// product is a no-op that returns false.
func (c *Cart) RemoveItem(productID string) (CartItem, bool) {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	removed := c.Items[idx]
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return removed, true
}

// Clear empties the cart and drops the discount.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Discount = nil
}

// Snapshot returns a deep copy of the lines, detached from later cart mutations.
func (c *Cart) Snapshot() []CartItem {
	out := make([]CartItem, len(c.Items))
	copy(out, c.Items)
	for i := range out {
		if p := out[i].OriginalUnitPrice; p != nil {
			v := *p
			out[i].OriginalUnitPrice = &v
		}
	}
	return out
}
