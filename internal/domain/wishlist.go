package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WishlistItem is a saved product.
type WishlistItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Wishlist is a shopper's saved products in the order they were added.
type Wishlist struct {
	ShopperID string         `json:"shopper_id"`
	Items     []WishlistItem `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewWishlist returns an empty wishlist.
func NewWishlist(shopperID string) *Wishlist {
	return &Wishlist{ShopperID: shopperID, Items: []WishlistItem{}}
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID string) bool {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// Add saves item unless it is already present. It reports whether the wishlist changed.
func (w *Wishlist) Add(item WishlistItem) bool {
	if w.Contains(item.ProductID) {
		return false
	}
	w.Items = append(w.Items, item)
	return true
}

// Remove drops productID. It reports whether the wishlist changed.
func (w *Wishlist) Remove(productID string) bool {
	for i, item := range w.Items {
		if item.ProductID == productID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return true
		}
	}
	return false
}

// WishlistItemFromCart copies the fields a wishlist keeps from a cart line.
func WishlistItemFromCart(item CartItem) WishlistItem {
	return WishlistItem{
		ProductID: item.ProductID,
		Name:      item.Name,
		Price:     item.UnitPrice,
		ImageURL:  item.ImageURL,
	}
}
