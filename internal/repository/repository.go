package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// CartRepository persists the cart document of each shopper.
type CartRepository interface {
	// Get returns the stored cart, or an error wrapping ErrNotFound.
	Get(ctx context.Context, shopperID string) (*domain.Cart, error)

	// Save overwrites the stored cart.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, shopperID string) error
}

// CheckoutRepository persists the in-progress checkout session of each shopper.
type CheckoutRepository interface {
	Get(ctx context.Context, shopperID string) (*domain.CheckoutSession, error)
	Save(ctx context.Context, session *domain.CheckoutSession) error
	Delete(ctx context.Context, shopperID string) error
}

// WishlistRepository persists saved products.
type WishlistRepository interface {
	Get(ctx context.Context, shopperID string) (*domain.Wishlist, error)
	Save(ctx context.Context, wishlist *domain.Wishlist) error
}

// OrderLedger is the append-only store of placed orders.
type OrderLedger interface {
	// Append records a new order. It fails with ErrDuplicateOrderID when the
	// id is already taken and never overwrites an existing order.
	Append(ctx context.Context, order *domain.Order) error

	// FindByID returns the order or an error wrapping ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// Exists reports whether an order with id has been recorded.
	Exists(ctx context.Context, id string) (bool, error)

	// ListByShopper returns one page of a shopper's orders, newest first,
	// together with the total number of orders.
	ListByShopper(ctx context.Context, shopperID string, page pagination.Params) ([]domain.Order, int, error)
}
