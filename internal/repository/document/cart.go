package document

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
)

// CartRepository implements repository.CartRepository on a document store.
type CartRepository struct {
	store storage.Store
}

// NewCartRepository creates a cart repository.
func NewCartRepository(store storage.Store) *CartRepository {
	return &CartRepository{store: store}
}

// Get loads the cart document.
func (r *CartRepository) Get(ctx context.Context, shopperID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := load(ctx, r.store, storage.CartKeyPrefix+shopperID, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// Save writes the cart document.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return save(ctx, r.store, storage.CartKeyPrefix+cart.ShopperID, cart)
}

// Delete removes the cart document.
func (r *CartRepository) Delete(ctx context.Context, shopperID string) error {
	return remove(ctx, r.store, storage.CartKeyPrefix+shopperID)
}

// CheckoutRepository implements repository.CheckoutRepository on a document store.
type CheckoutRepository struct {
	store storage.Store
}

// NewCheckoutRepository creates a checkout session repository.
func NewCheckoutRepository(store storage.Store) *CheckoutRepository {
	return &CheckoutRepository{store: store}
}

// Get loads the checkout_session document.
func (r *CheckoutRepository) Get(ctx context.Context, shopperID string) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	if err := load(ctx, r.store, storage.CheckoutKeyPrefix+shopperID, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the checkout_session document.
func (r *CheckoutRepository) Save(ctx context.Context, s *domain.CheckoutSession) error {
	return save(ctx, r.store, storage.CheckoutKeyPrefix+s.ShopperID, s)
}

// Delete removes the checkout_session document.
func (r *CheckoutRepository) Delete(ctx context.Context, shopperID string) error {
	return remove(ctx, r.store, storage.CheckoutKeyPrefix+shopperID)
}

// WishlistRepository implements repository.WishlistRepository on a document store.
type WishlistRepository struct {
	store storage.Store
}

// NewWishlistRepository creates a wishlist repository.
func NewWishlistRepository(store storage.Store) *WishlistRepository {
	return &WishlistRepository{store: store}
}

// Get loads the wishlist document.
func (r *WishlistRepository) Get(ctx context.Context, shopperID string) (*domain.Wishlist, error) {
	var w domain.Wishlist
	if err := load(ctx, r.store, storage.WishlistKeyPrefix+shopperID, &w); err != nil {
		return nil, err
	}
	if w.Items == nil {
		w.Items = []domain.WishlistItem{}
	}
	return &w, nil
}

// Save writes the wishlist document.
func (r *WishlistRepository) Save(ctx context.Context, w *domain.Wishlist) error {
	return save(ctx, r.store, storage.WishlistKeyPrefix+w.ShopperID, w)
}
