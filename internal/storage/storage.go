// Package storage holds the key/value document store that backs carts,
// checkout sessions, wishlists and the fallback order ledger.
package storage

import (
	"context"
)

// Store reads and writes opaque documents by key. Get returns an error
// wrapping apperrors.ErrNotFound when the key is absent. Writes are
// last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Document keys.
const (
	CartKeyPrefix     = "cart:"
	CheckoutKeyPrefix = "checkout_session:"
	WishlistKeyPrefix = "wishlist:"
	OrderKeyPrefix    = "order:"
	OrdersKeyPrefix   = "orders:"
	OrderTokenPrefix  = "order_token:"
)
