// Package idempotency guards order placement so that one checkout token
// produces at most one order.
package idempotency

import (
	"context"
)

// Store records in-flight and completed placements keyed by idempotency token.
type Store interface {
	// TryLock marks token as in flight. It returns false when another
	// placement for the same token already holds the lock.
	TryLock(ctx context.Context, token string) (bool, error)

	// Release drops the in-flight mark after a failed placement.
	Release(ctx context.Context, token string) error

	// Remember records the order placed for token and releases the lock.
	Remember(ctx context.Context, token, orderID string) error

	// Recall returns the order id recorded for token, if any.
	Recall(ctx context.Context, token string) (string, bool, error)
}
