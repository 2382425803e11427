package document

import (
	"context"
	"errors"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderLedger keeps each order under "order:{id}", a per-shopper
// "orders:{shopper}" index of ids in placement order and an
// "order_token:{token}" claim so one checkout token maps to one order.
// Appends are serialized within the process; the store itself offers no
// cross-key transaction.
type OrderLedger struct {
	mu    sync.Mutex
	store storage.Store
}

// NewOrderLedger creates a document-backed ledger.
func NewOrderLedger(store storage.Store) *OrderLedger {
	return &OrderLedger{store: store}
}

type orderIndex struct {
	IDs []string `json:"ids"`
}

type tokenClaim struct {
	OrderID string `json:"order_id"`
}

// Append writes the token claim, the order and then the shopper's index. A
// duplicate id fails with DuplicateOrderID and a token already claimed by
// another order with Conflict. Keys written before a failure are removed.
func (l *OrderLedger) Append(ctx context.Context, o *domain.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := l.Exists(ctx, o.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.DuplicateOrderID(o.ID)
	}

	idx, err := l.index(ctx, o.ShopperID)
	if err != nil {
		return err
	}

	var written []string
	rollback := func() {
		for _, key := range written {
			_ = l.store.Remove(context.WithoutCancel(ctx), key)
		}
	}

	if o.IdempotencyToken != "" {
		tokenKey := storage.OrderTokenPrefix + o.IdempotencyToken
		var claim tokenClaim
		err := load(ctx, l.store, tokenKey, &claim)
		switch {
		case err == nil:
			return apperrors.Conflict("an order was already placed for this checkout")
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}
		if err := save(ctx, l.store, tokenKey, tokenClaim{OrderID: o.ID}); err != nil {
			return err
		}
		written = append(written, tokenKey)
	}

	if err := save(ctx, l.store, storage.OrderKeyPrefix+o.ID, o); err != nil {
		rollback()
		return err
	}
	written = append(written, storage.OrderKeyPrefix+o.ID)

	idx.IDs = append(idx.IDs, o.ID)
	if err := save(ctx, l.store, storage.OrdersKeyPrefix+o.ShopperID, idx); err != nil {
		rollback()
		return err
	}
	return nil
}

// FindByID loads a single order.
func (l *OrderLedger) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := load(ctx, l.store, storage.OrderKeyPrefix+id, &o); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, err
	}
	return &o, nil
}

// Exists reports whether the order document is present.
func (l *OrderLedger) Exists(ctx context.Context, id string) (bool, error) {
	_, err := l.store.Get(ctx, storage.OrderKeyPrefix+id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return false, apperrors.Persistence("check order "+id, err)
}

// ListByShopper walks the index newest first.
func (l *OrderLedger) ListByShopper(ctx context.Context, shopperID string, page pagination.Params) ([]domain.Order, int, error) {
	idx, err := l.index(ctx, shopperID)
	if err != nil {
		return nil, 0, err
	}

	newestFirst := make([]string, len(idx.IDs))
	for i, id := range idx.IDs {
		newestFirst[len(idx.IDs)-1-i] = id
	}

	ids := pagination.Window(newestFirst, page)
	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := l.FindByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, len(idx.IDs), nil
}

func (l *OrderLedger) index(ctx context.Context, shopperID string) (*orderIndex, error) {
	var idx orderIndex
	if err := load(ctx, l.store, storage.OrdersKeyPrefix+shopperID, &idx); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &orderIndex{}, nil
		}
		return nil, err
	}
	return &idx, nil
}
