package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }
func (s failingStore) Set(context.Context, string, []byte) error   { return s.err }
func (s failingStore) Remove(context.Context, string) error        { return s.err }

func sampleCart() *domain.Cart {
	c := domain.NewCart("shopper-1")
	c.Items = append(c.Items, domain.CartItem{
		ProductID: "sofa-1",
		Name:      "Linen Sofa",
		UnitPrice: decimal.RequireFromString("1250.50"),
		Quantity:  2,
	})
	c.Discount = &domain.AppliedDiscount{Code: "WELCOME10", Kind: domain.DiscountPercentage, Value: decimal.NewFromInt(10)}
	return c
}

func sampleOrder(id, shopperID string, at time.Time) *domain.Order {
	return &domain.Order{
		ID:        id,
		ShopperID: shopperID,
		Status:    domain.OrderStatusConfirmed,
		Items:     sampleCart().Items,
		CreatedAt: at,
	}
}

// ---------------------------------------------------------------------------
// Cart / checkout / wishlist documents
// ---------------------------------------------------------------------------

func TestCartRepository_RoundTrip(t *testing.T) {
	repo := NewCartRepository(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := repo.Get(ctx, "shopper-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Save(ctx, sampleCart()))
	got, err := repo.Get(ctx, "shopper-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("1250.5")))
	assert.Equal(t, "WELCOME10", got.Discount.Code)

	require.NoError(t, repo.Delete(ctx, "shopper-1"))
	_, err = repo.Get(ctx, "shopper-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_StoreFailureIsPersistenceError(t *testing.T) {
	repo := NewCartRepository(failingStore{err: errors.New("connection reset")})

	_, err := repo.Get(context.Background(), "shopper-1")
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.Save(context.Background(), sampleCart())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestCartRepository_CorruptDocument(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "cart:shopper-1", []byte("{{not-json")))

	_, err := NewCartRepository(store).Get(context.Background(), "shopper-1")
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Contains(t, err.Error(), "unmarshal document")
}

func TestCheckoutRepository_RoundTrip(t *testing.T) {
	repo := NewCheckoutRepository(storage.NewMemoryStore())
	ctx := context.Background()
	session := &domain.CheckoutSession{
		ShopperID:        "shopper-1",
		Step:             domain.StepShipping,
		ShippingMethod:   domain.ShippingExpress,
		PaymentMethod:    domain.PaymentMada,
		Items:            sampleCart().Items,
		IdempotencyToken: "tok",
	}

	require.NoError(t, repo.Save(ctx, session))
	got, err := repo.Get(ctx, "shopper-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, got.Step)
	assert.Equal(t, domain.PaymentMada, got.PaymentMethod)
	assert.Equal(t, "tok", got.IdempotencyToken)

	require.NoError(t, repo.Delete(ctx, "shopper-1"))
	_, err = repo.Get(ctx, "shopper-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWishlistRepository_RoundTrip(t *testing.T) {
	repo := NewWishlistRepository(storage.NewMemoryStore())
	ctx := context.Background()
	w := domain.NewWishlist("shopper-1")
	w.Add(domain.WishlistItem{ProductID: "lamp", Name: "Lamp", Price: decimal.NewFromInt(80)})

	require.NoError(t, repo.Save(ctx, w))
	got, err := repo.Get(ctx, "shopper-1")
	require.NoError(t, err)
	assert.True(t, got.Contains("lamp"))
}

// ---------------------------------------------------------------------------
// OrderLedger
// ---------------------------------------------------------------------------

func TestOrderLedger_AppendAndFind(t *testing.T) {
	ledger := NewOrderLedger(storage.NewMemoryStore())
	ctx := context.Background()
	o := sampleOrder("01A", "shopper-1", time.Now().UTC())

	require.NoError(t, ledger.Append(ctx, o))

	got, err := ledger.FindByID(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "shopper-1", got.ShopperID)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)

	exists, err := ledger.Exists(ctx, "01A")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOrderLedger_DuplicateID(t *testing.T) {
	ledger := NewOrderLedger(storage.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, ledger.Append(ctx, sampleOrder("01A", "shopper-1", time.Now())))

	err := ledger.Append(ctx, sampleOrder("01A", "shopper-2", time.Now()))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateOrderID)

	got, err := ledger.FindByID(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "shopper-1", got.ShopperID, "existing order is never overwritten")
}

func TestOrderLedger_ReusedTokenConflicts(t *testing.T) {
	ledger := NewOrderLedger(storage.NewMemoryStore())
	ctx := context.Background()
	first := sampleOrder("01A", "shopper-1", time.Now())
	first.IdempotencyToken = "tok-1"
	require.NoError(t, ledger.Append(ctx, first))

	retry := sampleOrder("01B", "shopper-1", time.Now())
	retry.IdempotencyToken = "tok-1"
	err := ledger.Append(ctx, retry)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = ledger.FindByID(ctx, "01B")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	orders, total, err := ledger.ListByShopper(ctx, "shopper-1", pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "01A", orders[0].ID)

	other := sampleOrder("01C", "shopper-1", time.Now())
	other.IdempotencyToken = "tok-2"
	require.NoError(t, ledger.Append(ctx, other), "a different token is accepted")
}

// indexFailingStore fails writes to the per-shopper order index.
type indexFailingStore struct {
	*storage.MemoryStore
}

func (s indexFailingStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, storage.OrdersKeyPrefix) {
		return errors.New("index unavailable")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestOrderLedger_FailedAppendReleasesToken(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	o := sampleOrder("01A", "shopper-1", time.Now())
	o.IdempotencyToken = "tok-1"

	err := NewOrderLedger(indexFailingStore{mem}).Append(ctx, o)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)

	_, err = mem.Get(ctx, storage.OrderTokenPrefix+"tok-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = mem.Get(ctx, storage.OrderKeyPrefix+"01A")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, NewOrderLedger(mem).Append(ctx, o), "the token can be used once the failure is gone")
}

func TestOrderLedger_FindByID_NotFound(t *testing.T) {
	ledger := NewOrderLedger(storage.NewMemoryStore())

	_, err := ledger.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderLedger_ListByShopper_NewestFirst(t *testing.T) {
	ledger := NewOrderLedger(storage.NewMemoryStore())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"01A", "01B", "01C"} {
		require.NoError(t, ledger.Append(ctx, sampleOrder(id, "shopper-1", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, ledger.Append(ctx, sampleOrder("01Z", "shopper-2", base)))

	page := pagination.Params{Page: 1, PerPage: 2, Offset: 0}
	orders, total, err := ledger.ListByShopper(ctx, "shopper-1", page)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "01C", orders[0].ID)
	assert.Equal(t, "01B", orders[1].ID)

	page = pagination.Params{Page: 2, PerPage: 2, Offset: 2}
	orders, _, err = ledger.ListByShopper(ctx, "shopper-1", page)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "01A", orders[0].ID)

	orders, total, err = ledger.ListByShopper(ctx, "nobody", pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)
}
