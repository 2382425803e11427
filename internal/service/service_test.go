package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/idempotency"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository/document"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/logger"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type notification struct {
	ShopperID string
	Kind      notify.Kind
	Message   string
}

type recordingSink struct {
	mu   sync.Mutex
	sent []notification
}

func (s *recordingSink) Notify(_ context.Context, shopperID string, kind notify.Kind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, notification{shopperID, kind, message})
	return nil
}

func (s *recordingSink) kinds() []notify.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Kind, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.Kind)
	}
	return out
}

type fakeSubmitter struct {
	mu     sync.Mutex
	err    error
	calls  int
	hold   chan struct{}
	called chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, _ *domain.Order) error {
	f.mu.Lock()
	f.calls++
	err, hold, called := f.err, f.hold, f.called
	f.mu.Unlock()

	if called != nil {
		called <- struct{}{}
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixedIDs struct {
	ids []string
	n   int
}

func (g *fixedIDs) NewID(time.Time) string {
	id := g.ids[g.n%len(g.ids)]
	g.n++
	return id
}

type fixture struct {
	store     *storage.MemoryStore
	carts     *document.CartRepository
	sessions  *document.CheckoutRepository
	wishlists *document.WishlistRepository
	ledger    *document.OrderLedger
	idem      *idempotency.MemoryStore
	submitter *fakeSubmitter
	sink      *recordingSink

	cart     *CartService
	checkout *CheckoutService
	orders   *OrderService
	wishlist *WishlistService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewWithWriter("test", "error", io.Discard)
	store := storage.NewMemoryStore()
	engine := domain.NewPricingEngine(domain.DefaultPricingRules())
	producer := event.NewProducer(nil, log)
	locks := NewShopperLocks()

	f := &fixture{
		store:     store,
		carts:     document.NewCartRepository(store),
		sessions:  document.NewCheckoutRepository(store),
		wishlists: document.NewWishlistRepository(store),
		ledger:    document.NewOrderLedger(store),
		idem:      idempotency.NewMemoryStore(30*time.Second, time.Hour),
		submitter: &fakeSubmitter{},
		sink:      &recordingSink{},
	}

	f.cart = NewCartService(f.carts, f.wishlists, catalog.DefaultCatalog(), domain.DefaultDiscountCatalog(),
		engine, producer, f.sink, locks, log, domain.DefaultMaxLines)
	f.cart.now = func() time.Time { return fixedNow }

	f.checkout = NewCheckoutService(f.sessions, f.carts, engine, producer, f.sink, locks, log)
	f.checkout.now = func() time.Time { return fixedNow }
	f.checkout.newToken = func() string { return "token-1" }

	f.orders = NewOrderService(OrderDeps{
		Sessions:    f.sessions,
		Carts:       f.carts,
		Ledger:      f.ledger,
		Idempotency: f.idem,
		Submitter:   f.submitter,
		Engine:      engine,
		Delivery:    domain.DefaultDeliveryDays(),
		Producer:    producer,
		Notifier:    f.sink,
		Locks:       locks,
		Logger:      log,
	})
	f.orders.now = func() time.Time { return fixedNow }

	f.wishlist = NewWishlistService(f.wishlists, locks, log)
	f.wishlist.now = func() time.Time { return fixedNow }
	return f
}

// readyCheckout fills a session for shopper-1 holding one sofa and moves it to Review.
func (f *fixture) readyCheckout(t *testing.T) *domain.CheckoutSession {
	t.Helper()
	ctx := context.Background()

	_, err := f.cart.AddProduct(ctx, "shopper-1", "1")
	require.NoError(t, err)
	_, err = f.checkout.Start(ctx, "shopper-1")
	require.NoError(t, err)
	_, err = f.checkout.UpdateCustomer(ctx, "shopper-1", domain.Customer{
		FirstName: "Sara", LastName: "Alqahtani", Email: "sara@example.com", Phone: "0500000000",
	})
	require.NoError(t, err)
	_, err = f.checkout.UpdateShippingAddress(ctx, "shopper-1", domain.ShippingAddress{
		Address: "12 King Fahd Rd", City: "riyadh", District: "Olaya",
	})
	require.NoError(t, err)
	_, err = f.checkout.SetCard(ctx, "shopper-1", domain.CardDetails{
		CardNumber: "4111 1111 1111 1234", CardholderName: "SARA", ExpiryDate: "12/29", CVV: "123",
	})
	require.NoError(t, err)
	_, err = f.checkout.AcceptTerms(ctx, "shopper-1", true)
	require.NoError(t, err)
	session, err := f.checkout.GoToStep(ctx, "shopper-1", domain.StepReview)
	require.NoError(t, err)
	return session
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
