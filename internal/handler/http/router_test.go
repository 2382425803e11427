package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/command"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/idempotency"
	"github.com/utafrali/storefront/internal/repository/document"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewWithWriter("test", "error", io.Discard)
	store := storage.NewMemoryStore()
	engine := domain.NewPricingEngine(domain.DefaultPricingRules())
	producer := event.NewProducer(nil, log)
	locks := service.NewShopperLocks()
	carts := document.NewCartRepository(store)
	sessions := document.NewCheckoutRepository(store)
	wishlists := document.NewWishlistRepository(store)

	svc := Services{
		Cart: service.NewCartService(carts, wishlists, catalog.DefaultCatalog(), domain.DefaultDiscountCatalog(),
			engine, producer, nil, locks, log, domain.DefaultMaxLines),
		Checkout: service.NewCheckoutService(sessions, carts, engine, producer, nil, locks, log),
		Orders: service.NewOrderService(service.OrderDeps{
			Sessions:    sessions,
			Carts:       carts,
			Ledger:      document.NewOrderLedger(store),
			Idempotency: idempotency.NewMemoryStore(time.Minute, time.Hour),
			Engine:      engine,
			Delivery:    domain.DefaultDeliveryDays(),
			Producer:    producer,
			Locks:       locks,
			Logger:      log,
		}),
		Wishlist: service.NewWishlistService(wishlists, locks, log),
	}
	svc.Dispatcher = command.NewStorefront(command.Services{
		Cart: svc.Cart, Checkout: svc.Checkout, Orders: svc.Orders, Wishlist: svc.Wishlist,
	}, log)

	return NewRouter(svc, health.NewHandler(), Options{CORS: middleware.CORSConfig{AllowedOrigins: []string{"*"}}}, log)
}

func do(t *testing.T, h http.Handler, method, path, shopper, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if shopper != "" {
		req.Header.Set(middleware.ShopperHeader, shopper)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresShopper(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestRouter_CartDiscountScenario(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/cart/products/1", "shopper-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/v1/cart/discount", "shopper-1", `{"code":"welcome10"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeData[service.CartView](t, env)
	assert.Equal(t, 1, view.ItemCount)
	assert.Equal(t, "2587.5", view.Pricing.Total.String())
	assert.Equal(t, "337.5", view.Pricing.TaxAmount.String())
}

func TestRouter_InvalidDiscountCode(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/api/v1/cart/discount", "shopper-1", `{"code":"BOGUS"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_DISCOUNT_CODE", env.Error.Code)
}

func TestRouter_QuantityOutOfRange(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/cart/products/2", "shopper-1", "")

	rec, env := do(t, h, http.MethodPut, "/api/v1/cart/items/2", "shopper-1", `{"quantity":11}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QUANTITY_OUT_OF_RANGE", env.Error.Code)
}

func TestRouter_CheckoutEmptyCart(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/api/v1/checkout", "shopper-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestRouter_StepGateReturnsFieldErrors(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/cart/products/1", "shopper-1", "")
	do(t, h, http.MethodPost, "/api/v1/checkout", "shopper-1", "")

	rec, env := do(t, h, http.MethodPost, "/api/v1/checkout/step", "shopper-1", `{"step":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Fields, 4)
	assert.Equal(t, "first_name", env.Error.Fields[0].Field)
}

func TestRouter_CheckoutAndPlaceOrder(t *testing.T) {
	h := newTestRouter(t)
	shopper := "shopper-1"

	do(t, h, http.MethodPost, "/api/v1/cart/products/1", shopper, "")
	rec, env := do(t, h, http.MethodPost, "/api/v1/checkout", shopper, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeData[domain.CheckoutSession](t, env)
	require.NotEmpty(t, session.IdempotencyToken)

	steps := []struct{ method, path, body string }{
		{http.MethodPut, "/api/v1/checkout/customer", `{"first_name":"Sara","last_name":"Alqahtani","email":"sara@example.com","phone":"0500000000"}`},
		{http.MethodPut, "/api/v1/checkout/shipping-address", `{"address":"12 King Fahd Rd","city":"riyadh","district":"Olaya","postal_code":"12211"}`},
		{http.MethodPut, "/api/v1/checkout/shipping-method", `{"method":"express"}`},
		{http.MethodPut, "/api/v1/checkout/card", `{"card_number":"4111-1111-1111-1234","cardholder_name":"SARA","expiry_date":"12/29","cvv":"123"}`},
		{http.MethodPut, "/api/v1/checkout/terms", `{"accepted":true}`},
		{http.MethodPost, "/api/v1/checkout/step", `{"step":4}`},
	}
	for _, s := range steps {
		rec, env := do(t, h, s.method, s.path, shopper, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s: %+v", s.method, s.path, env.Error)
	}

	rec, env = do(t, h, http.MethodGet, "/api/v1/checkout", shopper, "")
	require.Equal(t, http.StatusOK, rec.Code)
	session = decodeData[domain.CheckoutSession](t, env)
	require.NotNil(t, session.Card)
	assert.Equal(t, "************1234", session.Card.CardNumber)
	assert.Equal(t, "***", session.Card.CVV)
	require.NotNil(t, session.Review)
	assert.Equal(t, []string{"12 King Fahd Rd", "Olaya, Riyadh", "Postal code: 12211"}, session.Review.AddressLines)

	rec, env = do(t, h, http.MethodPost, "/api/v1/checkout/place-order", shopper, "", IdempotencyHeader, session.IdempotencyToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeData[domain.Order](t, env)
	assert.Equal(t, "2925", order.Pricing.Total.String())
	assert.Equal(t, "1234", order.CardLast4)

	rec, env = do(t, h, http.MethodPost, "/api/v1/checkout/place-order", shopper, `{"idempotency_key":"`+session.IdempotencyToken+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, order.ID, decodeData[domain.Order](t, env).ID)

	rec, env = do(t, h, http.MethodGet, "/api/v1/orders/"+order.ID, shopper, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.ID, decodeData[domain.Order](t, env).ID)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/orders/"+order.ID, "shopper-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/orders?page=1&per_page=5", shopper, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []domain.Order `json:"data"`
		TotalCount int            `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Data, 1)

	rec, env = do(t, h, http.MethodGet, "/api/v1/cart", shopper, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeData[service.CartView](t, env).ItemCount)
}

func TestRouter_Wishlist(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/cart/products/2", "shopper-1", "")

	rec, _ := do(t, h, http.MethodPost, "/api/v1/cart/items/2/wishlist", "shopper-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/v1/wishlist", "shopper-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	w := decodeData[domain.Wishlist](t, env)
	require.Len(t, w.Items, 1)
	assert.Equal(t, "Modern cotton curtains", w.Items[0].Name)

	rec, env = do(t, h, http.MethodDelete, "/api/v1/wishlist/2", "shopper-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[domain.Wishlist](t, env).Items)
}

func TestRouter_Commands(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/api/v1/commands", "shopper-1", `{"intent":"cart.add_product","payload":{"product_id":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeData[service.CartView](t, env).ItemCount)

	rec, env = do(t, h, http.MethodPost, "/api/v1/commands", "shopper-1", `{"intent":"cart.teleport"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/commands", "shopper-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeData[[]string](t, env), "checkout.place_order")
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/discount", bytes.NewBufferString("code=X"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.ShopperHeader, "shopper-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
