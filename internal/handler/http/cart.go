package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// UpdateQuantityRequest is the JSON request body for setting a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ApplyDiscountRequest is the JSON request body for applying a discount code.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"notblank"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.GetCart(r.Context(), shopperID)
	})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.ClearCart(r.Context(), shopperID)
	})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.AddItem(r.Context(), shopperID, req)
	})
}

// AddProduct handles POST /api/v1/cart/products/{productId}
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.AddProduct(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.SetQuantity(r.Context(), shopperID, chi.URLParam(r, "productId"), req.Quantity)
	})
}

// IncreaseItem handles POST /api/v1/cart/items/{productId}/increase
func (h *CartHandler) IncreaseItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.IncreaseQuantity(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

// DecreaseItem handles POST /api/v1/cart/items/{productId}/decrease
func (h *CartHandler) DecreaseItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.DecreaseQuantity(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.RemoveItem(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

// MoveToWishlist handles POST /api/v1/cart/items/{productId}/wishlist
func (h *CartHandler) MoveToWishlist(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.MoveToWishlist(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

// ApplyDiscount handles POST /api/v1/cart/discount
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.ApplyDiscount(r.Context(), shopperID, req.Code)
	})
}

// RemoveDiscount handles DELETE /api/v1/cart/discount
func (h *CartHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*service.CartView, error) {
		return h.service.RemoveDiscount(r.Context(), shopperID)
	})
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, fn func(shopperID string) (*service.CartView, error)) {
	shopperID, err := middleware.MustShopperID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := fn(shopperID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}
