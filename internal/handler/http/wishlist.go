package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// WishlistHandler handles HTTP requests for the wishlist.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// AddWishlistItemRequest is the JSON request body for saving a product.
type AddWishlistItemRequest struct {
	ProductID string          `json:"product_id" validate:"notblank"`
	Name      string          `json:"name" validate:"notblank"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
}

// Get handles GET /api/v1/wishlist
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*domain.Wishlist, error) {
		return h.service.Get(r.Context(), shopperID)
	})
}

// Add handles POST /api/v1/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddWishlistItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, func(shopperID string) (*domain.Wishlist, error) {
		return h.service.Add(r.Context(), shopperID, domain.WishlistItem{
			ProductID: req.ProductID,
			Name:      req.Name,
			Price:     req.Price,
			ImageURL:  req.ImageURL,
		})
	})
}

// Remove handles DELETE /api/v1/wishlist/{productId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(shopperID string) (*domain.Wishlist, error) {
		return h.service.Remove(r.Context(), shopperID, chi.URLParam(r, "productId"))
	})
}

func (h *WishlistHandler) respond(w http.ResponseWriter, r *http.Request, fn func(shopperID string) (*domain.Wishlist, error)) {
	shopperID, err := middleware.MustShopperID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	wishlist, err := fn(shopperID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, wishlist)
}
