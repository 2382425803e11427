package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// ShopperHeader identifies the signed-in shopper. Authentication itself happens
// upstream; this service trusts the header.
const ShopperHeader = "X-User-ID"

type shopperKey struct{}

// Shopper requires the ShopperHeader and stores its value in the context.
// Requests without it are rejected with 401. The ID is also attached to the
// context for log enrichment.
func Shopper() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(ShopperHeader))
			if id == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "sign in to continue"},
				})
				return
			}
			ctx := logger.WithShopperID(WithShopperID(r.Context(), id), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithShopperID returns a context carrying the shopper ID.
func WithShopperID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, shopperKey{}, id)
}

// ShopperIDFromContext returns the shopper ID set by Shopper, or "".
func ShopperIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(shopperKey{}).(string)
	return id
}

// MustShopperID returns the shopper ID or an invalid input error when the
// Shopper middleware did not run.
func MustShopperID(ctx context.Context) (string, error) {
	if id := ShopperIDFromContext(ctx); id != "" {
		return id, nil
	}
	return "", apperrors.InvalidInput("missing shopper identity")
}
