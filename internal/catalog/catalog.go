// Package catalog resolves product ids to the details a cart line needs.
package catalog

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// Product is the catalog view used when adding a product by id.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
}

// Lookup fetches a product. A missing product is reported as an error
// wrapping apperrors.ErrNotFound.
type Lookup interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}
