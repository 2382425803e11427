package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// StaticCatalog serves a fixed product table. It is used when no catalog
// service is configured.
type StaticCatalog struct {
	products map[string]Product
}

// NewStaticCatalog builds a catalog from products keyed by id.
func NewStaticCatalog(products ...Product) *StaticCatalog {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &StaticCatalog{products: m}
}

// DefaultCatalog returns the demo storefront products.
func DefaultCatalog() *StaticCatalog {
	sofaWas := decimal.NewFromInt(3000)
	return NewStaticCatalog(
		Product{ID: "1", Name: "Luxury 3-seat sofa", Price: decimal.NewFromInt(2500), OriginalPrice: &sofaWas, ImageURL: "sofa-1.jpg"},
		Product{ID: "2", Name: "Modern cotton curtains", Price: decimal.NewFromInt(450), ImageURL: "curtain-1.jpg"},
	)
}

// GetProduct returns a copy of the product.
func (c *StaticCatalog) GetProduct(_ context.Context, id string) (*Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		p.OriginalPrice = &v
	}
	return &p, nil
}
