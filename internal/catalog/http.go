package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// HTTPCatalog reads products from the catalog service.
type HTTPCatalog struct {
	client  HTTPDoer
	baseURL string
}

// NewHTTPCatalog creates a client for the catalog service at baseURL.
func NewHTTPCatalog(client HTTPDoer, baseURL string) *HTTPCatalog {
	return &HTTPCatalog{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type productResponse struct {
	Data *Product `json:"data"`
}

// GetProduct calls GET {base}/api/v1/products/{id}.
func (c *HTTPCatalog) GetProduct(ctx context.Context, id string) (*Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, apperrors.ServiceUnavailable("catalog is temporarily unavailable", err)
		}
		return nil, fmt.Errorf("call catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product", id)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if body.Data == nil {
		return nil, apperrors.NotFound("product", id)
	}
	if body.Data.ID == "" {
		body.Data.ID = id
	}
	return body.Data, nil
}
