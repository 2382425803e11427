// Package submission forwards placed orders to the order-processing backend.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// Submitter hands an assembled order to the backend before it is recorded.
type Submitter interface {
	Submit(ctx context.Context, order *domain.Order) error
}

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPSubmitter posts orders to {base}/api/v1/orders. Each call is bounded by
// timeout; exceeding it is reported as a retryable unavailability.
type HTTPSubmitter struct {
	client  HTTPDoer
	baseURL string
	timeout time.Duration
}

// NewHTTPSubmitter creates an HTTP submitter.
func NewHTTPSubmitter(client HTTPDoer, baseURL string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Submit sends the order. The idempotency token travels in the
// Idempotency-Key header so the backend can drop replays.
func (s *HTTPSubmitter) Submit(ctx context.Context, order *domain.Order) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create order submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.IdempotencyToken)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return apperrors.ServiceUnavailable("order submission timed out", err)
		case errors.Is(err, httpclient.ErrCircuitOpen):
			return apperrors.ServiceUnavailable("order submission is temporarily unavailable", err)
		}
		return apperrors.ServiceUnavailable("order submission failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return httpclient.ParseResponseError(resp, "order submission", order.ID)
	}
	return nil
}

// Noop accepts every order without contacting anything.
type Noop struct{}

// Submit always succeeds unless ctx is already done.
func (Noop) Submit(ctx context.Context, _ *domain.Order) error {
	return ctx.Err()
}
