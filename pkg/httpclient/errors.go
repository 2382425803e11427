package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError mirrors the error envelope written by httputil.WriteError.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and maps it onto
// the application error taxonomy. resource and id name what was requested.
func ParseResponseError(resp *http.Response, resource, id string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", resource, resp.StatusCode, err)
	}

	message := string(body)
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		message = downstream.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(fmt.Sprintf("%s: %s", resource, message))
	case resp.StatusCode == http.StatusServiceUnavailable, resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s unavailable", resource), nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.InvalidInput(fmt.Sprintf("%s rejected request: %s", resource, message))
	default:
		return fmt.Errorf("%s returned status %d: %s", resource, resp.StatusCode, message)
	}
}
