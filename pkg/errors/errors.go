package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the storefront error taxonomy.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrServiceUnavail      = errors.New("service unavailable")
	ErrInternal            = errors.New("internal error")
	ErrQuantityOutOfRange  = errors.New("quantity out of range")
	ErrInvalidDiscountCode = errors.New("invalid discount code")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateOrderID    = errors.New("duplicate order id")
	ErrPersistence         = errors.New("persistence failure")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	Status    int          `json:"-"`
	Err       error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// ServiceUnavailable creates a retryable 503 error for a failing collaborator.
func ServiceUnavailable(message string, err error) *AppError {
	if err == nil {
		err = ErrServiceUnavail
	} else {
		err = fmt.Errorf("%w: %w", ErrServiceUnavail, err)
	}
	return &AppError{
		Code:      "SERVICE_UNAVAILABLE",
		Message:   message,
		Retryable: true,
		Status:    http.StatusServiceUnavailable,
		Err:       err,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// QuantityOutOfRange is returned when a line quantity falls outside [min, max].
func QuantityOutOfRange(productID string, got, min, max int) *AppError {
	return &AppError{
		Code:    "QUANTITY_OUT_OF_RANGE",
		Message: fmt.Sprintf("quantity %d for product %s must be between %d and %d", got, productID, min, max),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrQuantityOutOfRange,
	}
}

// InvalidDiscountCode is returned when a code does not resolve in the catalog.
func InvalidDiscountCode(code string) *AppError {
	return &AppError{
		Code:    "INVALID_DISCOUNT_CODE",
		Message: fmt.Sprintf("discount code %q is not valid", code),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidDiscountCode,
	}
}

// EmptyCart is returned when checkout or placement is attempted on an empty cart.
func EmptyCart() *AppError {
	return &AppError{
		Code:    "EMPTY_CART",
		Message: "the cart has no items",
		Status:  http.StatusConflict,
		Err:     ErrEmptyCart,
	}
}

// Validation aggregates field-level failures into a single 422 error.
func Validation(fields []FieldError) *AppError {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed for: " + strings.Join(names, ", "),
		Fields:  fields,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrValidation,
	}
}

// DuplicateOrderID is returned when the ledger already holds the given order id.
func DuplicateOrderID(id string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_ORDER_ID",
		Message: fmt.Sprintf("order %s already exists", id),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateOrderID,
	}
}

// Persistence wraps a storage failure.
func Persistence(op string, err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_ERROR",
		Message: fmt.Sprintf("failed to %s", op),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPersistence, err),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether the caller may retry the failed operation unchanged.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavail)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateOrderID), errors.Is(err, ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation), errors.Is(err, ErrQuantityOutOfRange), errors.Is(err, ErrInvalidDiscountCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
