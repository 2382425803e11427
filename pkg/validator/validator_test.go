package validator

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type contactForm struct {
	FirstName string `json:"firstName" validate:"notblank"`
	Email     string `json:"email" validate:"notblank,contact_email"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=10"`
}

type cardForm struct {
	Number string `json:"cardNumber" validate:"notblank,card_number"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(contactForm{FirstName: "Sara", Email: "sara@example.com", Quantity: 2})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(contactForm{Email: "sara@example.com", Quantity: 1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["firstName"])
}

func TestValidate_BlankIsRequired(t *testing.T) {
	err := Validate(contactForm{FirstName: "   ", Email: "sara@example.com", Quantity: 1})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "firstName")
}

func TestValidate_ContactEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@b.co", true},
		{"first.last@shop.example.sa", true},
		{"no-at-sign.com", false},
		{"a@nodot", false},
		{"sp ace@b.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsContactEmail(tt.email))
		})
	}
}

func TestValidate_FieldErrorsKeepStructOrder(t *testing.T) {
	err := Validate(contactForm{Email: "bad", Quantity: 11})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.FieldErrors()
	require.Len(t, fields, 3)
	assert.Equal(t, apperrors.FieldError{Field: "firstName", Message: "is required"}, fields[0])
	assert.Equal(t, "email", fields[1].Field)
	assert.Equal(t, "must be a valid email address", fields[1].Message)
	assert.Equal(t, "quantity", fields[2].Field)
	assert.Contains(t, fields[2].Message, "10")
}

func TestValidate_CardNumber(t *testing.T) {
	assert.NoError(t, Validate(cardForm{Number: "4111 1111 1111 1111"}))
	assert.NoError(t, Validate(cardForm{Number: "4111-1111-1111-1111"}))

	err := Validate(cardForm{Number: "4111 1111 1111"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a 16 digit card number", valErr.Fields()["cardNumber"])
}

func TestNormalizeCardNumber(t *testing.T) {
	assert.Equal(t, "4111111111111111", NormalizeCardNumber(" 4111 1111-1111 1111 "))
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(contactForm{Email: "x@y.z", Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'firstName'")
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"firstName":"Sara","email":"sara@example.com","quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var f contactForm
	require.NoError(t, DecodeAndValidate(req, &f))
	assert.Equal(t, "Sara", f.FirstName)
	assert.Equal(t, 3, f.Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var f contactForm
	err := DecodeAndValidate(req, &f)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "decode request body")
}
