package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var cityNames = map[string]string{
	"riyadh": "Riyadh",
	"jeddah": "Jeddah",
	"dammam": "Dammam",
	"mecca":  "Makkah",
	"medina": "Madinah",
}

var shippingLabels = map[ShippingMethod]string{
	ShippingStandard: "Standard delivery",
	ShippingExpress:  "Express delivery",
}

var paymentLabels = map[PaymentMethod]string{
	PaymentCreditCard: "Credit card",
	PaymentMada:       "Mada",
	PaymentApplePay:   "Apple Pay",
	PaymentCash:       "Cash on delivery",
}

// CityName returns the display name of a city key, or the key itself when unknown.
func CityName(key string) string {
	if name, ok := cityNames[strings.ToLower(strings.TrimSpace(key))]; ok {
		return name
	}
	return key
}

// ReviewProjection is what the shopper sees on the final step.
type ReviewProjection struct {
	CustomerName  string          `json:"customer_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	AddressLines  []string        `json:"address_lines"`
	ShippingLabel string          `json:"shipping_label"`
	PaymentLabel  string          `json:"payment_label"`
	CardLast4     string          `json:"card_last4,omitempty"`
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

// BuildReview renders the review projection of a session.
func BuildReview(s *CheckoutSession) ReviewProjection {
	addr := s.ShippingAddress
	lines := []string{addr.Address, addr.District + ", " + CityName(addr.City)}
	if pc := strings.TrimSpace(addr.PostalCode); pc != "" {
		lines = append(lines, "Postal code: "+pc)
	}

	r := ReviewProjection{
		CustomerName:  s.Customer.FullName(),
		Email:         s.Customer.Email,
		Phone:         s.Customer.Phone,
		AddressLines:  lines,
		ShippingLabel: shippingLabels[s.ShippingMethod],
		PaymentLabel:  paymentLabels[s.PaymentMethod],
		Total:         s.Pricing.Total,
		Currency:      s.Pricing.Currency,
	}
	for _, item := range s.Items {
		r.ItemCount += item.Quantity
	}
	if s.PaymentMethod == PaymentCreditCard && s.Card != nil {
		r.CardLast4 = s.Card.Last4()
	}
	return r
}
