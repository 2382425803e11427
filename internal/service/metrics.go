package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unknownCodeLabel stands in for codes outside the discount catalog so that
// shopper input never becomes a label value.
const unknownCodeLabel = "unknown"

var (
	cartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	discountsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_discounts_applied_total",
			Help: "Discount code attempts by code and outcome.",
		},
		[]string{"code", "outcome"},
	)

	stepRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_step_rejections_total",
			Help: "Forward checkout moves refused by validation, by the step that failed.",
		},
		[]string{"step"},
	)

	ordersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders placed by shipping and payment method.",
		},
		[]string{"shipping_method", "payment_method"},
	)

	orderPlacementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_placement_failures_total",
			Help: "Failed order placements by error code.",
		},
		[]string{"code"},
	)

	orderTotals = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_order_total_amount",
			Help:    "Distribution of order totals in the store currency.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
