package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSeries writes out every series a collector currently holds.
func collectSeries(t *testing.T, c prometheus.Collector) []*dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 1024)
	c.Collect(ch)
	close(ch)

	var out []*dto.Metric
	for m := range ch {
		d := &dto.Metric{}
		require.NoError(t, m.Write(d))
		out = append(out, d)
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func discountCounter(t *testing.T, code, outcome string) float64 {
	t.Helper()
	for _, m := range collectSeries(t, discountsApplied) {
		if labelValue(m, "code") == code && labelValue(m, "outcome") == outcome {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestDiscountMetrics_UnknownCodesShareOneSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddProduct(ctx, "shopper-1", "1")
	require.NoError(t, err)

	// Record the shared series once so the baseline already includes it.
	_, _ = f.cart.ApplyDiscount(ctx, "shopper-1", "NOT-A-CODE")
	seriesBefore := len(collectSeries(t, discountsApplied))
	countBefore := discountCounter(t, unknownCodeLabel, "invalid")

	for i := 0; i < 50; i++ {
		_, err := f.cart.ApplyDiscount(ctx, "shopper-1", fmt.Sprintf("junk-%d", i))
		require.Error(t, err)
	}

	assert.Equal(t, seriesBefore, len(collectSeries(t, discountsApplied)))
	assert.Equal(t, countBefore+50, discountCounter(t, unknownCodeLabel, "invalid"))
	for _, m := range collectSeries(t, discountsApplied) {
		assert.NotContains(t, labelValue(m, "code"), "JUNK")
		assert.NotContains(t, labelValue(m, "code"), "junk")
	}
}

func TestDiscountMetrics_CatalogCodeIsLabelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddProduct(ctx, "shopper-1", "1")
	require.NoError(t, err)

	before := discountCounter(t, "FURNITURE15", "ok")
	_, err = f.cart.ApplyDiscount(ctx, "shopper-1", " furniture15 ")
	require.NoError(t, err)
	assert.Equal(t, before+1, discountCounter(t, "FURNITURE15", "ok"))
}
