package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hamropasal.com/app/internal/modules/settings"
)

func pricedFixture() []PricedLine {
	return []PricedLine{
		{VariantID: "v1", ProductName: "Tea", UnitPricePaisa: 25000, Qty: 2, LineTotalPaisa: 50000, Currency: "NPR"},
		{VariantID: "v2", ProductName: "Mug", UnitPricePaisa: 30000, Qty: 1, LineTotalPaisa: 30000, Currency: "NPR"},
	}
}

func TestSummarize(t *testing.T) {
	st := settings.StoreSettings{
		Currency:                   "NPR",
		TaxRateBps:                 1300,
		ShippingFlatPaisa:          10000,
		FreeShippingThresholdPaisa: 200000,
	}

	sum := Summarize(pricedFixture(), st, false)

	assert.Equal(t, int64(80000), sum.SubtotalPaisa)
	assert.Equal(t, 3, sum.ItemsCount)
	assert.Equal(t, int64(10000), sum.ShippingPaisa)
	// 13% VAT on the subtotal
	assert.Equal(t, int64(10400), sum.TaxPaisa)
	assert.Equal(t, int64(100400), sum.TotalPaisa)
	assert.Equal(t, int64(120000), sum.FreeShippingRemainingPaisa)
	assert.False(t, sum.Fallback)
}

func TestSummarizeFreeShippingThresholdReached(t *testing.T) {
	st := settings.StoreSettings{
		Currency:                   "NPR",
		TaxRateBps:                 1300,
		ShippingFlatPaisa:          10000,
		FreeShippingThresholdPaisa: 80000,
	}

	sum := Summarize(pricedFixture(), st, false)
	assert.Equal(t, int64(0), sum.ShippingPaisa)
	assert.Equal(t, int64(0), sum.FreeShippingRemainingPaisa)
}

func TestSummarizeEmptyCart(t *testing.T) {
	sum := Summarize(nil, settings.Defaults(), false)
	assert.Equal(t, int64(0), sum.SubtotalPaisa)
	assert.Equal(t, int64(0), sum.ShippingPaisa)
	assert.Equal(t, int64(0), sum.TaxPaisa)
	assert.Equal(t, int64(0), sum.TotalPaisa)
	assert.Equal(t, 0, sum.ItemsCount)
}

// Degraded mode must still produce a believable, non-zero total: 13% VAT and
// the flat Rs 200 shipping.
func TestFallbackSummary(t *testing.T) {
	sum := FallbackSummary(pricedFixture())

	assert.True(t, sum.Fallback)
	assert.Equal(t, int64(80000), sum.SubtotalPaisa)
	assert.Equal(t, int64(20000), sum.ShippingPaisa)
	assert.Equal(t, int64(10400), sum.TaxPaisa)
	assert.Equal(t, int64(110400), sum.TotalPaisa)
	assert.Greater(t, sum.TotalPaisa, sum.SubtotalPaisa)
}

func TestSummarizeCurrencyFromLines(t *testing.T) {
	lines := []PricedLine{
		{VariantID: "v1", UnitPricePaisa: 100, Qty: 1, LineTotalPaisa: 100, Currency: "USD"},
	}
	sum := Summarize(lines, settings.Defaults(), true)
	assert.Equal(t, "USD", sum.Currency)
}
