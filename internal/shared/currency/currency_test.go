package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNprToPaisa(t *testing.T) {
	assert.Equal(t, int64(9950), NprToPaisa(99.5))
	assert.Equal(t, int64(10000), NprToPaisa(100))
	assert.Equal(t, int64(1), NprToPaisa(0.01))
	assert.Equal(t, int64(0), NprToPaisa(0))
	// float artifacts must round, not truncate
	assert.Equal(t, int64(1999), NprToPaisa(19.99))
}

func TestPaisaToNpr(t *testing.T) {
	assert.Equal(t, 99.5, PaisaToNpr(9950))
	assert.Equal(t, 0.01, PaisaToNpr(1))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "100.00", FormatRupees(10000))
	assert.Equal(t, "250.00", FormatRupees(25000))
	assert.Equal(t, "0.00", FormatRupees(0))
	assert.Equal(t, "19.99", FormatRupees(1999))
}

func TestFormatPaisa(t *testing.T) {
	assert.Equal(t, "Rs 1250.00", FormatPaisa(125000, "NPR"))
	assert.Equal(t, "$5.00", FormatPaisa(500, "USD"))
	assert.Equal(t, "5.00 EUR", FormatPaisa(500, "EUR"))
}
