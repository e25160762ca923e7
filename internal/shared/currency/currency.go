package currency

import (
	"fmt"
	"math"
)

// All internal amounts are paisa (1/100 NPR). These converters are the only
// crossing point between rupee-denominated input (gateways, display) and the
// paisa amounts the rest of the system carries.

func NprToPaisa(npr float64) int64 {
	return int64(math.Round(npr * 100))
}

func PaisaToNpr(paisa int64) float64 {
	return float64(paisa) / 100
}

// FormatPaisa renders a paisa amount for display, e.g. "Rs 1,250.00" without
// the thousands separator (kept simple; the storefront does its own locale
// formatting).
func FormatPaisa(paisa int64, currency string) string {
	major := PaisaToNpr(paisa)
	switch currency {
	case "NPR":
		return fmt.Sprintf("Rs %.2f", major)
	case "USD":
		return fmt.Sprintf("$%.2f", major)
	default:
		return fmt.Sprintf("%.2f %s", major, currency)
	}
}

// FormatRupees is the wire format eSewa expects: fixed two-decimal strings,
// never scientific notation, never bare integers.
func FormatRupees(paisa int64) string {
	return fmt.Sprintf("%.2f", PaisaToNpr(paisa))
}
