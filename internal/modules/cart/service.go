package cart

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"hamropasal.com/app/internal/modules/settings"
)

var ErrMixedCurrency = errors.New("cart contains multiple currencies")

type Line struct {
	VariantID string
	Qty       int
}

type PricedLine struct {
	VariantID      string
	ProductName    string
	ProductSlug    string
	UnitPricePaisa int64
	Qty            int
	LineTotalPaisa int64
	Currency       string
}

type Summary struct {
	Currency                   string `json:"currency"`
	SubtotalPaisa              int64  `json:"subtotal_paisa"`
	ShippingPaisa              int64  `json:"shipping_paisa"`
	TaxPaisa                   int64  `json:"tax_paisa"`
	TotalPaisa                 int64  `json:"total_paisa"`
	ItemsCount                 int    `json:"items_count"`
	FreeShippingThresholdPaisa int64  `json:"free_shipping_threshold_paisa"`
	FreeShippingRemainingPaisa int64  `json:"free_shipping_remaining_paisa"`
	Fallback                   bool   `json:"fallback"`
}

type Service struct {
	db       *gorm.DB
	settings *settings.Service
	logger   *slog.Logger
}

func NewService(db *gorm.DB, st *settings.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, settings: st, logger: logger}
}

type pricedRow struct {
	VariantID   string `gorm:"column:variant_id"`
	PricePaisa  int64  `gorm:"column:price_paisa"`
	Currency    string `gorm:"column:currency"`
	ProductName string `gorm:"column:product_name"`
	ProductSlug string `gorm:"column:product_slug"`
}

// PriceLines resolves server-side prices for the given (variant, qty) pairs.
// Unknown variants are dropped: guest cookies can reference products that were
// removed since the cookie was written. Order creation re-validates.
func (s *Service) PriceLines(ctx context.Context, lines []Line) ([]PricedLine, error) {
	qtyByID := make(map[string]int, len(lines))
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		if ln.VariantID == "" || ln.Qty <= 0 {
			continue
		}
		if _, ok := qtyByID[ln.VariantID]; !ok {
			ids = append(ids, ln.VariantID)
		}
		qtyByID[ln.VariantID] += ln.Qty
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	var rows []pricedRow
	if err := s.db.WithContext(ctx).
		Table("product_variants AS v").
		Select(`v.id AS variant_id,
			v.price_paisa AS price_paisa,
			v.currency AS currency,
			p.name AS product_name,
			p.slug AS product_slug`).
		Joins("JOIN products p ON p.id = v.product_id").
		Where("v.id IN ?", ids).
		Order("v.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	currency := ""
	out := make([]PricedLine, 0, len(rows))
	for _, r := range rows {
		if currency == "" {
			currency = r.Currency
		} else if currency != r.Currency {
			return nil, ErrMixedCurrency
		}
		qty := qtyByID[r.VariantID]
		out = append(out, PricedLine{
			VariantID:      r.VariantID,
			ProductName:    r.ProductName,
			ProductSlug:    r.ProductSlug,
			UnitPricePaisa: r.PricePaisa,
			Qty:            qty,
			LineTotalPaisa: r.PricePaisa * int64(qty),
			Currency:       r.Currency,
		})
	}
	return out, nil
}

// Summary prices the lines and applies the store's pricing rules. When the
// settings row cannot be read it degrades to settings.Defaults and flags the
// result as a fallback calculation instead of failing the whole request.
func (s *Service) Summary(ctx context.Context, lines []Line) (Summary, []PricedLine, error) {
	priced, err := s.PriceLines(ctx, lines)
	if err != nil {
		return Summary{}, nil, err
	}

	st, err := s.settings.Get(ctx)
	fallback := false
	if err != nil {
		s.logger.WarnContext(ctx, "store settings unavailable, using fallback pricing", "err", err)
		st = settings.Defaults()
		fallback = true
	}

	return Summarize(priced, st, fallback), priced, nil
}

// Summarize is the pure pricing formula: subtotal, flat-or-free shipping,
// VAT on the subtotal, and the remaining amount to reach free shipping.
func Summarize(priced []PricedLine, st settings.StoreSettings, fallback bool) Summary {
	sum := Summary{
		Currency:                   st.Currency,
		FreeShippingThresholdPaisa: st.FreeShippingThresholdPaisa,
		Fallback:                   fallback,
	}
	for _, ln := range priced {
		sum.SubtotalPaisa += ln.LineTotalPaisa
		sum.ItemsCount += ln.Qty
		if ln.Currency != "" {
			sum.Currency = ln.Currency
		}
	}
	if sum.ItemsCount == 0 {
		return sum
	}

	sum.ShippingPaisa = st.ShippingFlatPaisa
	if st.FreeShippingThresholdPaisa > 0 {
		if sum.SubtotalPaisa >= st.FreeShippingThresholdPaisa {
			sum.ShippingPaisa = 0
		} else {
			sum.FreeShippingRemainingPaisa = st.FreeShippingThresholdPaisa - sum.SubtotalPaisa
		}
	}

	sum.TaxPaisa = sum.SubtotalPaisa * int64(st.TaxRateBps) / 10000
	sum.TotalPaisa = sum.SubtotalPaisa + sum.ShippingPaisa + sum.TaxPaisa
	return sum
}

// FallbackSummary prices nothing: it runs the degraded formula over lines that
// already carry prices. Used by callers that hold priced lines but lost the
// settings lookup mid-request.
func FallbackSummary(priced []PricedLine) Summary {
	return Summarize(priced, settings.Defaults(), true)
}

// LinesFromUserCart loads the open cart of a user as summary input.
func (s *Service) LinesFromUserCart(ctx context.Context, userID string) ([]Line, string, error) {
	crt, err := NewRepo(s.db).GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	var items []CartItem
	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&items, "cart_id = ?", crt.ID).Error; err != nil {
		return nil, "", err
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{VariantID: it.VariantID, Qty: it.Quantity})
	}
	return lines, crt.ID, nil
}
