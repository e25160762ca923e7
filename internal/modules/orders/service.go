package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/modules/cart"
	"hamropasal.com/app/internal/modules/checkout"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

type CreateFromCartInput struct {
	Lines      []cart.PricedLine
	UserID     *string
	GuestEmail *string

	// Client-generated token; unique per user so a double submit returns the
	// already-created order instead of creating a duplicate.
	IdempotencyKey *string

	PaymentMethod string
	ShippingPaisa int64
	TaxPaisa      int64

	ShippingAddressJSON []byte
}

type CreateResult struct {
	OrderID    string
	TotalPaisa int64
	Currency   string
	Idempotent bool
}

// CreateFromCart creates the order and its items in one transaction, deducting
// stock under row locks. The order is persisted in status "created" BEFORE any
// payment initiation; nothing here clears a cart.
func (s *Service) CreateFromCart(ctx context.Context, in CreateFromCartInput) (CreateResult, error) {
	if len(in.Lines) == 0 {
		return CreateResult{}, ErrCartEmpty
	}
	if len(in.ShippingAddressJSON) == 0 {
		return CreateResult{}, ErrAddressRequired
	}

	currency := ""
	var subtotal int64
	stock := make([]checkout.StockLine, 0, len(in.Lines))
	for _, ln := range in.Lines {
		if ln.VariantID == "" || ln.Qty <= 0 {
			return CreateResult{}, ErrProductUnavailable
		}
		if currency == "" {
			currency = ln.Currency
		} else if currency != ln.Currency {
			return CreateResult{}, ErrCurrencyMismatch
		}
		subtotal += ln.LineTotalPaisa
		stock = append(stock, checkout.StockLine{VariantID: ln.VariantID, Qty: ln.Qty})
	}

	var out CreateResult
	err := checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		// Idempotency: same user + key returns the prior order.
		if in.UserID != nil && in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
			var existing Order
			e := tx.WithContext(ctx).
				First(&existing, "user_id = ? AND idempotency_key = ?", *in.UserID, *in.IdempotencyKey).Error
			if e == nil {
				out = CreateResult{OrderID: existing.ID, TotalPaisa: existing.TotalPaisa, Currency: existing.Currency, Idempotent: true}
				return nil
			}
			if !errors.Is(e, gorm.ErrRecordNotFound) {
				return e
			}
		}

		if err := checkout.DeductStockInTx(ctx, tx, stock); err != nil {
			return err
		}

		now := time.Now()
		o := Order{
			ID:                  uuid.NewString(),
			UserID:              in.UserID,
			GuestEmail:          in.GuestEmail,
			Status:              OrderStatusCreated,
			PaymentMethod:       in.PaymentMethod,
			Currency:            currency,
			SubtotalPaisa:       subtotal,
			ShippingPaisa:       in.ShippingPaisa,
			TaxPaisa:            in.TaxPaisa,
			TotalPaisa:          subtotal + in.ShippingPaisa + in.TaxPaisa,
			IdempotencyKey:      in.IdempotencyKey,
			ShippingAddressJSON: in.ShippingAddressJSON,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
			return err
		}

		for _, ln := range in.Lines {
			item := OrderItem{
				ID:             uuid.NewString(),
				OrderID:        o.ID,
				VariantID:      ln.VariantID,
				ProductName:    ln.ProductName,
				UnitPricePaisa: ln.UnitPricePaisa,
				Quantity:       ln.Qty,
				LineTotalPaisa: ln.LineTotalPaisa,
				Currency:       ln.Currency,
				CreatedAt:      now,
			}
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		}

		out = CreateResult{OrderID: o.ID, TotalPaisa: o.TotalPaisa, Currency: o.Currency}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	if !out.Idempotent {
		s.logger.InfoContext(ctx, "order created",
			"order_id", out.OrderID, "total_paisa", out.TotalPaisa, "method", in.PaymentMethod)
	}
	return out, nil
}
