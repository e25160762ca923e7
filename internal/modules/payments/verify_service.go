package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hamropasal.com/app/internal/events"
	"hamropasal.com/app/internal/modules/checkout"
	"hamropasal.com/app/internal/modules/orders"
)

// VerifyService handles the return leg of online payments: the customer comes
// back from the gateway with a transaction reference, and only a successful
// server-side verification against the gateway may mark the order paid.
// Callback parameters are untrusted input.
type VerifyService struct {
	db      *gorm.DB
	manager *Manager
	events  events.Producer
	logger  *slog.Logger
}

func NewVerifyService(db *gorm.DB, manager *Manager, producer events.Producer, logger *slog.Logger) *VerifyService {
	if producer == nil {
		producer = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyService{db: db, manager: manager, events: producer, logger: logger}
}

type CallbackInput struct {
	Method Method

	// TransactionID is the provider reference from the callback: eSewa's oid
	// (our pid) or Khalti's pidx.
	TransactionID string

	// Provider-specific query params (eSewa: oid/amt/refId, Khalti: pidx,
	// status hints).
	Params map[string]string
}

type CallbackResult struct {
	OrderID   string
	PaymentID string
	Status    string
	Paid      bool

	// AlreadyPaid marks a repeated callback for an order that was settled
	// earlier; the caller should treat it as success.
	AlreadyPaid bool
}

// HandleCallback verifies a gateway return and settles the payment. The
// gateway call runs before any transaction; the settle transaction re-checks
// state under lock, so a concurrent webhook and callback cannot double-settle.
func (s *VerifyService) HandleCallback(ctx context.Context, in CallbackInput) (CallbackResult, error) {
	if !IsOnlineMethod(in.Method) {
		return CallbackResult{}, ErrUnknownMethod
	}
	if in.TransactionID == "" {
		return CallbackResult{}, ErrPaymentNotFound
	}

	payment, order, err := s.findByProviderRef(ctx, in.Method, in.TransactionID)
	if err != nil {
		return CallbackResult{}, err
	}

	res := CallbackResult{OrderID: order.ID, PaymentID: payment.ID}
	if payment.Status == StatusSucceeded {
		res.Status = StatusSucceeded
		res.Paid = true
		res.AlreadyPaid = true
		return res, nil
	}

	extra := map[string]string{"order_id": order.ID}
	for k, v := range in.Params {
		extra[k] = v
	}
	verification := s.manager.Verify(ctx, in.Method, in.TransactionID, extra)

	if !verification.Success {
		now := time.Now()
		err := s.db.WithContext(ctx).Model(&Payment{}).
			Where("id = ? AND status = ?", payment.ID, StatusInitiated).
			Updates(map[string]any{
				"status":        StatusFailed,
				"error_message": verification.Error,
				"updated_at":    now,
			}).Error
		if err != nil {
			return CallbackResult{}, err
		}
		res.Status = StatusFailed
		s.logger.WarnContext(ctx, "payment verification failed",
			"order_id", order.ID, "method", in.Method, "ref", in.TransactionID, "reason", verification.Error)
		return res, nil
	}

	// The gateway confirmed, but only for the amount it reports. A verified
	// payment for the wrong amount stays unsettled and is flagged for review.
	if verification.AmountPaisa > 0 && verification.AmountPaisa != order.TotalPaisa {
		s.logger.ErrorContext(ctx, "verified amount mismatch",
			"order_id", order.ID, "expected_paisa", order.TotalPaisa, "got_paisa", verification.AmountPaisa)
		return CallbackResult{}, ErrAmountMismatch
	}

	settled, err := s.settle(ctx, payment.ID, order.ID)
	if err != nil {
		return CallbackResult{}, err
	}
	res.Status = StatusSucceeded
	res.Paid = true
	res.AlreadyPaid = !settled
	if settled {
		s.events.PublishPaymentSucceeded(ctx, events.PaymentSucceeded{
			EventID:     uuid.NewString(),
			OrderID:     order.ID,
			PaymentID:   payment.ID,
			Provider:    string(in.Method),
			AmountPaisa: order.TotalPaisa,
			Currency:    order.Currency,
			Timestamp:   time.Now(),
		})
		s.logger.InfoContext(ctx, "payment verified and settled",
			"order_id", order.ID, "payment_id", payment.ID, "method", in.Method)
	}
	return res, nil
}

func (s *VerifyService) findByProviderRef(ctx context.Context, method Method, ref string) (Payment, orders.Order, error) {
	var payment Payment
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", string(method), ref).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, orders.Order{}, ErrPaymentNotFound
		}
		return Payment{}, orders.Order{}, err
	}

	var order orders.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", payment.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, orders.Order{}, ErrOrderNotFound
		}
		return Payment{}, orders.Order{}, err
	}
	return payment, order, nil
}

// settle marks the payment succeeded and the order paid, appending the ledger
// row. Returns false when another path settled first.
func (s *VerifyService) settle(ctx context.Context, paymentID, orderID string) (bool, error) {
	settled := false
	err := checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		settled = false

		var payment Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if payment.Status == StatusSucceeded {
			return nil
		}

		now := time.Now()
		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]any{
				"status":        StatusSucceeded,
				"error_message": nil,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&orders.Order{}).
			Where("id = ? AND status = ?", orderID, orders.OrderStatusCreated).
			Updates(map[string]any{
				"status":     orders.OrderStatusPaid,
				"paid_at":    now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		if err := ensureFinancialEntry(ctx, tx, orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			Event:       "payment.captured",
			AmountPaisa: payment.AmountPaisa,
			Currency:    payment.Currency,
			RefType:     "payment",
			RefID:       payment.ID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		settled = true
		return nil
	})
	return settled, err
}
