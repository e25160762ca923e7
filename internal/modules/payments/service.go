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

// Service owns the money-moving path. The pattern is two-phase: a first
// transaction locks the order and claims (or finds) the payment row, the
// gateway call happens OUTSIDE any transaction, and a second transaction
// records the outcome. Holding row locks across a 20s HTTP call would stall
// every other writer on the order.
type Service struct {
	db      *gorm.DB
	manager *Manager
	events  events.Producer
	logger  *slog.Logger
}

func NewService(db *gorm.DB, manager *Manager, producer events.Producer, logger *slog.Logger) *Service {
	if producer == nil {
		producer = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, manager: manager, events: producer, logger: logger}
}

type PayOrderInput struct {
	OrderID string
	UserID  *string
	Method  Method

	// Client token for retry-safe submission; scoped per order.
	IdempotencyKey string

	Customer *CustomerInfo
}

type PayOrderResult struct {
	PaymentID  string
	OrderID    string
	Method     Method
	Status     string
	PaymentURL string

	// Set for COD (synthetic) and Khalti (pidx) at initiation; eSewa gets its
	// refId only at callback time.
	ProviderRef string

	// OrderConfirmed is true when the order reached a final placed state in
	// this call (COD only; online methods confirm at verification).
	OrderConfirmed bool
}

// PayOrder starts payment collection for an order in status "created".
//
// COD completes synchronously: the payment row is marked succeeded and the
// order confirmed in the finalize transaction. Online methods leave the
// payment "initiated" with the provider reference stored for the later
// callback or webhook.
func (s *Service) PayOrder(ctx context.Context, in PayOrderInput) (PayOrderResult, error) {
	if _, err := ParseMethod(string(in.Method)); err != nil {
		return PayOrderResult{}, ErrUnknownMethod
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}

	// Phase 1: lock the order, gate on status, claim the payment row.
	var (
		order   orders.Order
		payment Payment
		reused  bool
	)
	err := checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		reused = false
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if in.UserID != nil && order.UserID != nil && *order.UserID != *in.UserID {
			return ErrForbidden
		}
		if order.Status != orders.OrderStatusCreated {
			return ErrOrderNotPayable
		}
		if order.PaymentMethod != string(in.Method) {
			return ErrOrderNotPayable
		}

		// Retry with the same key returns the existing attempt; a new key on a
		// still-payable order starts a fresh attempt (prior one abandoned).
		err := tx.WithContext(ctx).
			First(&payment, "order_id = ? AND idempotency_key = ?", order.ID, in.IdempotencyKey).Error
		if err == nil {
			reused = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		payment = Payment{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			Provider:       string(in.Method),
			Status:         StatusInitiated,
			AmountPaisa:    order.TotalPaisa,
			Currency:       order.Currency,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.WithContext(ctx).Create(&payment).Error
	})
	if err != nil {
		return PayOrderResult{}, err
	}

	if reused && payment.Status == StatusSucceeded {
		return PayOrderResult{
			PaymentID:      payment.ID,
			OrderID:        order.ID,
			Method:         in.Method,
			Status:         payment.Status,
			ProviderRef:    derefStr(payment.ProviderRef),
			OrderConfirmed: in.Method == MethodCOD,
		}, nil
	}

	// Phase 2: gateway call, no transaction open.
	init := s.manager.Initiate(ctx, InitiateConfig{
		Method:      in.Method,
		OrderID:     order.ID,
		AmountPaisa: order.TotalPaisa,
		ProductName: "Order " + order.ID,
		Customer:    in.Customer,
	})

	// Phase 3: record the outcome.
	res := PayOrderResult{
		PaymentID: payment.ID,
		OrderID:   order.ID,
		Method:    in.Method,
	}
	err = checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		now := time.Now()

		if !init.Success {
			return tx.WithContext(ctx).Model(&Payment{}).
				Where("id = ? AND status = ?", payment.ID, StatusInitiated).
				Updates(map[string]any{
					"status":        StatusFailed,
					"error_message": init.Error,
					"updated_at":    now,
				}).Error
		}

		updates := map[string]any{
			"provider_ref": init.TransactionID,
			"updated_at":   now,
		}
		if in.Method == MethodCOD {
			updates["status"] = StatusSucceeded
			if err := tx.WithContext(ctx).Model(&orders.Order{}).
				Where("id = ? AND status = ?", order.ID, orders.OrderStatusCreated).
				Updates(map[string]any{
					"status":       orders.OrderStatusConfirmed,
					"confirmed_at": now,
					"updated_at":   now,
				}).Error; err != nil {
				return err
			}
			if err := ensureFinancialEntry(ctx, tx, orders.FinancialEntry{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				Event:       "cod.confirmed",
				AmountPaisa: order.TotalPaisa,
				Currency:    order.Currency,
				RefType:     "payment",
				RefID:       payment.ID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", payment.ID).
			Updates(updates).Error
	})
	if err != nil {
		return PayOrderResult{}, err
	}

	if !init.Success {
		res.Status = StatusFailed
		s.logger.WarnContext(ctx, "payment initiation failed",
			"order_id", order.ID, "method", in.Method, "reason", init.Error)
		return res, nil
	}

	res.PaymentURL = init.PaymentURL
	res.ProviderRef = init.TransactionID
	if in.Method == MethodCOD {
		res.Status = StatusSucceeded
		res.OrderConfirmed = true
		s.events.PublishOrderCreated(ctx, events.OrderCreated{
			EventID:       uuid.NewString(),
			OrderID:       order.ID,
			UserID:        order.UserID,
			GuestEmail:    order.GuestEmail,
			PaymentMethod: string(MethodCOD),
			TotalPaisa:    order.TotalPaisa,
			Currency:      order.Currency,
			Timestamp:     time.Now(),
		})
	} else {
		res.Status = StatusInitiated
	}

	s.logger.InfoContext(ctx, "payment initiated",
		"order_id", order.ID, "payment_id", payment.ID, "method", in.Method, "status", res.Status)
	return res, nil
}

// ensureFinancialEntry appends a ledger row unless one with the same
// (order, event, ref) already exists. The ledger is append-only; idempotent
// retries must not double-count money.
func ensureFinancialEntry(ctx context.Context, tx *gorm.DB, entry orders.FinancialEntry) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&orders.FinancialEntry{}).
		Where("order_id = ? AND event = ? AND ref_type = ? AND ref_id = ?",
			entry.OrderID, entry.Event, entry.RefType, entry.RefID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
