package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hamropasal.com/app/internal/events"
	"hamropasal.com/app/internal/modules/checkout"
	"hamropasal.com/app/internal/modules/orders"
)

const maxStoredPayload = 64 * 1024

// WebhookService processes asynchronous gateway notifications. Webhooks are
// the authoritative settlement channel when the customer never returns to the
// callback URL; they carry the same state transitions and must be safe under
// redelivery and reordering.
type WebhookService struct {
	db     *gorm.DB
	esewa  *Esewa
	khalti *Khalti
	events events.Producer
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB, esewa *Esewa, khalti *Khalti, producer events.Producer, logger *slog.Logger) *WebhookService {
	if producer == nil {
		producer = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{db: db, esewa: esewa, khalti: khalti, events: producer, logger: logger}
}

// webhookEnvelope is the common shape both gateways post.
type webhookEnvelope struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`

	OrderID     string `json:"order_id"`
	ProviderRef string `json:"provider_ref"`
	AmountPaisa int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason"`
}

// Process validates the signature, dedupes by (provider, event_id) and applies
// the event. Returns ErrDuplicateWebhook for redeliveries so the handler can
// answer 200 without reapplying.
func (s *WebhookService) Process(ctx context.Context, provider Method, sigHeader string, body []byte) error {
	if !s.verifySignature(provider, sigHeader, body) {
		return fmt.Errorf("%s webhook: %w", provider, ErrBadSignature)
	}

	var ev webhookEnvelope
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%s webhook: decode: %w", provider, err)
	}
	if ev.EventID == "" || ev.EventType == "" {
		return fmt.Errorf("%s webhook: missing event_id or event_type", provider)
	}

	if err := s.recordEvent(ctx, provider, ev, body); err != nil {
		return err
	}

	switch ev.EventType {
	case "payment.succeeded":
		return s.applyPaymentSucceeded(ctx, provider, ev)
	case "payment.failed":
		return s.applyPaymentFailed(ctx, provider, ev)
	case "refund.succeeded":
		return s.applyRefundSucceeded(ctx, provider, ev)
	case "refund.failed":
		return s.applyRefundFailed(ctx, provider, ev)
	default:
		// Unknown types are stored (for replay once supported) and acked.
		s.logger.WarnContext(ctx, "webhook event type ignored",
			"provider", provider, "event_type", ev.EventType, "event_id", ev.EventID)
		return nil
	}
}

func (s *WebhookService) verifySignature(provider Method, header string, body []byte) bool {
	switch provider {
	case MethodEsewa:
		return s.esewa != nil && s.esewa.VerifyWebhookSignature(header, body)
	case MethodKhalti:
		return s.khalti != nil && s.khalti.VerifyWebhookSignature(header, body)
	default:
		return false
	}
}

// recordEvent inserts the dedupe row. MySQL duplicate key (1062) means this
// exact event was processed before.
func (s *WebhookService) recordEvent(ctx context.Context, provider Method, ev webhookEnvelope, body []byte) error {
	payload := body
	if len(payload) > maxStoredPayload {
		payload = payload[:maxStoredPayload]
	}
	row := ProviderEvent{
		ID:        uuid.NewString(),
		Provider:  string(provider),
		EventID:   ev.EventID,
		EventType: ev.EventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrDuplicateWebhook
	}
	return err
}

func (s *WebhookService) applyPaymentSucceeded(ctx context.Context, provider Method, ev webhookEnvelope) error {
	settled := false
	var paymentID string
	err := checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		settled = false

		payment, err := lockPayment(ctx, tx, provider, ev.ProviderRef, ev.OrderID)
		if err != nil {
			return err
		}
		paymentID = payment.ID
		if payment.Status == StatusSucceeded {
			return nil
		}
		if ev.AmountPaisa > 0 && ev.AmountPaisa != payment.AmountPaisa {
			return fmt.Errorf("webhook amount mismatch: payment=%s expected=%d got=%d",
				payment.ID, payment.AmountPaisa, ev.AmountPaisa)
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
			Where("id = ? AND status = ?", payment.OrderID, orders.OrderStatusCreated).
			Updates(map[string]any{
				"status":     orders.OrderStatusPaid,
				"paid_at":    now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		if err := ensureFinancialEntry(ctx, tx, orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     payment.OrderID,
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
	if err != nil {
		return err
	}

	if settled {
		s.events.PublishPaymentSucceeded(ctx, events.PaymentSucceeded{
			EventID:     uuid.NewString(),
			OrderID:     ev.OrderID,
			PaymentID:   paymentID,
			Provider:    string(provider),
			AmountPaisa: ev.AmountPaisa,
			Currency:    ev.Currency,
			Timestamp:   time.Now(),
		})
		s.logger.InfoContext(ctx, "webhook settled payment",
			"provider", provider, "event_id", ev.EventID, "payment_id", paymentID)
	}
	return nil
}

func (s *WebhookService) applyPaymentFailed(ctx context.Context, provider Method, ev webhookEnvelope) error {
	return checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		payment, err := lockPayment(ctx, tx, provider, ev.ProviderRef, ev.OrderID)
		if err != nil {
			return err
		}
		// A payment that already succeeded stays succeeded; failure events
		// arriving late are stale.
		if payment.Status == StatusSucceeded {
			return nil
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ? AND status = ?", payment.ID, StatusInitiated).
			Updates(map[string]any{
				"status":        StatusFailed,
				"error_message": ev.Reason,
				"updated_at":    time.Now(),
			}).Error
	})
}

func (s *WebhookService) applyRefundSucceeded(ctx context.Context, provider Method, ev webhookEnvelope) error {
	return checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		payment, err := lockPayment(ctx, tx, provider, ev.ProviderRef, ev.OrderID)
		if err != nil {
			return err
		}
		if payment.Status != StatusSucceeded {
			return fmt.Errorf("refund for unsettled payment %s", payment.ID)
		}
		if ev.AmountPaisa <= 0 || ev.AmountPaisa > payment.AmountPaisa {
			return fmt.Errorf("refund amount out of range: payment=%s amount=%d", payment.ID, ev.AmountPaisa)
		}

		var order orders.Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", payment.OrderID).Error; err != nil {
			return err
		}
		if order.RefundedPaisa+ev.AmountPaisa > order.TotalPaisa {
			return fmt.Errorf("refund exceeds order total: order=%s", order.ID)
		}

		now := time.Now()
		refund := Refund{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			PaymentID:   payment.ID,
			Provider:    string(provider),
			ProviderRef: &ev.EventID,
			Status:      StatusSucceeded,
			AmountPaisa: ev.AmountPaisa,
			Currency:    payment.Currency,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if ev.Reason != "" {
			refund.Reason = &ev.Reason
		}
		if err := tx.WithContext(ctx).Create(&refund).Error; err != nil {
			return err
		}

		refunded := order.RefundedPaisa + ev.AmountPaisa
		status := orders.OrderStatusPartRefund
		updates := map[string]any{
			"refunded_paisa": refunded,
			"updated_at":     now,
		}
		if refunded == order.TotalPaisa {
			status = orders.OrderStatusRefunded
			updates["refunded_at"] = now
		}
		updates["status"] = status
		if err := tx.WithContext(ctx).Model(&orders.Order{}).
			Where("id = ?", order.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		return ensureFinancialEntry(ctx, tx, orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Event:       "refund.captured",
			AmountPaisa: -ev.AmountPaisa,
			Currency:    payment.Currency,
			RefType:     "refund",
			RefID:       refund.ID,
			CreatedAt:   now,
		})
	})
}

func (s *WebhookService) applyRefundFailed(ctx context.Context, provider Method, ev webhookEnvelope) error {
	s.logger.WarnContext(ctx, "refund failed at gateway",
		"provider", provider, "event_id", ev.EventID, "order_id", ev.OrderID, "reason", ev.Reason)
	return checkout.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		payment, err := lockPayment(ctx, tx, provider, ev.ProviderRef, ev.OrderID)
		if err != nil {
			return err
		}
		now := time.Now()
		refund := Refund{
			ID:          uuid.NewString(),
			OrderID:     payment.OrderID,
			PaymentID:   payment.ID,
			Provider:    string(provider),
			ProviderRef: &ev.EventID,
			Status:      StatusFailed,
			AmountPaisa: ev.AmountPaisa,
			Currency:    payment.Currency,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if ev.Reason != "" {
			refund.ErrorMessage = &ev.Reason
		}
		return tx.WithContext(ctx).Create(&refund).Error
	})
}

// lockPayment resolves the payment a webhook refers to, preferring the
// provider reference, falling back to the order's latest payment for that
// provider.
func lockPayment(ctx context.Context, tx *gorm.DB, provider Method, providerRef, orderID string) (Payment, error) {
	var payment Payment
	q := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})

	var err error
	if providerRef != "" {
		err = q.Where("provider = ? AND provider_ref = ?", string(provider), providerRef).
			Order("created_at DESC").First(&payment).Error
	} else if orderID != "" {
		err = q.Where("provider = ? AND order_id = ?", string(provider), orderID).
			Order("created_at DESC").First(&payment).Error
	} else {
		return Payment{}, ErrPaymentNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return payment, nil
}
