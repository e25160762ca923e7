package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/shared/currency"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// EnqueueInTx inserts an outbox row inside the caller's transaction.
func EnqueueInTx(tx *gorm.DB, toEmail, toName, subject, textBody string) error {
	now := time.Now()
	row := Outbox{
		ID:        uuid.NewString(),
		ToEmail:   toEmail,
		ToName:    toName,
		Subject:   subject,
		TextBody:  textBody,
		Status:    OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Create(&row).Error
}

type OrderConfirmationInput struct {
	ToEmail string
	ToName  string

	OrderID       string
	TotalPaisa    int64
	Currency      string
	PaymentMethod string
}

// EnqueueOrderConfirmation queues the plain-text confirmation mail.
func (s *Service) EnqueueOrderConfirmation(ctx context.Context, in OrderConfirmationInput) error {
	name := in.ToName
	if name == "" {
		name = "customer"
	}
	subject := fmt.Sprintf("Order confirmation #%s", in.OrderID)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour order #%s has been placed.\nTotal: %s\nPayment method: %s\n\nThank you for shopping with us.\n",
		name, in.OrderID, currency.FormatPaisa(in.TotalPaisa, in.Currency), in.PaymentMethod)

	return EnqueueInTx(s.db.WithContext(ctx), in.ToEmail, name, subject, body)
}
