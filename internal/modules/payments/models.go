package payments

import "time"

const (
	StatusInitiated = "initiated"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Payment struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	OrderID string `gorm:"type:char(36);not null;index:ix_payments_order_id;uniqueIndex:ux_payments_order_idem,priority:1"`

	Provider    string  `gorm:"type:varchar(16);not null"`
	ProviderRef *string `gorm:"type:varchar(128);index:ix_payments_provider_ref"`

	Status       string  `gorm:"type:varchar(32);not null"`
	AmountPaisa  int64   `gorm:"not null"`
	Currency     string  `gorm:"type:char(3);not null"`
	ErrorMessage *string `gorm:"type:varchar(255)"`

	IdempotencyKey string `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_order_idem,priority:2"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Payment) TableName() string { return "payments" }

type Refund struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	OrderID   string `gorm:"type:char(36);not null;index:ix_refunds_order_id"`
	PaymentID string `gorm:"type:char(36);not null;index:ix_refunds_payment_id"`

	Provider    string  `gorm:"type:varchar(16);not null"`
	ProviderRef *string `gorm:"type:varchar(128)"`

	Status      string `gorm:"type:varchar(32);not null"`
	AmountPaisa int64  `gorm:"not null"`
	Currency    string `gorm:"type:char(3);not null"`

	Reason       *string `gorm:"type:varchar(255)"`
	ErrorMessage *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Refund) TableName() string { return "refunds" }

// ProviderEvent dedupes inbound webhooks: the unique (provider, event_id)
// index makes the second delivery a no-op insert conflict.
type ProviderEvent struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Provider string `gorm:"type:varchar(16);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID  string `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`

	EventType string `gorm:"type:varchar(64);not null"`
	Payload   []byte `gorm:"type:mediumblob"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (ProviderEvent) TableName() string { return "provider_events" }
