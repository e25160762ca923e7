package email

import "time"

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// Outbox queues mail in the same database as the order rows, so enqueueing can
// join the order transaction. A separate worker drains it; SMTP being down
// never blocks a checkout.
type Outbox struct {
	ID string `gorm:"type:char(36);primaryKey"`

	ToEmail string `gorm:"type:varchar(255);not null"`
	ToName  string `gorm:"type:varchar(255);not null"`

	Subject  string `gorm:"type:varchar(255);not null"`
	TextBody string `gorm:"type:text;not null"`

	Status    string     `gorm:"type:varchar(16);not null;index:ix_email_outbox_status"`
	Attempts  int        `gorm:"not null;default:0"`
	LastError *string    `gorm:"type:varchar(255)"`
	SentAt    *time.Time `gorm:"type:datetime(3)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Outbox) TableName() string { return "email_outbox" }
