package orders

import (
	"time"

	"gorm.io/datatypes"
)

// Order status lifecycle:
//
//	created   -> awaiting online payment (eSewa/Khalti redirect pending)
//	confirmed -> COD order placed; funds collected on delivery
//	paid      -> online payment verified
//	partially_refunded / refunded -> via provider webhooks
const (
	OrderStatusCreated    = "created"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusPaid       = "paid"
	OrderStatusPartRefund = "partially_refunded"
	OrderStatusRefunded   = "refunded"
)

type Order struct {
	ID         string  `gorm:"type:char(36);primaryKey"`
	UserID     *string `gorm:"type:char(36);index:ix_orders_user_id"`
	GuestEmail *string `gorm:"type:varchar(255);index:ix_orders_guest_email"`

	Status        string `gorm:"type:varchar(32);not null"`
	PaymentMethod string `gorm:"type:varchar(16);not null"`

	Currency      string `gorm:"type:char(3);not null"`
	SubtotalPaisa int64  `gorm:"not null"`
	ShippingPaisa int64  `gorm:"not null"`
	TaxPaisa      int64  `gorm:"not null"`
	TotalPaisa    int64  `gorm:"not null"`
	RefundedPaisa int64  `gorm:"not null;default:0"`

	// Dedupe for double submission: unique per user.
	IdempotencyKey *string `gorm:"type:varchar(64);uniqueIndex:ux_orders_user_idem,priority:2"`

	// Address snapshot captured at checkout; not a long-lived entity.
	ShippingAddressJSON datatypes.JSON `gorm:"type:json;not null"`

	PaidAt      *time.Time `gorm:"type:datetime(3)"`
	ConfirmedAt *time.Time `gorm:"type:datetime(3)"`
	RefundedAt  *time.Time `gorm:"type:datetime(3)"`
	CreatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	UpdatedAt   time.Time  `gorm:"type:datetime(3);not null"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	OrderID string `gorm:"type:char(36);not null;index:ix_order_items_order_id"`

	VariantID      string `gorm:"type:char(36);not null"`
	ProductName    string `gorm:"type:varchar(255);not null"`
	UnitPricePaisa int64  `gorm:"not null"`
	Quantity       int    `gorm:"not null"`
	LineTotalPaisa int64  `gorm:"not null"`
	Currency       string `gorm:"type:char(3);not null"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// FinancialEntry is an append-only ledger row. Positive amounts are money in
// (payment captured), negative are money out (refunds).
type FinancialEntry struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	OrderID     string    `gorm:"type:char(36);not null;index:ix_financial_entries_order_id"`
	Event       string    `gorm:"type:varchar(64);not null"`
	AmountPaisa int64     `gorm:"not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	RefType     string    `gorm:"type:varchar(32);not null"`
	RefID       string    `gorm:"type:char(36);not null"`
	CreatedAt   time.Time `gorm:"type:datetime(3);not null"`
}

func (FinancialEntry) TableName() string { return "financial_entries" }
