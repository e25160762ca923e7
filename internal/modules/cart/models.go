package cart

import (
	"time"

	"hamropasal.com/app/internal/modules/catalog"
)

type Cart struct {
	ID     string  `gorm:"type:char(36);primaryKey"`
	UserID *string `gorm:"type:char(36);index:ix_carts_user_id"`
	Status string  `gorm:"type:varchar(16);not null;default:'open'"`

	Items []CartItem `gorm:"foreignKey:CartID"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	CartID    string `gorm:"type:char(36);not null;index:ix_cart_items_cart_id"`
	VariantID string `gorm:"type:char(36);not null"`
	Quantity  int    `gorm:"not null"`

	Variant catalog.ProductVariant `gorm:"foreignKey:VariantID"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (CartItem) TableName() string { return "cart_items" }
