package catalog

import "time"

type Product struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Slug      string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_products_slug"`
	BrandID   *string   `gorm:"type:char(36);index:ix_products_brand_id"`
	Active    bool      `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Product) TableName() string { return "products" }

type ProductVariant struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ProductID string `gorm:"type:char(36);not null;index:ix_product_variants_product_id"`

	SKU        string `gorm:"type:varchar(64);not null;uniqueIndex:ux_product_variants_sku"`
	PricePaisa int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null;default:'NPR'"`
	Stock      int    `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (ProductVariant) TableName() string { return "product_variants" }
