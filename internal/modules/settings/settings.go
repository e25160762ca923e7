package settings

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StoreSettings is a single-row table (id=1) holding the authoritative pricing
// rules. The fallback constants below are used when the row cannot be read;
// they must approximate the real rules, never silently zero out the total.
type StoreSettings struct {
	ID int `gorm:"primaryKey"`

	Currency                   string `gorm:"type:char(3);not null;default:'NPR'"`
	TaxRateBps                 int    `gorm:"not null"` // basis points, 1300 = 13% VAT
	ShippingFlatPaisa          int64  `gorm:"not null"`
	FreeShippingThresholdPaisa int64  `gorm:"not null"`

	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (StoreSettings) TableName() string { return "store_settings" }

const (
	FallbackTaxRateBps        = 1300  // 13% VAT
	FallbackShippingFlatPaisa = 20000 // Rs 200 flat
	FallbackFreeShipThreshold = 0     // no free shipping in degraded mode
	FallbackCurrency          = "NPR"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Get(ctx context.Context) (StoreSettings, error) {
	var st StoreSettings
	err := s.db.WithContext(ctx).First(&st, "id = ?", 1).Error
	return st, err
}

// Defaults is the deterministic degraded-mode configuration used when the
// settings row is unreachable.
func Defaults() StoreSettings {
	return StoreSettings{
		ID:                         1,
		Currency:                   FallbackCurrency,
		TaxRateBps:                 FallbackTaxRateBps,
		ShippingFlatPaisa:          FallbackShippingFlatPaisa,
		FreeShippingThresholdPaisa: FallbackFreeShipThreshold,
	}
}
