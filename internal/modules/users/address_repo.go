package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/shared/apperr"
)

type AddressRepo struct {
	db *gorm.DB
}

func NewAddressRepo(db *gorm.DB) *AddressRepo {
	return &AddressRepo{db: db}
}

func (r *AddressRepo) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	var out []Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&out).Error
	return out, err
}

// Get returns the address only when it belongs to the user; anything else is a
// not-found, ownership is never leaked.
func (r *AddressRepo) Get(ctx context.Context, userID, addressID string) (*Address, error) {
	var a Address
	err := r.db.WithContext(ctx).
		First(&a, "id = ? AND user_id = ?", addressID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundErr("Address not found.")
		}
		return nil, err
	}
	return &a, nil
}

type AddressInput struct {
	Label         string
	RecipientName string
	Phone         string
	Line1         string
	Line2         *string
	City          string
	District      string
	PostalCode    *string
	IsDefault     bool
}

func (r *AddressRepo) Create(ctx context.Context, userID string, in AddressInput) (*Address, error) {
	if in.RecipientName == "" || in.Phone == "" || in.Line1 == "" || in.City == "" || in.District == "" {
		return nil, apperr.InvalidErr("Recipient name, phone, address line, city and district are required.", nil)
	}
	if in.Label == "" {
		in.Label = "Home"
	}

	now := time.Now()
	a := Address{
		ID:            uuid.NewString(),
		UserID:        userID,
		Label:         in.Label,
		RecipientName: in.RecipientName,
		Phone:         in.Phone,
		Line1:         in.Line1,
		Line2:         in.Line2,
		City:          in.City,
		District:      in.District,
		PostalCode:    in.PostalCode,
		IsDefault:     in.IsDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsDefault {
			if err := tx.Model(&Address{}).
				Where("user_id = ?", userID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AddressRepo) Update(ctx context.Context, userID, addressID string, in AddressInput) (*Address, error) {
	if _, err := r.Get(ctx, userID, addressID); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsDefault {
			if err := tx.Model(&Address{}).
				Where("user_id = ?", userID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Address{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Updates(map[string]any{
				"label":          in.Label,
				"recipient_name": in.RecipientName,
				"phone":          in.Phone,
				"line1":          in.Line1,
				"line2":          in.Line2,
				"city":           in.City,
				"district":       in.District,
				"postal_code":    in.PostalCode,
				"is_default":     in.IsDefault,
				"updated_at":     time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, addressID)
}

func (r *AddressRepo) Delete(ctx context.Context, userID, addressID string) error {
	res := r.db.WithContext(ctx).
		Delete(&Address{}, "id = ? AND user_id = ?", addressID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundErr("Address not found.")
	}
	return nil
}
