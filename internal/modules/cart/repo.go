package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetOrCreateUserCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where(Cart{UserID: &userID, Status: "open"}).
		Attrs(Cart{ID: uuid.NewString()}).
		FirstOrCreate(&c).Error
	return c, err
}

func (r *Repo) CreateGuestCart(ctx context.Context) (Cart, error) {
	c := Cart{ID: uuid.NewString(), Status: "open"}
	err := r.db.WithContext(ctx).Create(&c).Error
	return c, err
}

func (r *Repo) GetWithItems(ctx context.Context, cartID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Variant").
		First(&c, "id = ?", cartID).Error
	return c, err
}

// AddItem upserts: an existing (cart, variant) row gets its quantity bumped.
func (r *Repo) AddItem(ctx context.Context, cartID, variantID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	now := time.Now()
	item := CartItem{
		ID:        uuid.NewString(),
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("quantity + ?", qty), "updated_at": now}),
		}).
		Create(&item).Error
}

func (r *Repo) UpdateItemQty(ctx context.Context, cartID, variantID string, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, cartID, variantID)
	}
	return r.db.WithContext(ctx).
		Model(&CartItem{}).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now()}).Error
}

func (r *Repo) RemoveItem(ctx context.Context, cartID, variantID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Delete(&CartItem{}).Error
}

func (r *Repo) Clear(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}
