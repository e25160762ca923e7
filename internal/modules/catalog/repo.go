package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"hamropasal.com/app/internal/shared/apperr"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type ListParams struct {
	Query    string
	Page     int
	PageSize int
}

type ProductWithVariants struct {
	Product  Product
	Variants []ProductVariant
}

type ListResult struct {
	Items []ProductWithVariants
	Total int64
}

func (r *Repo) List(ctx context.Context, in ListParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 24
	}

	q := r.db.WithContext(ctx).Model(&Product{}).Where("active = ?", true)
	if s := strings.TrimSpace(in.Query); s != "" {
		q = q.Where("name LIKE ?", "%"+s+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var rows []Product
	if err := q.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return ListResult{}, err
	}

	items := make([]ProductWithVariants, 0, len(rows))
	for _, p := range rows {
		var variants []ProductVariant
		if err := r.db.WithContext(ctx).
			Order("price_paisa ASC").
			Find(&variants, "product_id = ?", p.ID).Error; err != nil {
			return ListResult{}, err
		}
		items = append(items, ProductWithVariants{Product: p, Variants: variants})
	}
	return ListResult{Items: items, Total: total}, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (ProductWithVariants, error) {
	var p Product
	err := r.db.WithContext(ctx).First(&p, "slug = ? AND active = ?", slug, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductWithVariants{}, apperr.NotFoundErr("Product not found.")
		}
		return ProductWithVariants{}, err
	}

	var variants []ProductVariant
	if err := r.db.WithContext(ctx).
		Order("price_paisa ASC").
		Find(&variants, "product_id = ?", p.ID).Error; err != nil {
		return ProductWithVariants{}, err
	}
	return ProductWithVariants{Product: p, Variants: variants}, nil
}
