package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/modules/catalog"
	"hamropasal.com/app/internal/shared/apperr"
	"hamropasal.com/app/internal/shared/currency"
)

type ProductsHandler struct {
	Repo *catalog.Repo
}

func NewProductsHandler(repo *catalog.Repo) *ProductsHandler {
	return &ProductsHandler{Repo: repo}
}

// GET /api/products
func (h *ProductsHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "24"))

	res, err := h.Repo.List(c.Request.Context(), catalog.ListParams{
		Query:    c.Query("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, productJSON(it))
	}
	c.JSON(http.StatusOK, gin.H{"products": items, "total": res.Total})
}

// GET /api/products/:slug
func (h *ProductsHandler) Get(c *gin.Context) {
	res, err := h.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": productJSON(res)})
}

func productJSON(p catalog.ProductWithVariants) gin.H {
	variants := make([]gin.H, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, gin.H{
			"id":            v.ID,
			"sku":           v.SKU,
			"price_paisa":   v.PricePaisa,
			"price_display": currency.FormatPaisa(v.PricePaisa, v.Currency),
			"currency":      v.Currency,
			"in_stock":      v.Stock > 0,
		})
	}
	return gin.H{
		"id":       p.Product.ID,
		"name":     p.Product.Name,
		"slug":     p.Product.Slug,
		"variants": variants,
	}
}
