package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/modules/orders"
	"hamropasal.com/app/internal/shared/apperr"
	"hamropasal.com/app/internal/shared/currency"
)

type OrdersHandler struct {
	Repo *orders.Repo
}

func NewOrdersHandler(repo *orders.Repo) *OrdersHandler {
	return &OrdersHandler{Repo: repo}
}

// GET /api/orders
func (h *OrdersHandler) List(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	res, err := h.Repo.ListByUser(c.Request.Context(), orders.ListByUserParams{
		UserID:   cu.ID,
		Page:     page,
		PageSize: size,
		Status:   c.Query("status"),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, gin.H{
			"id":             it.Order.ID,
			"status":         it.Order.Status,
			"payment_method": it.Order.PaymentMethod,
			"total_paisa":    it.Order.TotalPaisa,
			"total_display":  currency.FormatPaisa(it.Order.TotalPaisa, it.Order.Currency),
			"currency":       it.Order.Currency,
			"items_count":    it.Count,
			"created_at":     it.Order.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": items, "total": res.Total})
}

// GET /api/orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)
	id := c.Param("id")

	o, items, err := h.Repo.GetWithItems(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if o.UserID == nil || *o.UserID != cu.ID {
		// not-found, not forbidden: order ids must not be probeable
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		return
	}

	lines := make([]gin.H, 0, len(items))
	for _, it := range items {
		lines = append(lines, gin.H{
			"variant_id":       it.VariantID,
			"product_name":     it.ProductName,
			"unit_price_paisa": it.UnitPricePaisa,
			"qty":              it.Quantity,
			"line_total_paisa": it.LineTotalPaisa,
		})
	}

	var addr map[string]any
	_ = json.Unmarshal(o.ShippingAddressJSON, &addr)

	c.JSON(http.StatusOK, gin.H{
		"order": gin.H{
			"id":               o.ID,
			"status":           o.Status,
			"payment_method":   o.PaymentMethod,
			"currency":         o.Currency,
			"subtotal_paisa":   o.SubtotalPaisa,
			"shipping_paisa":   o.ShippingPaisa,
			"tax_paisa":        o.TaxPaisa,
			"total_paisa":      o.TotalPaisa,
			"total_display":    currency.FormatPaisa(o.TotalPaisa, o.Currency),
			"refunded_paisa":   o.RefundedPaisa,
			"shipping_address": addr,
			"paid_at":          o.PaidAt,
			"confirmed_at":     o.ConfirmedAt,
			"created_at":       o.CreatedAt,
			"items":            lines,
		},
	})
}
