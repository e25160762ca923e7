package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/cartcookie"
	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/http/validation"
	"hamropasal.com/app/internal/modules/cart"
	"hamropasal.com/app/internal/shared/apperr"
)

// CartHandler serves both cart backends behind one API: logged-in carts live
// in the database, guest carts in the signed cookie. Responses are identical,
// the client never knows which one it hit.
type CartHandler struct {
	Cart   *cart.Service
	Repo   *cart.Repo
	Cookie *cartcookie.Codec
}

func NewCartHandler(svc *cart.Service, repo *cart.Repo, cookie *cartcookie.Codec) *CartHandler {
	return &CartHandler{Cart: svc, Repo: repo, Cookie: cookie}
}

// GET /api/cart
func (h *CartHandler) Get(c *gin.Context) {
	lines, err := h.currentLines(c)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	summary, priced, err := h.Cart.Summary(c.Request.Context(), lines)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(priced))
	for _, ln := range priced {
		items = append(items, gin.H{
			"variant_id":       ln.VariantID,
			"product_name":     ln.ProductName,
			"product_slug":     ln.ProductSlug,
			"unit_price_paisa": ln.UnitPricePaisa,
			"qty":              ln.Qty,
			"line_total_paisa": ln.LineTotalPaisa,
			"currency":         ln.Currency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "summary": summary})
}

type cartItemRequest struct {
	VariantID string `json:"variant_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,gt=0"`
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}

	if cu, ok := middleware.CurrentUser(c); ok {
		crt, err := h.Repo.GetOrCreateUserCart(c.Request.Context(), cu.ID)
		if err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		if err := h.Repo.AddItem(c.Request.Context(), crt.ID, req.VariantID, req.Qty); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	} else {
		items, _ := h.Cookie.GetItems(c)
		merged := false
		for i := range items {
			if items[i].VariantID == req.VariantID {
				items[i].Qty += req.Qty
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, cartcookie.Item{VariantID: req.VariantID, Qty: req.Qty})
		}
		if err := h.Cookie.Set(c, items); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	}

	h.Get(c)
}

type cartQtyRequest struct {
	Qty int `json:"qty" binding:"required"`
}

// PATCH /api/cart/items/:variantID
func (h *CartHandler) UpdateItem(c *gin.Context) {
	variantID := c.Param("variantID")
	var req cartQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}

	if cu, ok := middleware.CurrentUser(c); ok {
		crt, err := h.Repo.GetOrCreateUserCart(c.Request.Context(), cu.ID)
		if err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		if err := h.Repo.UpdateItemQty(c.Request.Context(), crt.ID, variantID, req.Qty); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	} else {
		items, _ := h.Cookie.GetItems(c)
		out := items[:0]
		for _, it := range items {
			if it.VariantID == variantID {
				if req.Qty > 0 {
					it.Qty = req.Qty
					out = append(out, it)
				}
				continue
			}
			out = append(out, it)
		}
		if err := h.Cookie.Set(c, out); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	}

	h.Get(c)
}

// DELETE /api/cart/items/:variantID
func (h *CartHandler) RemoveItem(c *gin.Context) {
	variantID := c.Param("variantID")

	if cu, ok := middleware.CurrentUser(c); ok {
		crt, err := h.Repo.GetOrCreateUserCart(c.Request.Context(), cu.ID)
		if err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		if err := h.Repo.RemoveItem(c.Request.Context(), crt.ID, variantID); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	} else {
		items, _ := h.Cookie.GetItems(c)
		out := items[:0]
		for _, it := range items {
			if it.VariantID != variantID {
				out = append(out, it)
			}
		}
		if err := h.Cookie.Set(c, out); err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
	}

	h.Get(c)
}

func (h *CartHandler) currentLines(c *gin.Context) ([]cart.Line, error) {
	if cu, ok := middleware.CurrentUser(c); ok {
		lines, _, err := h.Cart.LinesFromUserCart(c.Request.Context(), cu.ID)
		return lines, err
	}
	items, _ := h.Cookie.GetItems(c)
	lines := make([]cart.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, cart.Line{VariantID: it.VariantID, Qty: it.Qty})
	}
	return lines, nil
}
