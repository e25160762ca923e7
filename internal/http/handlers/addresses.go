package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/http/validation"
	"hamropasal.com/app/internal/modules/users"
	"hamropasal.com/app/internal/shared/apperr"
)

type AddressHandler struct {
	Repo *users.AddressRepo
}

func NewAddressHandler(repo *users.AddressRepo) *AddressHandler {
	return &AddressHandler{Repo: repo}
}

type addressRequest struct {
	Label         string  `json:"label"`
	RecipientName string  `json:"recipient_name" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	Line1         string  `json:"line1" binding:"required"`
	Line2         *string `json:"line2"`
	City          string  `json:"city" binding:"required"`
	District      string  `json:"district" binding:"required"`
	PostalCode    *string `json:"postal_code"`
	IsDefault     bool    `json:"is_default"`
}

func (r addressRequest) input() users.AddressInput {
	return users.AddressInput{
		Label:         r.Label,
		RecipientName: r.RecipientName,
		Phone:         r.Phone,
		Line1:         r.Line1,
		Line2:         r.Line2,
		City:          r.City,
		District:      r.District,
		PostalCode:    r.PostalCode,
		IsDefault:     r.IsDefault,
	}
}

func addressJSON(a users.Address) gin.H {
	return gin.H{
		"id":             a.ID,
		"label":          a.Label,
		"recipient_name": a.RecipientName,
		"phone":          a.Phone,
		"line1":          a.Line1,
		"line2":          a.Line2,
		"city":           a.City,
		"district":       a.District,
		"postal_code":    a.PostalCode,
		"is_default":     a.IsDefault,
	}
}

// GET /api/addresses
func (h *AddressHandler) List(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)
	list, err := h.Repo.ListByUser(c.Request.Context(), cu.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, a := range list {
		out = append(out, addressJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"addresses": out})
}

// POST /api/addresses
func (h *AddressHandler) Create(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}
	a, err := h.Repo.Create(c.Request.Context(), cu.ID, req.input())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": addressJSON(*a)})
}

// PUT /api/addresses/:id
func (h *AddressHandler) Update(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}
	a, err := h.Repo.Update(c.Request.Context(), cu.ID, c.Param("id"), req.input())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addressJSON(*a)})
}

// DELETE /api/addresses/:id
func (h *AddressHandler) Delete(c *gin.Context) {
	cu, _ := middleware.CurrentUser(c)
	if err := h.Repo.Delete(c.Request.Context(), cu.ID, c.Param("id")); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
