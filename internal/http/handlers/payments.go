package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/cartcookie"
	"hamropasal.com/app/internal/modules/cart"
	"hamropasal.com/app/internal/modules/email"
	"hamropasal.com/app/internal/modules/orders"
	"hamropasal.com/app/internal/modules/payments"
	"hamropasal.com/app/internal/modules/users"
)

// PaymentHandler terminates the gateway redirect. The browser lands here with
// whatever the gateway put in the query string; nothing in it is trusted until
// VerifyService has asked the gateway directly.
type PaymentHandler struct {
	Verify     *payments.VerifyService
	Orders     *orders.Repo
	Users      *users.Service
	CartRepo   *cart.Repo
	CartSvc    *cart.Service
	Cookie     *cartcookie.Codec
	Email      *email.Service
	Logger     *slog.Logger
	SuccessURL string
	FailureURL string
}

// GET /api/payments/:provider/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	method, err := payments.ParseMethod(c.Param("provider"))
	if err != nil || !payments.IsOnlineMethod(method) {
		h.redirectFailure(c, "unknown-provider")
		return
	}

	params := map[string]string{}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	txnID := ""
	switch method {
	case payments.MethodEsewa:
		txnID = params["oid"]
	case payments.MethodKhalti:
		txnID = params["pidx"]
	}

	res, err := h.Verify.HandleCallback(c.Request.Context(), payments.CallbackInput{
		Method:        method,
		TransactionID: txnID,
		Params:        params,
	})
	if err != nil {
		reason := "verification-error"
		switch {
		case errors.Is(err, payments.ErrPaymentNotFound):
			reason = "unknown-payment"
		case errors.Is(err, payments.ErrAmountMismatch):
			reason = "amount-mismatch"
		}
		h.Logger.WarnContext(c.Request.Context(), "payment callback rejected",
			"provider", method, "txn", txnID, "err", err)
		h.redirectFailure(c, reason)
		return
	}

	if !res.Paid {
		h.redirectFailure(c, "not-verified")
		return
	}

	if !res.AlreadyPaid {
		h.afterPaid(c, res.OrderID)
	}
	h.redirectSuccess(c, res.OrderID)
}

// afterPaid clears the buyer's cart and queues the confirmation mail. Both are
// best-effort; the payment is already settled.
func (h *PaymentHandler) afterPaid(c *gin.Context, orderID string) {
	ctx := c.Request.Context()
	o, _, err := h.Orders.GetWithItems(ctx, orderID)
	if err != nil {
		h.Logger.ErrorContext(ctx, "order load after settle failed", "order_id", orderID, "err", err)
		return
	}

	if o.UserID != nil {
		if _, cartID, err := h.CartSvc.LinesFromUserCart(ctx, *o.UserID); err == nil && cartID != "" {
			if err := h.CartRepo.Clear(ctx, cartID); err != nil {
				h.Logger.ErrorContext(ctx, "cart clear failed", "cart_id", cartID, "err", err)
			}
		}
	} else {
		h.Cookie.Clear(c)
	}

	toEmail, toName := h.orderContact(ctx, o)
	if h.Email != nil && toEmail != "" {
		err := h.Email.EnqueueOrderConfirmation(ctx, email.OrderConfirmationInput{
			ToEmail:       toEmail,
			ToName:        toName,
			OrderID:       o.ID,
			TotalPaisa:    o.TotalPaisa,
			Currency:      o.Currency,
			PaymentMethod: o.PaymentMethod,
		})
		if err != nil {
			h.Logger.ErrorContext(ctx, "confirmation enqueue failed", "order_id", orderID, "err", err)
		}
	}
}

func (h *PaymentHandler) redirectSuccess(c *gin.Context, orderID string) {
	c.Redirect(http.StatusFound, h.SuccessURL+"?order_id="+url.QueryEscape(orderID))
}

func (h *PaymentHandler) redirectFailure(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.FailureURL+"?reason="+url.QueryEscape(reason))
}

// GET /api/payment-methods
func (h *PaymentHandler) Methods(c *gin.Context) {
	out := make([]gin.H, 0, 3)
	for _, m := range []payments.Method{payments.MethodEsewa, payments.MethodKhalti, payments.MethodCOD} {
		out = append(out, gin.H{
			"id":     string(m),
			"name":   payments.MethodDisplayName(m),
			"icon":   payments.MethodIcon(m),
			"online": payments.IsOnlineMethod(m),
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": out})
}

func (h *PaymentHandler) orderContact(ctx context.Context, o orders.Order) (string, string) {
	if o.GuestEmail != nil && *o.GuestEmail != "" {
		return *o.GuestEmail, ""
	}
	if o.UserID != nil && h.Users != nil {
		if u, err := h.Users.GetByID(ctx, *o.UserID); err == nil {
			return u.Email, u.DisplayName()
		}
	}
	return "", ""
}
