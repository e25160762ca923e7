package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/http/cartcookie"
	"hamropasal.com/app/internal/http/middleware"
	"hamropasal.com/app/internal/http/validation"
	"hamropasal.com/app/internal/modules/cart"
	"hamropasal.com/app/internal/modules/checkout"
	"hamropasal.com/app/internal/modules/email"
	"hamropasal.com/app/internal/modules/orders"
	"hamropasal.com/app/internal/modules/payments"
	"hamropasal.com/app/internal/modules/users"
	"hamropasal.com/app/internal/shared/apperr"
)

// CheckoutHandler drives the placement flow: price the cart, snapshot the
// address, create the order, start payment collection. COD finishes here; for
// online methods the cart survives until the gateway confirms, so an abandoned
// redirect loses nothing.
type CheckoutHandler struct {
	Cart      *cart.Service
	CartRepo  *cart.Repo
	Cookie    *cartcookie.Codec
	Addresses *users.AddressRepo
	Orders    *orders.Service
	Payments  *payments.Service
	Email     *email.Service
	Logger    *slog.Logger
}

type checkoutAddress struct {
	RecipientName string  `json:"recipient_name" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	Line1         string  `json:"line1" binding:"required"`
	Line2         *string `json:"line2"`
	City          string  `json:"city" binding:"required"`
	District      string  `json:"district" binding:"required"`
	PostalCode    *string `json:"postal_code"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=esewa khalti cod"`

	AddressID *string          `json:"address_id"`
	Address   *checkoutAddress `json:"address"`

	GuestEmail     *string `json:"guest_email"`
	IdempotencyKey *string `json:"idempotency_key"`
}

// POST /api/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", fields))
		return
	}
	method, err := payments.ParseMethod(req.PaymentMethod)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Unknown payment method.", nil))
		return
	}

	cu, loggedIn := middleware.CurrentUser(c)
	if !loggedIn && (req.GuestEmail == nil || *req.GuestEmail == "") {
		middleware.Fail(c, apperr.InvalidErr("An email is required for guest checkout.",
			map[string]string{"guest_email": "required"}))
		return
	}

	addrJSON, customer, err := h.resolveAddress(c, cu, loggedIn, req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	lines, userCartID, err := h.resolveLines(c, cu, loggedIn)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	summary, priced, err := h.Cart.Summary(c.Request.Context(), lines)
	if err != nil {
		if errors.Is(err, cart.ErrMixedCurrency) {
			middleware.Fail(c, apperr.InvalidErr("Cart contains items in different currencies.", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if len(priced) == 0 {
		middleware.Fail(c, apperr.InvalidErr("Your cart is empty.", nil))
		return
	}

	var userID *string
	if loggedIn {
		userID = &cu.ID
	}
	created, err := h.Orders.CreateFromCart(c.Request.Context(), orders.CreateFromCartInput{
		Lines:               priced,
		UserID:              userID,
		GuestEmail:          req.GuestEmail,
		IdempotencyKey:      req.IdempotencyKey,
		PaymentMethod:       string(method),
		ShippingPaisa:       summary.ShippingPaisa,
		TaxPaisa:            summary.TaxPaisa,
		ShippingAddressJSON: addrJSON,
	})
	if err != nil {
		middleware.Fail(c, mapOrderError(err))
		return
	}

	if loggedIn && customer.Email == "" {
		customer.Email = cu.Email
	}
	if !loggedIn && req.GuestEmail != nil {
		customer.Email = *req.GuestEmail
	}

	payKey := randHex(16)
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		payKey = *req.IdempotencyKey
	}
	pay, err := h.Payments.PayOrder(c.Request.Context(), payments.PayOrderInput{
		OrderID:        created.OrderID,
		UserID:         userID,
		Method:         method,
		IdempotencyKey: payKey,
		Customer:       &customer,
	})
	if err != nil {
		middleware.Fail(c, mapPaymentError(err))
		return
	}

	resp := gin.H{
		"order_id":    created.OrderID,
		"total_paisa": created.TotalPaisa,
		"currency":    created.Currency,
		"summary":     summary,
		"payment": gin.H{
			"method": string(method),
			"status": pay.Status,
		},
	}

	if pay.OrderConfirmed {
		// Order placed; only now is the cart destroyed.
		h.clearCart(c, loggedIn, userCartID)
		h.enqueueConfirmation(c, customer, created, string(method))
		resp["status"] = "order_placed"
		c.JSON(http.StatusCreated, resp)
		return
	}

	if pay.Status == payments.StatusFailed {
		resp["status"] = "payment_failed"
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	// Online flow: hand back the redirect target, keep the cart.
	resp["status"] = "payment_pending"
	resp["payment"].(gin.H)["payment_url"] = pay.PaymentURL
	resp["payment"].(gin.H)["transaction_id"] = pay.ProviderRef
	c.JSON(http.StatusCreated, resp)
}

func (h *CheckoutHandler) resolveAddress(c *gin.Context, cu middleware.ContextUser, loggedIn bool, req checkoutRequest) ([]byte, payments.CustomerInfo, error) {
	var customer payments.CustomerInfo

	if req.AddressID != nil && *req.AddressID != "" {
		if !loggedIn {
			return nil, customer, apperr.UnauthorizedErr("Sign in to use a saved address.")
		}
		addr, err := h.Addresses.Get(c.Request.Context(), cu.ID, *req.AddressID)
		if err != nil {
			return nil, customer, err
		}
		customer.Name = addr.RecipientName
		customer.Phone = addr.Phone
		raw, err := json.Marshal(gin.H{
			"recipient_name": addr.RecipientName,
			"phone":          addr.Phone,
			"line1":          addr.Line1,
			"line2":          addr.Line2,
			"city":           addr.City,
			"district":       addr.District,
			"postal_code":    addr.PostalCode,
		})
		if err != nil {
			return nil, customer, apperr.Wrap(err)
		}
		return raw, customer, nil
	}

	if req.Address == nil {
		return nil, customer, apperr.InvalidErr("Select or enter a shipping address.",
			map[string]string{"address": "required"})
	}
	a := req.Address
	customer.Name = a.RecipientName
	customer.Phone = a.Phone
	raw, err := json.Marshal(gin.H{
		"recipient_name": a.RecipientName,
		"phone":          a.Phone,
		"line1":          a.Line1,
		"line2":          a.Line2,
		"city":           a.City,
		"district":       a.District,
		"postal_code":    a.PostalCode,
	})
	if err != nil {
		return nil, customer, apperr.Wrap(err)
	}
	return raw, customer, nil
}

func (h *CheckoutHandler) resolveLines(c *gin.Context, cu middleware.ContextUser, loggedIn bool) ([]cart.Line, string, error) {
	if loggedIn {
		return h.Cart.LinesFromUserCart(c.Request.Context(), cu.ID)
	}
	items, _ := h.Cookie.GetItems(c)
	lines := make([]cart.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, cart.Line{VariantID: it.VariantID, Qty: it.Qty})
	}
	return lines, "", nil
}

func (h *CheckoutHandler) clearCart(c *gin.Context, loggedIn bool, userCartID string) {
	if loggedIn && userCartID != "" {
		if err := h.CartRepo.Clear(c.Request.Context(), userCartID); err != nil {
			h.Logger.ErrorContext(c.Request.Context(), "cart clear failed", "cart_id", userCartID, "err", err)
		}
		return
	}
	h.Cookie.Clear(c)
}

func (h *CheckoutHandler) enqueueConfirmation(c *gin.Context, customer payments.CustomerInfo, created orders.CreateResult, method string) {
	if h.Email == nil || customer.Email == "" {
		return
	}
	err := h.Email.EnqueueOrderConfirmation(c.Request.Context(), email.OrderConfirmationInput{
		ToEmail:       customer.Email,
		ToName:        customer.Name,
		OrderID:       created.OrderID,
		TotalPaisa:    created.TotalPaisa,
		Currency:      created.Currency,
		PaymentMethod: method,
	})
	if err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "confirmation enqueue failed",
			"order_id", created.OrderID, "err", err)
	}
}

func mapOrderError(err error) error {
	var oos *checkout.OutOfStockError
	switch {
	case errors.Is(err, orders.ErrCartEmpty):
		return apperr.InvalidErr("Your cart is empty.", nil)
	case errors.Is(err, orders.ErrAddressRequired):
		return apperr.InvalidErr("Select or enter a shipping address.", nil)
	case errors.Is(err, orders.ErrCurrencyMismatch):
		return apperr.InvalidErr("Cart contains items in different currencies.", nil)
	case errors.Is(err, orders.ErrProductUnavailable):
		return apperr.InvalidErr("One of the products is no longer available.", nil)
	case errors.As(err, &oos):
		return apperr.ConflictErr("Some items are out of stock.")
	default:
		return apperr.Wrap(err)
	}
}

func mapPaymentError(err error) error {
	switch {
	case errors.Is(err, payments.ErrOrderNotFound):
		return apperr.NotFoundErr("Order not found.")
	case errors.Is(err, payments.ErrOrderNotPayable):
		return apperr.ConflictErr("This order can no longer be paid.")
	case errors.Is(err, payments.ErrForbidden):
		return apperr.ForbiddenErr("This order belongs to another account.")
	case errors.Is(err, payments.ErrUnknownMethod):
		return apperr.InvalidErr("Unknown payment method.", nil)
	default:
		return apperr.Wrap(err)
	}
}
