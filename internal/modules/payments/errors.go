package payments

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPayable  = errors.New("order is not in a payable state")
	ErrForbidden        = errors.New("order belongs to another user")
	ErrAmountMismatch   = errors.New("verified amount does not match order total")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrUnknownMethod    = errors.New("unknown payment method")
	ErrDuplicateWebhook = errors.New("webhook event already processed")
	ErrBadSignature     = errors.New("webhook signature invalid")
)
