package events

import "time"

type OrderCreated struct {
	EventID       string    `json:"event_id"`
	OrderID       string    `json:"order_id"`
	UserID        *string   `json:"user_id,omitempty"`
	GuestEmail    *string   `json:"guest_email,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	TotalPaisa    int64     `json:"total_paisa"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentSucceeded struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	PaymentID   string    `json:"payment_id"`
	Provider    string    `json:"provider"`
	AmountPaisa int64     `json:"amount_paisa"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}
