package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Khalti payment session statuses returned by the lookup endpoint. Only
// StatusCompleted may fulfill an order; everything else, including Pending,
// is "not paid".
const (
	KhaltiStatusCompleted    = "Completed"
	KhaltiStatusPending      = "Pending"
	KhaltiStatusInitiated    = "Initiated"
	KhaltiStatusRefunded     = "Refunded"
	KhaltiStatusFailed       = "Failed"
	KhaltiStatusExpired      = "Expired"
	KhaltiStatusUserCanceled = "User Canceled"
)

// Khalti speaks the modern JSON REST protocol: initiate returns a hosted
// payment_url plus an opaque pidx used for the later lookup. All wire amounts
// are paisa.
type Khalti struct {
	secretKey  string
	publicKey  string
	baseURL    string
	returnURL  string
	websiteURL string

	client *http.Client
	logger *slog.Logger
}

type KhaltiAdapterConfig struct {
	SecretKey  string
	PublicKey  string
	BaseURL    string
	ReturnURL  string
	WebsiteURL string
}

func NewKhalti(cfg KhaltiAdapterConfig, logger *slog.Logger) (*Khalti, error) {
	if cfg.SecretKey == "" || cfg.PublicKey == "" || cfg.BaseURL == "" {
		return nil, errors.New("khalti: secret key, public key and base url are required")
	}
	if cfg.ReturnURL == "" || cfg.WebsiteURL == "" {
		return nil, errors.New("khalti: return and website urls are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Khalti{
		secretKey:  cfg.SecretKey,
		publicKey:  cfg.PublicKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		returnURL:  cfg.ReturnURL,
		websiteURL: cfg.WebsiteURL,
		client:     &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}, nil
}

func (k *Khalti) Name() string { return string(MethodKhalti) }

type KhaltiInitiateInput struct {
	OrderID     string
	ProductName string
	AmountPaisa int64
	Customer    *CustomerInfo
}

type KhaltiInitiateResult struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
	ExpiresIn  int    `json:"expires_in"`
}

// Initiate opens a payment session. ExpiresIn is a soft deadline: a stale pidx
// is not resumable, the caller must initiate again after expiry.
func (k *Khalti) Initiate(ctx context.Context, in KhaltiInitiateInput) (KhaltiInitiateResult, error) {
	payload := map[string]any{
		"return_url":          k.returnURL,
		"website_url":         k.websiteURL,
		"amount":              in.AmountPaisa,
		"purchase_order_id":   in.OrderID,
		"purchase_order_name": in.ProductName,
		"product_details": []map[string]any{
			{
				"identity":    in.OrderID,
				"name":        in.ProductName,
				"total_price": in.AmountPaisa,
				"quantity":    1,
				"unit_price":  in.AmountPaisa,
			},
		},
	}
	if in.Customer != nil {
		payload["customer_info"] = map[string]string{
			"name":  in.Customer.Name,
			"email": in.Customer.Email,
			"phone": in.Customer.Phone,
		}
	}

	raw, status, err := k.post(ctx, "/api/v2/epayment/initiate/", payload)
	if err != nil {
		return KhaltiInitiateResult{}, fmt.Errorf("khalti initiate request: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return KhaltiInitiateResult{}, fmt.Errorf("khalti initiate failed: http=%d body=%s", status, string(raw))
	}

	var res KhaltiInitiateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return KhaltiInitiateResult{}, fmt.Errorf("khalti initiate decode: %w body=%s", err, string(raw))
	}
	if res.Pidx == "" || res.PaymentURL == "" {
		return KhaltiInitiateResult{}, fmt.Errorf("khalti initiate incomplete response: body=%s", string(raw))
	}
	return res, nil
}

type KhaltiLookupResult struct {
	Pidx             string `json:"pidx"`
	TotalAmountPaisa int64  `json:"total_amount"`
	Status           string `json:"status"`
	TransactionID    string `json:"transaction_id"`
	FeePaisa         int64  `json:"fee"`
	Refunded         bool   `json:"refunded"`
}

// Lookup fetches the authoritative session state. Khalti returns 400 for some
// terminal states (Expired, User Canceled), so the body is decoded regardless
// of the HTTP status.
func (k *Khalti) Lookup(ctx context.Context, pidx string) (KhaltiLookupResult, error) {
	pidx = strings.TrimSpace(pidx)
	if pidx == "" {
		return KhaltiLookupResult{}, errors.New("khalti lookup requires pidx")
	}

	raw, status, err := k.post(ctx, "/api/v2/epayment/lookup/", map[string]string{"pidx": pidx})
	if err != nil {
		return KhaltiLookupResult{}, fmt.Errorf("khalti lookup request: %w", err)
	}

	var res KhaltiLookupResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return KhaltiLookupResult{}, fmt.Errorf("khalti lookup decode: http=%d err=%w body=%s", status, err, string(raw))
	}
	if res.Status == "" {
		return KhaltiLookupResult{}, fmt.Errorf("khalti lookup missing status: http=%d body=%s", status, string(raw))
	}
	return res, nil
}

func (k *Khalti) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Key "+k.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

// VerifyWebhookSignature validates the "t=...,v1=..." header on inbound
// webhooks; same scheme as eSewa.
func (k *Khalti) VerifyWebhookSignature(header string, body []byte) bool {
	return VerifySignatureHeader([]byte(k.secretKey), header, body, time.Now())
}

// IsPaymentSuccessful: Completed is the only success state. Pending money is
// not money.
func IsPaymentSuccessful(status string) bool {
	return status == KhaltiStatusCompleted
}

// PaymentStatusText maps a lookup status to a customer-facing string.
func PaymentStatusText(status string) string {
	switch status {
	case KhaltiStatusCompleted:
		return "Payment completed"
	case KhaltiStatusPending:
		return "Payment is pending confirmation"
	case KhaltiStatusInitiated:
		return "Payment has been initiated but not completed"
	case KhaltiStatusRefunded:
		return "Payment was refunded"
	case KhaltiStatusFailed:
		return "Payment failed"
	case KhaltiStatusExpired:
		return "Payment session expired"
	case KhaltiStatusUserCanceled:
		return "Payment was canceled"
	default:
		return "Unknown payment status"
	}
}
