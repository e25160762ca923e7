package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"hamropasal.com/app/internal/shared/currency"
)

// Esewa speaks eSewa's legacy form-redirect protocol: the browser is sent to
// the hosted /epay/main page with decimal-string amounts in the query, and
// completed payments are verified with a server-to-server POST to
// /epay/transrec whose response body is probed for the literal "Success".
type Esewa struct {
	merchantID string
	secretKey  []byte
	baseURL    string
	successURL string
	failureURL string

	client *http.Client
	logger *slog.Logger
	audit  AuditRecorder
}

type EsewaConfig struct {
	MerchantID string
	SecretKey  string
	BaseURL    string
	SuccessURL string
	FailureURL string
}

func NewEsewa(cfg EsewaConfig, logger *slog.Logger) (*Esewa, error) {
	if cfg.MerchantID == "" || cfg.SecretKey == "" || cfg.BaseURL == "" {
		return nil, errors.New("esewa: merchant id, secret key and base url are required")
	}
	if cfg.SuccessURL == "" || cfg.FailureURL == "" {
		return nil, errors.New("esewa: success and failure urls are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Esewa{
		merchantID: cfg.MerchantID,
		secretKey:  []byte(cfg.SecretKey),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		successURL: cfg.SuccessURL,
		failureURL: cfg.FailureURL,
		client:     &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}, nil
}

// SetAudit attaches an archive sink for ambiguous verification responses.
func (e *Esewa) SetAudit(a AuditRecorder) { e.audit = a }

func (e *Esewa) Name() string { return string(MethodEsewa) }

type EsewaPaymentInput struct {
	ProductID string
	OrderID   string

	AmountPaisa         int64
	TaxPaisa            int64
	ServiceChargePaisa  int64
	DeliveryChargePaisa int64
}

// EsewaRequest carries eSewa's wire fields. Every amount is a fixed
// two-decimal rupee string; eSewa rejects bare numbers.
type EsewaRequest struct {
	TAmt  string // total = amt + txAmt + psc + pdc
	Amt   string
	TxAmt string
	PSC   string // service charge
	PDC   string // delivery charge
	SCD   string // merchant code
	PID   string // unique per attempt
	SU    string // success redirect
	FU    string // failure redirect
}

// CreatePaymentRequest builds the redirect form. PID embeds product, order and
// a timestamp so retries after an abandoned attempt get a fresh identifier.
func (e *Esewa) CreatePaymentRequest(in EsewaPaymentInput) EsewaRequest {
	productID := in.ProductID
	if productID == "" {
		productID = "order"
	}
	total := in.AmountPaisa + in.TaxPaisa + in.ServiceChargePaisa + in.DeliveryChargePaisa
	return EsewaRequest{
		TAmt:  currency.FormatRupees(total),
		Amt:   currency.FormatRupees(in.AmountPaisa),
		TxAmt: currency.FormatRupees(in.TaxPaisa),
		PSC:   currency.FormatRupees(in.ServiceChargePaisa),
		PDC:   currency.FormatRupees(in.DeliveryChargePaisa),
		SCD:   e.merchantID,
		PID:   fmt.Sprintf("%s-%s-%d", productID, in.OrderID, time.Now().Unix()),
		SU:    e.successURL,
		FU:    e.failureURL,
	}
}

func (r EsewaRequest) values() url.Values {
	v := url.Values{}
	v.Set("tAmt", r.TAmt)
	v.Set("amt", r.Amt)
	v.Set("txAmt", r.TxAmt)
	v.Set("psc", r.PSC)
	v.Set("pdc", r.PDC)
	v.Set("scd", r.SCD)
	v.Set("pid", r.PID)
	v.Set("su", r.SU)
	v.Set("fu", r.FU)
	return v
}

// PaymentURL is the full-page redirect target; eSewa's flow depends on its
// hosted checkout page, an XHR will not work.
func (e *Esewa) PaymentURL(r EsewaRequest) string {
	return e.baseURL + "/epay/main?" + r.values().Encode()
}

// VerifyPayment confirms a completed payment with eSewa's transrec endpoint.
// The legacy contract is a substring probe: the body contains "Success" or
// echoes the refId. Network failure means "not verified", never an error that
// could fulfill an order; the raw body is archived when the probe fails.
func (e *Esewa) VerifyPayment(ctx context.Context, oid, amt, refID string) bool {
	form := url.Values{}
	form.Set("oid", oid)
	form.Set("amt", amt)
	form.Set("rid", refID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/epay/transrec", strings.NewReader(form.Encode()))
	if err != nil {
		e.logger.ErrorContext(ctx, "esewa verify request build failed", "oid", oid, "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.WarnContext(ctx, "esewa verify call failed, treating as not verified", "oid", oid, "err", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		e.logger.WarnContext(ctx, "esewa verify read failed", "oid", oid, "err", err)
		return false
	}

	text := string(body)
	ok := strings.Contains(text, "Success") || (refID != "" && strings.Contains(text, refID))
	if !ok {
		e.logger.WarnContext(ctx, "esewa verification not confirmed",
			"oid", oid, "ref_id", refID, "http_status", resp.StatusCode)
		if e.audit != nil {
			e.audit.Record(ctx, e.Name(), oid, body)
		}
	}
	return ok
}

// SignRequest computes the outbound request signature: HMAC-SHA256 over the
// sorted fields joined as "k=v,k=v", base64-encoded.
func (e *Esewa) SignRequest(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, e.secretKey)
	mac.Write([]byte(strings.Join(parts, ",")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature validates the "t=...,v1=..." header on inbound
// webhooks.
func (e *Esewa) VerifyWebhookSignature(header string, body []byte) bool {
	return VerifySignatureHeader(e.secretKey, header, body, time.Now())
}
