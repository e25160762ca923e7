package payments

import (
	"context"
	"fmt"
)

// Method is the payment method tag, chosen once per checkout attempt.
type Method string

const (
	MethodEsewa  Method = "esewa"
	MethodKhalti Method = "khalti"
	MethodCOD    Method = "cod"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodEsewa, MethodKhalti, MethodCOD:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown payment method: %q", s)
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InitiateConfig is the gateway-agnostic initiation request. Amounts are paisa;
// adapters convert to their own wire unit.
type InitiateConfig struct {
	Method      Method
	OrderID     string
	AmountPaisa int64
	ProductID   string
	ProductName string
	Customer    *CustomerInfo
}

// InitiationResult normalizes the heterogeneous adapter responses. For esewa
// and khalti, Success implies PaymentURL is set and the storefront must do a
// full-page redirect. For cod there is no PaymentURL.
type InitiationResult struct {
	Method        Method            `json:"method"`
	Success       bool              `json:"success"`
	PaymentURL    string            `json:"payment_url,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Error         string            `json:"error,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
}

// VerificationResult is the gateway's authoritative statement that funds were
// captured. For cod it is a trivial always-true confirmation: nothing is
// verified online, the interface stays uniform for order fulfillment.
type VerificationResult struct {
	Method        Method            `json:"method"`
	Success       bool              `json:"success"`
	TransactionID string            `json:"transaction_id"`
	AmountPaisa   int64             `json:"amount_paisa"`
	OrderID       string            `json:"order_id"`
	Error         string            `json:"error,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
}

// AuditRecorder archives raw gateway payloads for later inspection. The
// adapters call it when a verification response is ambiguous.
type AuditRecorder interface {
	Record(ctx context.Context, provider, ref string, payload []byte)
}
