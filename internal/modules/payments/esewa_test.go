package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEsewa(t *testing.T, baseURL string) *Esewa {
	t.Helper()
	e, err := NewEsewa(EsewaConfig{
		MerchantID: "EPAYTEST",
		SecretKey:  "8gBm/:&EnhH.1/q",
		BaseURL:    baseURL,
		SuccessURL: "https://shop.test/api/payments/esewa/callback",
		FailureURL: "https://shop.test/payment/failed",
	}, nil)
	require.NoError(t, err)
	return e
}

func TestNewEsewaRequiresConfig(t *testing.T) {
	_, err := NewEsewa(EsewaConfig{MerchantID: "m"}, nil)
	assert.Error(t, err)
}

func TestEsewaCreatePaymentRequest(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np")

	req := e.CreatePaymentRequest(EsewaPaymentInput{
		ProductID:   "sku42",
		OrderID:     "ord-1",
		AmountPaisa: 10000,
	})

	// no charges: total equals the base amount
	assert.Equal(t, "100.00", req.Amt)
	assert.Equal(t, "100.00", req.TAmt)
	assert.Equal(t, "0.00", req.TxAmt)
	assert.Equal(t, "0.00", req.PSC)
	assert.Equal(t, "0.00", req.PDC)
	assert.Equal(t, "EPAYTEST", req.SCD)
	assert.Contains(t, req.PID, "sku42")
	assert.Contains(t, req.PID, "ord-1")

	// charges roll into the total
	req2 := e.CreatePaymentRequest(EsewaPaymentInput{
		OrderID:             "ord-2",
		AmountPaisa:         20000,
		TaxPaisa:            2600,
		DeliveryChargePaisa: 2400,
	})
	assert.Equal(t, "250.00", req2.TAmt)
	assert.Contains(t, req2.PID, "order-ord-2")
}

func TestEsewaPIDUniquePerAttempt(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np")
	in := EsewaPaymentInput{OrderID: "ord-9", AmountPaisa: 100}

	a := e.CreatePaymentRequest(in)
	time.Sleep(1100 * time.Millisecond)
	b := e.CreatePaymentRequest(in)
	assert.NotEqual(t, a.PID, b.PID)
}

func TestEsewaPaymentURL(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np/")
	req := e.CreatePaymentRequest(EsewaPaymentInput{OrderID: "o", AmountPaisa: 25000})

	u := e.PaymentURL(req)
	assert.True(t, strings.HasPrefix(u, "https://uat.esewa.com.np/epay/main?"))
	assert.Contains(t, u, "tAmt=250.00")
	assert.Contains(t, u, "scd=EPAYTEST")
	assert.Contains(t, u, "su=")
	assert.Contains(t, u, "fu=")
}

func TestEsewaVerifyPayment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"success marker", "<response><response_code>Success</response_code></response>", true},
		{"ref id echo", "<response>REF123</response>", true},
		{"failure", "<response><response_code>failure</response_code></response>", false},
		{"garbage", "not even xml", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/epay/transrec", r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "oid1", r.PostFormValue("oid"))
				assert.Equal(t, "100.00", r.PostFormValue("amt"))
				assert.Equal(t, "REF123", r.PostFormValue("rid"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			e := newTestEsewa(t, srv.URL)
			got := e.VerifyPayment(context.Background(), "oid1", "100.00", "REF123")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEsewaVerifyPaymentNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	e := newTestEsewa(t, srv.URL)
	assert.False(t, e.VerifyPayment(context.Background(), "oid1", "100.00", "REF123"))
}

func TestEsewaSignRequestSortsFields(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np")

	a := e.SignRequest(map[string]string{
		"total_amount":     "100.00",
		"transaction_uuid": "tx-1",
		"product_code":     "EPAYTEST",
	})
	b := e.SignRequest(map[string]string{
		"product_code":     "EPAYTEST",
		"transaction_uuid": "tx-1",
		"total_amount":     "100.00",
	})
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	c := e.SignRequest(map[string]string{
		"total_amount":     "999.00",
		"transaction_uuid": "tx-1",
		"product_code":     "EPAYTEST",
	})
	assert.NotEqual(t, a, c)
}
