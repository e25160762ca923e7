package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKhalti(t *testing.T, baseURL string) *Khalti {
	t.Helper()
	k, err := NewKhalti(KhaltiAdapterConfig{
		SecretKey:  "test-secret-key",
		PublicKey:  "test-public-key",
		BaseURL:    baseURL,
		ReturnURL:  "https://shop.test/api/payments/khalti/callback",
		WebsiteURL: "https://shop.test",
	}, nil)
	require.NoError(t, err)
	return k
}

func TestNewKhaltiRequiresConfig(t *testing.T) {
	_, err := NewKhalti(KhaltiAdapterConfig{SecretKey: "s"}, nil)
	assert.Error(t, err)
}

func TestKhaltiInitiate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key test-secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		// wire amount is paisa
		assert.Equal(t, float64(9950), payload["amount"])
		assert.Equal(t, "ord-1", payload["purchase_order_id"])

		details, ok := payload["product_details"].([]any)
		require.True(t, ok)
		require.Len(t, details, 1)
		first := details[0].(map[string]any)
		assert.Equal(t, float64(9950), first["total_price"])
		assert.Equal(t, float64(1), first["quantity"])

		cust, ok := payload["customer_info"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Sita", cust["name"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":        "Hk7Vx2",
			"payment_url": "https://test-pay.khalti.com/?pidx=Hk7Vx2",
			"expires_at":  "2026-08-27T12:00:00+05:45",
			"expires_in":  1800,
		})
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	res, err := k.Initiate(context.Background(), KhaltiInitiateInput{
		OrderID:     "ord-1",
		ProductName: "Order ord-1",
		AmountPaisa: 9950,
		Customer:    &CustomerInfo{Name: "Sita", Email: "sita@example.com", Phone: "9800000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hk7Vx2", res.Pidx)
	assert.Equal(t, "https://test-pay.khalti.com/?pidx=Hk7Vx2", res.PaymentURL)
	assert.Equal(t, 1800, res.ExpiresIn)
}

func TestKhaltiInitiateRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	_, err := k.Initiate(context.Background(), KhaltiInitiateInput{OrderID: "o", ProductName: "o", AmountPaisa: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http=401")
}

func TestKhaltiInitiateRejectsIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pidx":""}`))
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	_, err := k.Initiate(context.Background(), KhaltiInitiateInput{OrderID: "o", ProductName: "o", AmountPaisa: 100})
	assert.Error(t, err)
}

func TestKhaltiLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/epayment/lookup/", r.URL.Path)
		assert.Equal(t, "Key test-secret-key", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Hk7Vx2", payload["pidx"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":           "Hk7Vx2",
			"total_amount":   9950,
			"status":         "Completed",
			"transaction_id": "txn-77",
			"fee":            0,
			"refunded":       false,
		})
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	res, err := k.Lookup(context.Background(), "Hk7Vx2")
	require.NoError(t, err)
	assert.Equal(t, KhaltiStatusCompleted, res.Status)
	assert.Equal(t, int64(9950), res.TotalAmountPaisa)
	assert.Equal(t, "txn-77", res.TransactionID)
}

// Khalti returns 400 with a decodable body for terminal states.
func TestKhaltiLookupDecodesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":         "expired1",
			"total_amount": 9950,
			"status":       "Expired",
		})
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	res, err := k.Lookup(context.Background(), "expired1")
	require.NoError(t, err)
	assert.Equal(t, KhaltiStatusExpired, res.Status)
}

func TestKhaltiLookupRequiresPidx(t *testing.T) {
	k := newTestKhalti(t, "http://localhost:1")
	_, err := k.Lookup(context.Background(), "  ")
	assert.Error(t, err)
}

func TestIsPaymentSuccessful(t *testing.T) {
	assert.True(t, IsPaymentSuccessful(KhaltiStatusCompleted))

	for _, status := range []string{
		KhaltiStatusPending,
		KhaltiStatusInitiated,
		KhaltiStatusRefunded,
		KhaltiStatusFailed,
		KhaltiStatusExpired,
		KhaltiStatusUserCanceled,
		"something else",
		"",
	} {
		assert.False(t, IsPaymentSuccessful(status), "status %q must not fulfill", status)
	}
}

func TestPaymentStatusText(t *testing.T) {
	assert.Equal(t, "Payment completed", PaymentStatusText(KhaltiStatusCompleted))
	assert.Equal(t, "Payment session expired", PaymentStatusText(KhaltiStatusExpired))
	assert.Equal(t, "Unknown payment status", PaymentStatusText("???"))
}
