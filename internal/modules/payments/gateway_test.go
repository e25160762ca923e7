package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerInitiateCOD(t *testing.T) {
	// no adapters needed: COD touches no network
	m := NewManager(nil, nil, nil)

	res := m.Initiate(context.Background(), InitiateConfig{
		Method:      MethodCOD,
		OrderID:     "ord-1",
		AmountPaisa: 50000,
	})

	assert.True(t, res.Success)
	assert.Empty(t, res.PaymentURL)
	assert.Regexp(t, regexp.MustCompile(`^cod-ord-1-\d+$`), res.TransactionID)
}

func TestManagerInitiateUnknownMethod(t *testing.T) {
	m := NewManager(nil, nil, nil)
	res := m.Initiate(context.Background(), InitiateConfig{Method: Method("paypal"), OrderID: "o"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "paypal")
}

func TestManagerInitiateUnconfiguredAdapter(t *testing.T) {
	m := NewManager(nil, nil, nil)

	for _, method := range []Method{MethodEsewa, MethodKhalti} {
		res := m.Initiate(context.Background(), InitiateConfig{Method: method, OrderID: "o", AmountPaisa: 100})
		assert.False(t, res.Success, "method %s", method)
		assert.NotEmpty(t, res.Error)
	}
}

func TestManagerInitiateEsewa(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np")
	m := NewManager(e, nil, nil)

	res := m.Initiate(context.Background(), InitiateConfig{
		Method:      MethodEsewa,
		OrderID:     "ord-7",
		AmountPaisa: 25000,
	})

	require.True(t, res.Success)
	assert.Contains(t, res.PaymentURL, "/epay/main?")
	assert.Contains(t, res.PaymentURL, "tAmt=250.00")
	assert.Contains(t, res.TransactionID, "ord-7")
	assert.Equal(t, "250.00", res.Data["tAmt"])
}

// Adapter errors surface as a failed result, never as a raw error to the
// caller.
func TestManagerInitiateKhaltiFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	m := NewManager(nil, k, nil)

	res := m.Initiate(context.Background(), InitiateConfig{
		Method:      MethodKhalti,
		OrderID:     "ord-8",
		AmountPaisa: 9950,
	})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	// the raw gateway body must not leak
	assert.NotContains(t, res.Error, "503")
}

func TestManagerVerifyCOD(t *testing.T) {
	m := NewManager(nil, nil, nil)
	res := m.Verify(context.Background(), MethodCOD, "cod-ord-1-123", map[string]string{"order_id": "ord-1"})
	assert.True(t, res.Success)
	assert.Equal(t, "ord-1", res.OrderID)
}

func TestManagerVerifyEsewaRequiresParams(t *testing.T) {
	e := newTestEsewa(t, "https://uat.esewa.com.np")
	m := NewManager(e, nil, nil)

	res := m.Verify(context.Background(), MethodEsewa, "oid1", map[string]string{"amt": "100.00"})
	assert.False(t, res.Success)
}

func TestManagerVerifyEsewa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<response>Success</response>"))
	}))
	defer srv.Close()

	e := newTestEsewa(t, srv.URL)
	m := NewManager(e, nil, nil)

	res := m.Verify(context.Background(), MethodEsewa, "oid1", map[string]string{
		"oid":   "oid1",
		"amt":   "99.50",
		"refId": "REF1",
	})
	assert.True(t, res.Success)
	assert.Equal(t, int64(9950), res.AmountPaisa)
	assert.Equal(t, "REF1", res.Data["ref_id"])
}

func TestManagerVerifyKhaltiStatuses(t *testing.T) {
	status := "Completed"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":         "px1",
			"total_amount": 9950,
			"status":       status,
		})
	}))
	defer srv.Close()

	k := newTestKhalti(t, srv.URL)
	m := NewManager(nil, k, nil)

	res := m.Verify(context.Background(), MethodKhalti, "px1", nil)
	assert.True(t, res.Success)
	assert.Equal(t, int64(9950), res.AmountPaisa)

	// Pending money is not money
	status = "Pending"
	res = m.Verify(context.Background(), MethodKhalti, "px1", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Payment is pending confirmation", res.Error)
}

func TestMethodDisplayHelpers(t *testing.T) {
	assert.Equal(t, "eSewa", MethodDisplayName(MethodEsewa))
	assert.Equal(t, "Khalti", MethodDisplayName(MethodKhalti))
	assert.Equal(t, "Cash on Delivery", MethodDisplayName(MethodCOD))
	assert.Equal(t, "other", MethodDisplayName(Method("other")))

	assert.NotEmpty(t, MethodIcon(MethodEsewa))
	assert.Empty(t, MethodIcon(Method("other")))

	assert.True(t, IsOnlineMethod(MethodEsewa))
	assert.True(t, IsOnlineMethod(MethodKhalti))
	assert.False(t, IsOnlineMethod(MethodCOD))
}

func TestParseMethod(t *testing.T) {
	for _, s := range []string{"esewa", "khalti", "cod"} {
		got, err := ParseMethod(s)
		require.NoError(t, err)
		assert.Equal(t, Method(s), got)
	}
	_, err := ParseMethod("stripe")
	assert.Error(t, err)
}
