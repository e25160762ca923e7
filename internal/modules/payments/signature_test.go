package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignatureHeader(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"event_id":"evt_1","event_type":"payment.succeeded"}`)
	now := time.Unix(1700000000, 0)

	header := BuildSignatureHeader(secret, now.Unix(), body)
	assert.True(t, VerifySignatureHeader(secret, header, body, now))

	// wrong secret
	assert.False(t, VerifySignatureHeader([]byte("other"), header, body, now))

	// tampered body
	assert.False(t, VerifySignatureHeader(secret, header, []byte(`{"event_id":"evt_2"}`), now))

	// outside the tolerance window, both directions
	assert.False(t, VerifySignatureHeader(secret, header, body, now.Add(6*time.Minute)))
	assert.False(t, VerifySignatureHeader(secret, header, body, now.Add(-6*time.Minute)))

	// within tolerance
	assert.True(t, VerifySignatureHeader(secret, header, body, now.Add(4*time.Minute)))
}

func TestVerifySignatureHeaderMalformed(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte("{}")
	now := time.Now()

	for _, header := range []string{
		"",
		"garbage",
		"t=,v1=",
		"t=abc,v1=deadbeef",
		"v1=deadbeef",
		"t=1700000000",
	} {
		assert.False(t, VerifySignatureHeader(secret, header, body, now), "header %q", header)
	}
}

// A truncated or wrong-length signature must compare false, never panic.
func TestValidateWebhookSignatureLengthMismatch(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte("{}")

	assert.False(t, ValidateWebhookSignature(secret, body, "ab", 1700000000))
	assert.False(t, ValidateWebhookSignature(secret, body, "", 1700000000))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidateWebhookSignature(secret, body, string(long), 1700000000))
}
