package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook signatures: both gateways deliver an X-Gateway-Signature header of
// the form "t=<unix>,v1=<hex>", where v1 = HMAC-SHA256(secret, "<t>.<body>").

const signatureTolerance = 5 * time.Minute

func computeWebhookSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// BuildSignatureHeader signs a payload the way the gateways do; used by the
// mock webhook tool and tests.
func BuildSignatureHeader(secret []byte, t int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", t, computeWebhookSig(secret, t, body))
}

// ValidateWebhookSignature checks a single signature against the payload and
// timestamp. A wrong-length or malformed signature is a plain false, never a
// panic; comparison is constant-time.
func ValidateWebhookSignature(secret []byte, payload []byte, signature string, timestamp int64) bool {
	if signature == "" {
		return false
	}
	want := computeWebhookSig(secret, timestamp, payload)
	return hmac.Equal([]byte(want), []byte(signature))
}

// VerifySignatureHeader parses "t=...,v1=..." and validates it, rejecting
// timestamps outside the tolerance window to blunt replay.
func VerifySignatureHeader(secret []byte, header string, payload []byte, now time.Time) bool {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return false
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return false
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return false
	}
	return ValidateWebhookSignature(secret, payload, sig, ts)
}
