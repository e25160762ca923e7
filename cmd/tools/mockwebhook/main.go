// mockwebhook sends a signed gateway webhook to a local server, for exercising
// the /webhooks/:provider endpoint without a real gateway.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

type webhookPayload struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	OrderID     string `json:"order_id,omitempty"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason,omitempty"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/khalti", "Webhook URL")
	secret := flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "Gateway secret key")
	eventID := flag.String("event-id", "evt_"+randomHex(8), "Event ID")
	eventType := flag.String("type", "payment.succeeded", "Event type (payment.succeeded, payment.failed, refund.succeeded, refund.failed)")
	orderID := flag.String("order-id", "", "Order ID")
	providerRef := flag.String("provider-ref", "", "Provider reference (pidx or pid)")
	amount := flag.Int64("amount", 50000, "Amount in paisa")
	currency := flag.String("currency", "NPR", "Currency")
	reason := flag.String("reason", "", "Failure/refund reason")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	payload := webhookPayload{
		EventID:     *eventID,
		EventType:   *eventType,
		OrderID:     *orderID,
		ProviderRef: *providerRef,
		Amount:      *amount,
		Currency:    *currency,
		Reason:      *reason,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	t := time.Now().Unix()
	sigHeader := fmt.Sprintf("t=%d,v1=%s", t, computeSig([]byte(*secret), t, body))

	fmt.Printf("X-Gateway-Signature: %s\n", sigHeader)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Signature", sigHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func computeSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
