// Package cartcookie keeps guest carts entirely client-side: the items travel
// in a signed cookie, so anonymous carts need no database row. Signing stops
// price or quantity games; prices are never stored here, only looked up
// server-side at read time.
package cartcookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var ErrInvalid = errors.New("invalid cart cookie")

const (
	maxItems     = 100
	maxCookieLen = 4000
)

type Item struct {
	VariantID string `json:"v"`
	Qty       int    `json:"q"`
}

type Codec struct {
	Secret     []byte
	CookieName string
	Secure     bool
}

func New(secret []byte, name string, secure bool) *Codec {
	return &Codec{Secret: secret, CookieName: name, Secure: secure}
}

// value format: base64url(json items).base64url(hmac(payload))
func (c *Codec) Encode(items []Item) (string, error) {
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + sign(c.Secret, payload), nil
}

func (c *Codec) Decode(v string) ([]Item, error) {
	if len(v) > maxCookieLen {
		return nil, ErrInvalid
	}
	parts := strings.Split(v, ".")
	if len(parts) != 2 || parts[0] == "" {
		return nil, ErrInvalid
	}
	if !verify(c.Secret, parts[0], parts[1]) {
		return nil, ErrInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalid
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrInvalid
	}

	out := items[:0]
	for _, it := range items {
		if it.VariantID == "" || it.Qty <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// GetItems reads the guest cart. A tampered cookie is dropped and the cart
// starts empty; there is nothing to recover.
func (c *Codec) GetItems(ctx *gin.Context) ([]Item, bool) {
	v, err := ctx.Cookie(c.CookieName)
	if err != nil || v == "" {
		return nil, false
	}
	items, err := c.Decode(v)
	if err != nil {
		c.Clear(ctx)
		return nil, false
	}
	return items, true
}

func (c *Codec) Set(ctx *gin.Context, items []Item) error {
	val, err := c.Encode(items)
	if err != nil {
		return err
	}
	maxAge := int((30 * 24 * time.Hour).Seconds())
	ctx.SetSameSite(2) // Lax
	ctx.SetCookie(c.CookieName, val, maxAge, "/", "", c.Secure, true)
	return nil
}

func (c *Codec) Clear(ctx *gin.Context) {
	ctx.SetSameSite(2) // Lax
	ctx.SetCookie(c.CookieName, "", -1, "/", "", c.Secure, true)
}

func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func verify(secret []byte, payload, sig string) bool {
	return hmac.Equal([]byte(sign(secret, payload)), []byte(sig))
}
