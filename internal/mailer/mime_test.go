package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessageValidation(t *testing.T) {
	base := Email{
		From:     "no-reply@hamropasal.com",
		To:       []string{"sita@example.com"},
		Subject:  "Order confirmation",
		TextBody: "hello",
	}

	for name, mutate := range map[string]func(*Email){
		"no recipient": func(e *Email) { e.To = nil },
		"no from":      func(e *Email) { e.From = "" },
		"no subject":   func(e *Email) { e.Subject = "" },
		"no body":      func(e *Email) { e.TextBody = "" },
	} {
		t.Run(name, func(t *testing.T) {
			e := base
			mutate(&e)
			_, err := buildMIMEMessage(e, "local")
			assert.Error(t, err)
		})
	}
}

func TestBuildMIMEMessageTextOnly(t *testing.T) {
	raw, err := buildMIMEMessage(Email{
		FromName: "Hamro Pasal",
		From:     "no-reply@hamropasal.com",
		To:       []string{"sita@example.com"},
		Subject:  "Order confirmation #ord-1",
		TextBody: "Your order has been placed.",
	}, "hamropasal.com")
	require.NoError(t, err)

	assert.Contains(t, raw, "From: ")
	assert.Contains(t, raw, "To: sita@example.com")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, raw, "Your order has been placed.")
	assert.NotContains(t, raw, "multipart/alternative")
	assert.True(t, strings.Contains(raw, "Message-ID: <"))
}

func TestBuildMIMEMessageMultipart(t *testing.T) {
	raw, err := buildMIMEMessage(Email{
		From:     "no-reply@hamropasal.com",
		To:       []string{"sita@example.com"},
		Subject:  "hi",
		TextBody: "plain",
		HTMLBody: "<p>rich</p>",
	}, "local")
	require.NoError(t, err)

	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "plain")
	assert.Contains(t, raw, "<p>rich</p>")
}
