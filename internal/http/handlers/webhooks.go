package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hamropasal.com/app/internal/modules/payments"
)

const webhookSignatureHeader = "X-Gateway-Signature"

type WebhookHandler struct {
	Logger     *slog.Logger
	WebhookSvc *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, WebhookSvc: svc}
}

// POST /webhooks/:provider
// Body is raw JSON; the signature header is validated against the provider's
// secret before anything is parsed. A duplicate delivery is acked with 200 so
// the gateway stops retrying; a processing failure returns 500 so it retries.
func (h *WebhookHandler) Handle(c *gin.Context) {
	method, err := payments.ParseMethod(c.Param("provider"))
	if err != nil || !payments.IsOnlineMethod(method) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "unknown provider"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	sig := c.GetHeader(webhookSignatureHeader)
	err = h.WebhookSvc.Process(c.Request.Context(), method, sig, body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, payments.ErrDuplicateWebhook):
		c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
	case errors.Is(err, payments.ErrBadSignature):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature"})
	default:
		h.Logger.ErrorContext(c.Request.Context(), "webhook apply failed",
			"provider", method, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
	}
}
