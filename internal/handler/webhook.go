package handler

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/auth"
)

const (
	signatureHeader = "X-Webhook-Signature"
	urlValidation   = "endpoint.url_validation"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PlainToken string `json:"plainToken"`
	} `json:"payload"`
}

// webhook accepts provider events signed with the shared secret. The
// signature is the hex HMAC-SHA256 of the raw body.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		h.writeError(w, r, apperr.Validation("Missing data").Wrap(err))
		return
	}
	if !auth.VerifySignature(body, h.opts.WebhookSecret, r.Header.Get(signatureHeader)) {
		h.log.Warn("webhook signature mismatch", zap.String("remote", r.RemoteAddr))
		h.writeError(w, r, apperr.SignatureMismatch())
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.writeError(w, r, apperr.Validation("Invalid payload").Wrap(err))
		return
	}

	if ev.Event == urlValidation {
		writeJSON(w, http.StatusOK, map[string]string{
			"plainToken":     ev.Payload.PlainToken,
			"encryptedToken": auth.Sign([]byte(ev.Payload.PlainToken), h.opts.WebhookSecret),
		})
		return
	}

	h.log.Info("webhook received", zap.String("event", ev.Event))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}
