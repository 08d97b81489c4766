package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lobisloby/privacyfill/internal/lemonsqueezy"
	"github.com/lobisloby/privacyfill/internal/service"
)

// WebhookHandler handles Lemon Squeezy webhook events.
type WebhookHandler struct {
	secret        string
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(secret string, subscriptions *service.SubscriptionService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:        secret,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// HandleWebhook processes incoming Lemon Squeezy webhooks. The signature
// is verified against the exact raw body before any event is interpreted.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	if h.secret == "" {
		h.logger.Error("webhook secret not configured")
		respondError(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		respondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Signature")
	if !lemonsqueezy.VerifySignature(body, signature, h.secret) {
		// Logged loudly: a bad signature is a potential attack, not noise.
		h.logger.Error("invalid webhook signature", "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	payload, err := lemonsqueezy.ParseWebhook(body)
	if err != nil {
		h.logger.Error("malformed webhook payload", "error", err)
		respondError(w, http.StatusBadRequest, "Malformed payload")
		return
	}

	if err := h.subscriptions.ProcessEvent(r.Context(), payload, body); err != nil {
		if errors.Is(err, service.ErrMissingWebhookUser) {
			respondError(w, http.StatusBadRequest, "Missing user_id")
			return
		}
		// Once the signature checks out, business failures are logged and
		// acknowledged so the provider does not retry-storm.
		h.logger.Error("failed to process webhook event",
			"event", payload.Meta.EventName,
			"error", err,
		)
	}

	respond(w, http.StatusOK, map[string]any{"received": true})
}
