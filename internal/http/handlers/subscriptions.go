package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lobisloby/privacyfill/internal/service"
)

// SubscriptionHandler serves subscription status reads and usage tracking.
type SubscriptionHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(ledger *service.LedgerService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{ledger: ledger, logger: logger}
}

// GetStatus handles GET /getSubscriptionStatus?userId=.
func (h *SubscriptionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	sub, err := h.ledger.GetSubscriptionStatus(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			respondError(w, http.StatusBadRequest, "Missing userId")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("failed to get subscription status", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respond(w, http.StatusOK, map[string]any{"subscription": sub})
}

type trackRequest struct {
	UserID string `json:"userId"`
}

// TrackUsage handles POST /trackUsage.
func (h *SubscriptionHandler) TrackUsage(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ledger.TrackUsage(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			respondError(w, http.StatusBadRequest, "Missing userId")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("failed to track usage", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respond(w, http.StatusOK, result)
}
