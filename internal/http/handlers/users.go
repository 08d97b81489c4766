package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lobisloby/privacyfill/internal/service"
)

// UserHandler serves user registration and lookup.
type UserHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(ledger *service.LedgerService, logger *slog.Logger) *UserHandler {
	return &UserHandler{ledger: ledger, logger: logger}
}

type registerRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Register handles POST /registerUser.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ledger.RegisterUser(r.Context(), req.UserID, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrMissingField) {
			respondError(w, http.StatusBadRequest, "Missing required fields: userId, email")
			return
		}
		h.logger.Error("failed to register user", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond(w, http.StatusOK, result)
}

// GetUser handles GET /getUser?userId=.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	user, err := h.ledger.GetUser(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			respondError(w, http.StatusBadRequest, "Missing userId")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("failed to get user", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"userId":       user.ID,
		"email":        user.Email,
		"name":         user.Name,
		"subscription": user.Subscription,
		"usage":        user.Usage,
	})
}
