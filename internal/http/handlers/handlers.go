// Package handlers contains HTTP handlers for the API.
//
// All responses share one envelope: {success, data?, error?}. Handlers
// are raw http.HandlerFunc rather than a framework layer because the
// envelope and status-code contract is fixed by the extension clients.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// respondError writes a failure envelope with a short message. Detail
// beyond the message never crosses the trust boundary.
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// MethodNotAllowed is the chi MethodNotAllowedHandler, kept on the
// envelope contract instead of chi's plain-text default.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NotFound is the chi NotFoundHandler on the envelope contract.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Not found")
}

// HealthCheck reports liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"message":   "PrivacyFill API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
