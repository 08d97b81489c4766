// Package lemonsqueezy implements the Lemon Squeezy wire formats:
// webhook payloads with HMAC signature verification, and the license
// activation API client.
package lemonsqueezy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Webhook event names delivered by Lemon Squeezy.
const (
	EventSubscriptionCreated        = "subscription_created"
	EventSubscriptionUpdated        = "subscription_updated"
	EventSubscriptionCancelled      = "subscription_cancelled"
	EventSubscriptionResumed        = "subscription_resumed"
	EventSubscriptionExpired        = "subscription_expired"
	EventSubscriptionPaused         = "subscription_paused"
	EventSubscriptionUnpaused       = "subscription_unpaused"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
	EventSubscriptionPaymentFailed  = "subscription_payment_failed"
)

// ErrMalformedPayload is returned when a webhook body cannot be decoded
// or is missing required envelope fields.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// WebhookPayload is the envelope Lemon Squeezy posts to webhook endpoints.
type WebhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string     `json:"type"`
		ID         string     `json:"id"`
		Attributes Attributes `json:"attributes"`
	} `json:"data"`
}

// Attributes carries the subscription object attached to webhook events.
// Payment events reuse the same shape with total/currency populated.
type Attributes struct {
	StoreID         int64  `json:"store_id"`
	CustomerID      int64  `json:"customer_id"`
	OrderID         int64  `json:"order_id"`
	ProductID       int64  `json:"product_id"`
	VariantID       int64  `json:"variant_id"`
	ProductName     string `json:"product_name"`
	VariantName     string `json:"variant_name"`
	UserName        string `json:"user_name"`
	UserEmail       string `json:"user_email"`
	Status          string `json:"status"`
	StatusFormatted string `json:"status_formatted"`
	Cancelled       bool   `json:"cancelled"`

	FirstSubscriptionItem *SubscriptionItem `json:"first_subscription_item"`

	TrialEndsAt *time.Time `json:"trial_ends_at"`
	RenewsAt    *time.Time `json:"renews_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`

	// Populated on subscription_payment_* events.
	Total    *int64 `json:"total"`
	Currency string `json:"currency"`

	TestMode bool `json:"test_mode"`
}

// SubscriptionItem identifies the purchased line item.
type SubscriptionItem struct {
	ID             int64 `json:"id"`
	SubscriptionID int64 `json:"subscription_id"`
	PriceID        int64 `json:"price_id"`
	Quantity       int   `json:"quantity"`
}

// VerifySignature checks the X-Signature header against an HMAC-SHA256
// hex digest of the raw body. Comparison is constant-time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ParseWebhook decodes a webhook body. The event name must be present;
// everything else is validated by the consumer per event type.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrMalformedPayload
	}
	if payload.Meta.EventName == "" {
		return nil, ErrMalformedPayload
	}
	return &payload, nil
}
