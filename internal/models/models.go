// Package models defines the domain models for the application.
package models

import "time"

// ========================================
// Subscription
// ========================================

// SubscriptionStatus is the lifecycle state of a user's subscription.
type SubscriptionStatus string

const (
	StatusFree      SubscriptionStatus = "free"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
	StatusPastDue   SubscriptionStatus = "past_due"
)

// Plan identifies the product plan attached to a subscription.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Subscription is the billing state mirrored from the payment provider.
// The ledger owns it; clients hold a read-only cache that may be stale
// between syncs.
type Subscription struct {
	Status           SubscriptionStatus `json:"status"`
	Plan             Plan               `json:"plan"`
	LemonSqueezyID   string             `json:"lemonSqueezyId,omitempty"`
	SubscriptionID   string             `json:"subscriptionId,omitempty"`
	CustomerID       string             `json:"customerId,omitempty"`
	VariantID        string             `json:"variantId,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"currentPeriodEnd,omitempty"`
	ExpiresAt        *time.Time         `json:"expiresAt,omitempty"`
	CancelledAt      *time.Time         `json:"cancelledAt,omitempty"`
	CreatedAt        *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time         `json:"updatedAt,omitempty"`

	// EventTimestamp is the provider's updated_at of the most recently
	// applied webhook event. Events older than this are ignored so that
	// out-of-order delivery cannot roll the subscription backwards.
	EventTimestamp *time.Time `json:"-"`
}

// IsExpired reports whether an active subscription has passed its expiry.
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.Status == StatusActive && s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// SubscriptionUpdate carries a partial subscription mutation. Nil fields
// are left untouched by the ledger; UpdatedAt is always stamped.
type SubscriptionUpdate struct {
	Status           *SubscriptionStatus
	Plan             *Plan
	LemonSqueezyID   *string
	SubscriptionID   *string
	CustomerID       *string
	VariantID        *string
	CurrentPeriodEnd *time.Time
	ExpiresAt        *time.Time
	// ClearExpiresAt/ClearCancelledAt distinguish "set to NULL" from
	// "leave alone", which a nil pointer alone cannot express.
	ClearExpiresAt   bool
	CancelledAt      *time.Time
	ClearCancelledAt bool
	CreatedAt        *time.Time
	EventTimestamp   *time.Time
}

// ========================================
// User
// ========================================

// Usage tracks identity generations within the current reset window.
type Usage struct {
	Count     int       `json:"count"`
	ResetDate time.Time `json:"resetDate"`
}

// User is one ledger document: account info plus subscription and usage.
type User struct {
	ID           string       `json:"userId"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Subscription Subscription `json:"subscription"`
	Usage        Usage        `json:"usage"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ========================================
// Audit records (append-only)
// ========================================

// SubscriptionEvent records one processed webhook event. Write-once.
type SubscriptionEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Event       string    `json:"event"`
	PayloadJSON string    `json:"payload_json"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentStatus is the outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment records one payment attempt reported by the provider. Write-once.
type Payment struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Status      PaymentStatus `json:"status"`
	Amount      *int64        `json:"amount,omitempty"`   // Provider minor units
	Currency    string        `json:"currency,omitempty"` // ISO 4217
	PayloadJSON string        `json:"payload_json"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DefaultSubscription returns the subscription assigned to new users.
func DefaultSubscription() Subscription {
	return Subscription{
		Status: StatusFree,
		Plan:   PlanFree,
	}
}
