package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lobisloby/privacyfill/internal/lemonsqueezy"
	"github.com/lobisloby/privacyfill/internal/models"
)

// webhookBody builds a webhook payload and its raw JSON for a test case.
func webhookBody(t *testing.T, event, userID string, attrs map[string]any) (*lemonsqueezy.WebhookPayload, []byte) {
	t.Helper()
	body := map[string]any{
		"meta": map[string]any{
			"event_name":  event,
			"custom_data": map[string]any{"user_id": userID},
		},
		"data": map[string]any{
			"type":       "subscriptions",
			"id":         "312",
			"attributes": attrs,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	payload, err := lemonsqueezy.ParseWebhook(raw)
	if err != nil {
		t.Fatalf("failed to parse payload: %v", err)
	}
	return payload, raw
}

func TestProcessEvent_SubscriptionCreated(t *testing.T) {
	repos, users, events, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	seedUser(users, "user-1", models.DefaultSubscription(), models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_created", "user-1", map[string]any{
		"customer_id": 55,
		"variant_id":  9,
		"status":      "active",
		"renews_at":   "2026-10-01T00:00:00Z",
		"updated_at":  "2026-09-01T12:00:00Z",
		"first_subscription_item": map[string]any{
			"id": 1, "subscription_id": 312, "price_id": 2, "quantity": 1,
		},
	})

	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	sub := user.Subscription
	if sub.Status != models.StatusActive {
		t.Errorf("status = %q, want active", sub.Status)
	}
	if sub.Plan != models.PlanPremium {
		t.Errorf("plan = %q, want premium", sub.Plan)
	}
	if sub.SubscriptionID != "312" {
		t.Errorf("subscription ID = %q, want 312", sub.SubscriptionID)
	}
	if sub.CustomerID != "55" || sub.VariantID != "9" {
		t.Errorf("customer/variant = %q/%q, want 55/9", sub.CustomerID, sub.VariantID)
	}
	if sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expiresAt = %v, want renews_at", sub.ExpiresAt)
	}
	if sub.EventTimestamp == nil {
		t.Error("expected event timestamp to be recorded")
	}

	count, _ := events.CountByUserID(ctx, "user-1")
	if count != 1 {
		t.Errorf("audit events = %d, want 1", count)
	}
}

func TestProcessEvent_TransitionTable(t *testing.T) {
	endsAt := "2026-10-15T00:00:00Z"
	cases := []struct {
		event      string
		attrs      map[string]any
		wantStatus models.SubscriptionStatus
	}{
		{"subscription_updated", map[string]any{"cancelled": false, "renews_at": endsAt}, models.StatusActive},
		{"subscription_updated", map[string]any{"cancelled": true, "ends_at": endsAt}, models.StatusCancelled},
		{"subscription_cancelled", map[string]any{"ends_at": endsAt}, models.StatusCancelled},
		{"subscription_resumed", map[string]any{"renews_at": endsAt}, models.StatusActive},
		{"subscription_expired", map[string]any{}, models.StatusExpired},
		{"subscription_paused", map[string]any{}, models.StatusCancelled},
		{"subscription_unpaused", map[string]any{"renews_at": endsAt}, models.StatusActive},
		{"subscription_payment_success", map[string]any{"renews_at": endsAt}, models.StatusActive},
		{"subscription_payment_failed", map[string]any{}, models.StatusPastDue},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("%s_%d", tc.event, i), func(t *testing.T) {
			repos, users, _, _ := newTestRepos()
			svc := NewSubscriptionService(repos, testLogger())
			ctx := context.Background()

			seedUser(users, "user-1", models.Subscription{
				Status: models.StatusActive,
				Plan:   models.PlanPremium,
			}, models.Usage{ResetDate: time.Now().UTC()})

			payload, raw := webhookBody(t, tc.event, "user-1", tc.attrs)
			if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			user, _ := users.GetByID(ctx, "user-1")
			if user.Subscription.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", user.Subscription.Status, tc.wantStatus)
			}
		})
	}
}

func TestProcessEvent_ExpiredDowngradesPlan(t *testing.T) {
	repos, users, _, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	seedUser(users, "user-1", models.Subscription{
		Status: models.StatusActive,
		Plan:   models.PlanPremium,
	}, models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_expired", "user-1", map[string]any{})
	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Subscription.Plan != models.PlanFree {
		t.Errorf("plan = %q, want free", user.Subscription.Plan)
	}
}

func TestProcessEvent_ResumedClearsCancelledAt(t *testing.T) {
	repos, users, _, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	cancelled := time.Now().UTC()
	seedUser(users, "user-1", models.Subscription{
		Status:      models.StatusCancelled,
		Plan:        models.PlanPremium,
		CancelledAt: &cancelled,
	}, models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_resumed", "user-1", map[string]any{
		"renews_at": "2026-11-01T00:00:00Z",
	})
	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Subscription.CancelledAt != nil {
		t.Errorf("cancelledAt = %v, want nil", user.Subscription.CancelledAt)
	}
	if user.Subscription.Status != models.StatusActive {
		t.Errorf("status = %q, want active", user.Subscription.Status)
	}
}

func TestProcessEvent_PaymentEventsLogged(t *testing.T) {
	repos, users, events, payments := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	seedUser(users, "user-1", models.Subscription{
		Status: models.StatusActive,
		Plan:   models.PlanPremium,
	}, models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_payment_success", "user-1", map[string]any{
		"total":     999,
		"currency":  "USD",
		"renews_at": "2026-10-01T00:00:00Z",
	})
	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recorded, _ := payments.GetByUserID(ctx, "user-1", 10, 0)
	if len(recorded) != 1 {
		t.Fatalf("payments = %d, want 1", len(recorded))
	}
	if recorded[0].Status != models.PaymentSuccess {
		t.Errorf("status = %q, want success", recorded[0].Status)
	}
	if recorded[0].Amount == nil || *recorded[0].Amount != 999 {
		t.Errorf("amount = %v, want 999", recorded[0].Amount)
	}
	if recorded[0].Currency != "USD" {
		t.Errorf("currency = %q, want USD", recorded[0].Currency)
	}

	// Payment events are audited like every other recognized event
	count, _ := events.CountByUserID(ctx, "user-1")
	if count != 1 {
		t.Errorf("audit events = %d, want 1 for payment_success", count)
	}

	// Payment failure logs both a payment and an audit event
	failPayload, failRaw := webhookBody(t, "subscription_payment_failed", "user-1", map[string]any{})
	if err := svc.ProcessEvent(ctx, failPayload, failRaw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recorded, _ = payments.GetByUserID(ctx, "user-1", 10, 0)
	if len(recorded) != 2 {
		t.Errorf("payments = %d, want 2", len(recorded))
	}
	count, _ = events.CountByUserID(ctx, "user-1")
	if count != 2 {
		t.Errorf("audit events = %d, want 2", count)
	}
}

func TestProcessEvent_ReplayConvergesWithTwoAuditRows(t *testing.T) {
	repos, users, events, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	seedUser(users, "user-1", models.DefaultSubscription(), models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_created", "user-1", map[string]any{
		"customer_id": 55,
		"variant_id":  9,
		"renews_at":   "2026-10-01T00:00:00Z",
		"updated_at":  "2026-09-01T12:00:00Z",
	})

	for i := 0; i < 2; i++ {
		if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Subscription.Status != models.StatusActive {
		t.Errorf("status = %q, want active after replay", user.Subscription.Status)
	}

	count, _ := events.CountByUserID(ctx, "user-1")
	if count != 2 {
		t.Errorf("audit events = %d, want 2 (replays are audited)", count)
	}
}

func TestProcessEvent_StaleEventSkippedButAudited(t *testing.T) {
	repos, users, events, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	applied := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	seedUser(users, "user-1", models.Subscription{
		Status:         models.StatusCancelled,
		Plan:           models.PlanPremium,
		EventTimestamp: &applied,
	}, models.Usage{ResetDate: time.Now().UTC()})

	// A created event with an older provider timestamp arrives late
	payload, raw := webhookBody(t, "subscription_created", "user-1", map[string]any{
		"customer_id": 55,
		"variant_id":  9,
		"renews_at":   "2026-10-01T00:00:00Z",
		"updated_at":  "2026-09-01T00:00:00Z",
	})
	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Subscription.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled (stale event must not reactivate)", user.Subscription.Status)
	}

	count, _ := events.CountByUserID(ctx, "user-1")
	if count != 1 {
		t.Errorf("audit events = %d, want 1 (stale events still audited)", count)
	}
}

func TestProcessEvent_UserNotFound(t *testing.T) {
	repos, _, _, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())

	payload, raw := webhookBody(t, "subscription_created", "ghost", map[string]any{})
	if err := svc.ProcessEvent(context.Background(), payload, raw); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestProcessEvent_MissingUserID(t *testing.T) {
	repos, users, _, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())

	// A user with a matching subscription ID exists, but metadata is the
	// only trusted correlation; there is no fallback lookup.
	seedUser(users, "user-1", models.Subscription{
		Status:         models.StatusActive,
		Plan:           models.PlanPremium,
		SubscriptionID: "312",
	}, models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "subscription_cancelled", "", map[string]any{
		"ends_at": "2026-10-15T00:00:00Z",
	})
	if err := svc.ProcessEvent(context.Background(), payload, raw); !errors.Is(err, ErrMissingWebhookUser) {
		t.Errorf("err = %v, want ErrMissingWebhookUser", err)
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.Subscription.Status != models.StatusActive {
		t.Errorf("status = %q, want active (no mutation without user_id)", user.Subscription.Status)
	}
}

func TestProcessEvent_UnhandledEventIgnored(t *testing.T) {
	repos, users, events, _ := newTestRepos()
	svc := NewSubscriptionService(repos, testLogger())
	ctx := context.Background()

	seedUser(users, "user-1", models.DefaultSubscription(), models.Usage{ResetDate: time.Now().UTC()})

	payload, raw := webhookBody(t, "order_created", "user-1", map[string]any{})
	if err := svc.ProcessEvent(ctx, payload, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Subscription.Status != models.StatusFree {
		t.Errorf("status = %q, want free (unhandled event must not mutate)", user.Subscription.Status)
	}
	count, _ := events.CountByUserID(ctx, "user-1")
	if count != 0 {
		t.Errorf("audit events = %d, want 0", count)
	}
}
