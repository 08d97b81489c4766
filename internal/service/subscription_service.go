package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lobisloby/privacyfill/internal/lemonsqueezy"
	"github.com/lobisloby/privacyfill/internal/models"
	"github.com/lobisloby/privacyfill/internal/repository"
)

// ErrMissingWebhookUser indicates a webhook arrived without a user_id in
// its custom metadata. There is no fallback lookup by billing IDs; the
// metadata is the only trusted correlation.
var ErrMissingWebhookUser = errors.New("webhook missing user_id in custom_data")

// SubscriptionService applies Lemon Squeezy webhook events to the ledger.
// Events are applied independently; a per-event timestamp guard makes
// out-of-order delivery safe without per-user locking.
type SubscriptionService struct {
	repos  *repository.Repositories
	logger *slog.Logger

	now func() time.Time
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(repos *repository.Repositories, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repos:  repos,
		logger: logger,
		now:    time.Now,
	}
}

// ProcessEvent applies one verified webhook event. The raw body is kept
// verbatim in the audit trail; every recognized event is audited even
// when it does not change subscription fields. Replays are applied again
// (the transition table is idempotent) and audited again.
func (s *SubscriptionService) ProcessEvent(ctx context.Context, payload *lemonsqueezy.WebhookPayload, rawBody []byte) error {
	eventName := payload.Meta.EventName
	attrs := &payload.Data.Attributes

	userID := payload.Meta.CustomData.UserID
	if userID == "" {
		return ErrMissingWebhookUser
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	s.logger.Info("processing webhook event", "event", eventName, "user_id", userID)

	// Stale events must not roll the subscription backwards, but the
	// audit trail still records that they arrived.
	if s.isStale(user, attrs) {
		s.logger.Warn("skipping stale webhook event",
			"event", eventName,
			"user_id", userID,
			"event_ts", attrs.UpdatedAt.Format(time.RFC3339),
			"applied_ts", user.Subscription.EventTimestamp.Format(time.RFC3339),
		)
		return s.logEvent(ctx, userID, eventName, rawBody)
	}

	var upd *models.SubscriptionUpdate

	switch eventName {
	case lemonsqueezy.EventSubscriptionCreated:
		upd = &models.SubscriptionUpdate{
			Status:           statusPtr(models.StatusActive),
			Plan:             planPtr(models.PlanPremium),
			LemonSqueezyID:   strPtr(payload.Data.ID),
			SubscriptionID:   strPtr(subscriptionID(payload)),
			CustomerID:       strPtr(strconv.FormatInt(attrs.CustomerID, 10)),
			VariantID:        strPtr(strconv.FormatInt(attrs.VariantID, 10)),
			CurrentPeriodEnd: attrs.RenewsAt,
			ExpiresAt:        attrs.RenewsAt,
			CreatedAt:        timePtr(s.now().UTC()),
		}

	case lemonsqueezy.EventSubscriptionUpdated:
		status := models.StatusActive
		if attrs.Cancelled {
			status = models.StatusCancelled
		}
		expires := attrs.EndsAt
		if expires == nil {
			expires = attrs.RenewsAt
		}
		upd = &models.SubscriptionUpdate{
			Status:           &status,
			CurrentPeriodEnd: attrs.RenewsAt,
			ExpiresAt:        expires,
		}

	case lemonsqueezy.EventSubscriptionCancelled:
		upd = &models.SubscriptionUpdate{
			Status:      statusPtr(models.StatusCancelled),
			CancelledAt: timePtr(s.now().UTC()),
			ExpiresAt:   attrs.EndsAt,
		}

	case lemonsqueezy.EventSubscriptionResumed:
		upd = &models.SubscriptionUpdate{
			Status:           statusPtr(models.StatusActive),
			ClearCancelledAt: true,
			ExpiresAt:        attrs.RenewsAt,
		}

	case lemonsqueezy.EventSubscriptionExpired:
		upd = &models.SubscriptionUpdate{
			Status: statusPtr(models.StatusExpired),
			Plan:   planPtr(models.PlanFree),
		}

	case lemonsqueezy.EventSubscriptionPaused:
		// Paused is collapsed into cancelled; the ledger has no
		// separate paused state.
		upd = &models.SubscriptionUpdate{
			Status: statusPtr(models.StatusCancelled),
		}

	case lemonsqueezy.EventSubscriptionUnpaused:
		upd = &models.SubscriptionUpdate{
			Status:    statusPtr(models.StatusActive),
			ExpiresAt: attrs.RenewsAt,
		}

	case lemonsqueezy.EventSubscriptionPaymentSuccess:
		if err := s.logPayment(ctx, userID, models.PaymentSuccess, attrs, rawBody); err != nil {
			return err
		}
		upd = &models.SubscriptionUpdate{
			Status:    statusPtr(models.StatusActive),
			ExpiresAt: attrs.RenewsAt,
		}

	case lemonsqueezy.EventSubscriptionPaymentFailed:
		if err := s.logPayment(ctx, userID, models.PaymentFailed, attrs, rawBody); err != nil {
			return err
		}
		upd = &models.SubscriptionUpdate{
			Status: statusPtr(models.StatusPastDue),
		}

	default:
		s.logger.Debug("unhandled webhook event", "event", eventName)
		return nil
	}

	upd.EventTimestamp = attrs.UpdatedAt
	if err := s.applyUpdate(ctx, user, upd); err != nil {
		return err
	}
	return s.logEvent(ctx, userID, eventName, rawBody)
}

// isStale reports whether the event's provider timestamp predates the
// last applied one.
func (s *SubscriptionService) isStale(user *models.User, attrs *lemonsqueezy.Attributes) bool {
	return attrs.UpdatedAt != nil &&
		user.Subscription.EventTimestamp != nil &&
		attrs.UpdatedAt.Before(*user.Subscription.EventTimestamp)
}

// applyUpdate merges a partial subscription update into the user row.
// Nil fields are left untouched.
func (s *SubscriptionService) applyUpdate(ctx context.Context, user *models.User, upd *models.SubscriptionUpdate) error {
	sub := &user.Subscription

	if upd.Status != nil {
		sub.Status = *upd.Status
	}
	if upd.Plan != nil {
		sub.Plan = *upd.Plan
	}
	if upd.LemonSqueezyID != nil {
		sub.LemonSqueezyID = *upd.LemonSqueezyID
	}
	if upd.SubscriptionID != nil {
		sub.SubscriptionID = *upd.SubscriptionID
	}
	if upd.CustomerID != nil {
		sub.CustomerID = *upd.CustomerID
	}
	if upd.VariantID != nil {
		sub.VariantID = *upd.VariantID
	}
	if upd.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = upd.CurrentPeriodEnd
	}
	if upd.ExpiresAt != nil {
		sub.ExpiresAt = upd.ExpiresAt
	}
	if upd.ClearExpiresAt {
		sub.ExpiresAt = nil
	}
	if upd.CancelledAt != nil {
		sub.CancelledAt = upd.CancelledAt
	}
	if upd.ClearCancelledAt {
		sub.CancelledAt = nil
	}
	if upd.CreatedAt != nil {
		sub.CreatedAt = upd.CreatedAt
	}
	if upd.EventTimestamp != nil {
		sub.EventTimestamp = upd.EventTimestamp
	}

	now := s.now().UTC()
	sub.UpdatedAt = &now
	user.UpdatedAt = now

	if err := s.repos.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (s *SubscriptionService) logEvent(ctx context.Context, userID, event string, rawBody []byte) error {
	record := &models.SubscriptionEvent{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Event:       event,
		PayloadJSON: string(rawBody),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repos.Events.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to log subscription event: %w", err)
	}
	return nil
}

func (s *SubscriptionService) logPayment(ctx context.Context, userID string, status models.PaymentStatus, attrs *lemonsqueezy.Attributes, rawBody []byte) error {
	record := &models.Payment{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Status:      status,
		Amount:      attrs.Total,
		Currency:    attrs.Currency,
		PayloadJSON: string(rawBody),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repos.Payments.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to log payment: %w", err)
	}
	return nil
}

// subscriptionID extracts the canonical subscription ID for an event,
// preferring the first subscription item over the object ID.
func subscriptionID(payload *lemonsqueezy.WebhookPayload) string {
	if item := payload.Data.Attributes.FirstSubscriptionItem; item != nil && item.SubscriptionID != 0 {
		return strconv.FormatInt(item.SubscriptionID, 10)
	}
	return payload.Data.ID
}

func statusPtr(s models.SubscriptionStatus) *models.SubscriptionStatus { return &s }
func planPtr(p models.Plan) *models.Plan                               { return &p }
func strPtr(s string) *string                                          { return &s }
func timePtr(t time.Time) *time.Time                                   { return &t }
