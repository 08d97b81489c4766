package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lobisloby/privacyfill/internal/models"
	"github.com/lobisloby/privacyfill/internal/repository"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrMissingField indicates a required request field was empty.
	ErrMissingField = errors.New("missing required field")
)

// LedgerService owns the user ledger: registration, subscription status
// reads, and usage tracking. Webhook-driven writes live in SubscriptionService.
type LedgerService struct {
	repos     *repository.Repositories
	freeLimit int
	logger    *slog.Logger

	// now is injectable for tests around reset windows and expiry.
	now func() time.Time
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(repos *repository.Repositories, freeLimit int, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		repos:     repos,
		freeLimit: freeLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterResult is returned by RegisterUser.
type RegisterResult struct {
	UserID       string              `json:"userId"`
	IsNew        bool                `json:"isNew"`
	Subscription models.Subscription `json:"subscription"`
}

// RegisterUser creates a user if one does not exist. Registration is
// idempotent: an existing user is returned unchanged with isNew=false.
// An empty name defaults to the local part of the email.
func (s *LedgerService) RegisterUser(ctx context.Context, userID, email, name string) (*RegisterResult, error) {
	if userID == "" || email == "" {
		return nil, fmt.Errorf("%w: userId, email", ErrMissingField)
	}

	existing, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return &RegisterResult{
			UserID:       userID,
			IsNew:        false,
			Subscription: existing.Subscription,
		}, nil
	}

	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           userID,
		Email:        email,
		Name:         name,
		Subscription: models.DefaultSubscription(),
		Usage:        models.Usage{Count: 0, ResetDate: now},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("registered user", "user_id", userID)

	return &RegisterResult{
		UserID:       userID,
		IsNew:        true,
		Subscription: user.Subscription,
	}, nil
}

// GetUser returns the full ledger document for a user.
func (s *LedgerService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetSubscriptionStatus returns the subscription for a user. An active
// subscription whose expiry has passed is downgraded to expired, and the
// downgrade is persisted so subsequent reads agree.
func (s *LedgerService) GetSubscriptionStatus(ctx context.Context, userID string) (*models.Subscription, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Subscription.IsExpired(s.now()) {
		now := s.now().UTC()
		user.Subscription.Status = models.StatusExpired
		user.Subscription.UpdatedAt = &now
		user.UpdatedAt = now
		if err := s.repos.Users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to persist expiry downgrade: %w", err)
		}
		s.logger.Info("subscription expired on read", "user_id", userID)
	}

	sub := user.Subscription
	return &sub, nil
}

// TrackResult is returned by TrackUsage.
type TrackResult struct {
	Count int  `json:"count"`
	Reset bool `json:"reset"`
}

// TrackUsage increments the user's generation counter. The counter resets
// to zero when the stored reset date falls in a different calendar month
// or year than now, in which case the reset date is re-anchored to now.
func (s *LedgerService) TrackUsage(ctx context.Context, userID string) (*TrackResult, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	count := user.Usage.Count
	resetDate := user.Usage.ResetDate
	wasReset := false

	if shouldResetUsage(resetDate, now) {
		count = 0
		resetDate = now.UTC()
		wasReset = true
	}

	count++
	if err := s.repos.Users.UpdateUsage(ctx, userID, models.Usage{Count: count, ResetDate: resetDate}); err != nil {
		return nil, fmt.Errorf("failed to update usage: %w", err)
	}

	return &TrackResult{Count: count, Reset: wasReset}, nil
}

// FreeLimit returns the configured monthly free-tier generation limit.
func (s *LedgerService) FreeLimit() int {
	return s.freeLimit
}

// shouldResetUsage reports whether the reset window has rolled over:
// the stored date is in a different month or year than now.
func shouldResetUsage(resetDate, now time.Time) bool {
	return resetDate.Month() != now.Month() || resetDate.Year() != now.Year()
}
