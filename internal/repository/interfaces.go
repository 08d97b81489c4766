// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"

	"github.com/lobisloby/privacyfill/internal/models"
)

// UserRepository defines methods for user ledger data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetBySubscriptionID looks a user up by their provider subscription ID.
	// Used when a webhook arrives without custom metadata.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// UpdateUsage writes only the usage counter and reset date.
	UpdateUsage(ctx context.Context, userID string, usage models.Usage) error
}

// SubscriptionEventRepository defines methods for the webhook audit trail.
// Events are write-once; there is no update or delete.
type SubscriptionEventRepository interface {
	Create(ctx context.Context, event *models.SubscriptionEvent) error
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SubscriptionEvent, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// PaymentRepository defines methods for the payment audit trail. Write-once.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error)
}

// ========================================
// Repository Container
// ========================================

// Repositories holds all repository instances.
type Repositories struct {
	Users    UserRepository
	Events   SubscriptionEventRepository
	Payments PaymentRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:    NewSQLiteUserRepository(db),
		Events:   NewSQLiteSubscriptionEventRepository(db),
		Payments: NewSQLitePaymentRepository(db),
	}
}
