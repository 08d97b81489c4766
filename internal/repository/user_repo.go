package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lobisloby/privacyfill/internal/models"
)

// ========================================
// User Repository
// ========================================

const userColumns = `user_id, email, name, sub_status, sub_plan, lemonsqueezy_id, subscription_id,
	customer_id, variant_id, current_period_end, expires_at, cancelled_at, sub_created_at,
	sub_updated_at, sub_event_ts, usage_count, usage_reset_date, created_at, updated_at`

// SQLiteUserRepository implements UserRepository for SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sub := &user.Subscription
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name,
		string(sub.Status), string(sub.Plan),
		nullString(sub.LemonSqueezyID), nullString(sub.SubscriptionID),
		nullString(sub.CustomerID), nullString(sub.VariantID),
		nullTime(sub.CurrentPeriodEnd), nullTime(sub.ExpiresAt), nullTime(sub.CancelledAt),
		nullTime(sub.CreatedAt), nullTime(sub.UpdatedAt), nullTime(sub.EventTimestamp),
		user.Usage.Count, user.Usage.ResetDate.Format(time.RFC3339),
		user.CreatedAt.Format(time.RFC3339), user.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteUserRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subscription_id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, subscriptionID))
}

func (r *SQLiteUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET
		email = ?, name = ?, sub_status = ?, sub_plan = ?,
		lemonsqueezy_id = ?, subscription_id = ?, customer_id = ?, variant_id = ?,
		current_period_end = ?, expires_at = ?, cancelled_at = ?,
		sub_created_at = ?, sub_updated_at = ?, sub_event_ts = ?,
		usage_count = ?, usage_reset_date = ?, updated_at = ?
		WHERE user_id = ?`

	sub := &user.Subscription
	_, err := r.db.ExecContext(ctx, query,
		user.Email, user.Name,
		string(sub.Status), string(sub.Plan),
		nullString(sub.LemonSqueezyID), nullString(sub.SubscriptionID),
		nullString(sub.CustomerID), nullString(sub.VariantID),
		nullTime(sub.CurrentPeriodEnd), nullTime(sub.ExpiresAt), nullTime(sub.CancelledAt),
		nullTime(sub.CreatedAt), nullTime(sub.UpdatedAt), nullTime(sub.EventTimestamp),
		user.Usage.Count, user.Usage.ResetDate.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
		user.ID)
	return err
}

func (r *SQLiteUserRepository) UpdateUsage(ctx context.Context, userID string, usage models.Usage) error {
	query := `UPDATE users SET usage_count = ?, usage_reset_date = ?, updated_at = ? WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query,
		usage.Count, usage.ResetDate.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339), userID)
	return err
}

// scanner abstracts over *sql.Row so scanUser works for single-row lookups.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var status, plan string
	var lsID, subID, custID, varID sql.NullString
	var periodEnd, expiresAt, cancelledAt, subCreated, subUpdated, eventTS sql.NullString
	var resetDate, createdAt, updatedAt string

	err := row.Scan(&user.ID, &user.Email, &user.Name, &status, &plan,
		&lsID, &subID, &custID, &varID,
		&periodEnd, &expiresAt, &cancelledAt, &subCreated, &subUpdated, &eventTS,
		&user.Usage.Count, &resetDate, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Subscription.Status = models.SubscriptionStatus(status)
	user.Subscription.Plan = models.Plan(plan)
	user.Subscription.LemonSqueezyID = lsID.String
	user.Subscription.SubscriptionID = subID.String
	user.Subscription.CustomerID = custID.String
	user.Subscription.VariantID = varID.String
	user.Subscription.CurrentPeriodEnd = parseNullTime(periodEnd)
	user.Subscription.ExpiresAt = parseNullTime(expiresAt)
	user.Subscription.CancelledAt = parseNullTime(cancelledAt)
	user.Subscription.CreatedAt = parseNullTime(subCreated)
	user.Subscription.UpdatedAt = parseNullTime(subUpdated)
	user.Subscription.EventTimestamp = parseNullTime(eventTS)
	user.Usage.ResetDate, _ = time.Parse(time.RFC3339, resetDate)
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &user, nil
}

// nullString converts an empty string to a NULL parameter.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullTime converts a nil time to a NULL parameter, otherwise RFC3339 text.
func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
