package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lobisloby/privacyfill/internal/models"
)

// ========================================
// Subscription Event Repository
// ========================================

// SQLiteSubscriptionEventRepository implements SubscriptionEventRepository for SQLite.
type SQLiteSubscriptionEventRepository struct {
	db *sql.DB
}

// NewSQLiteSubscriptionEventRepository creates a new SQLite subscription event repository.
func NewSQLiteSubscriptionEventRepository(db *sql.DB) *SQLiteSubscriptionEventRepository {
	return &SQLiteSubscriptionEventRepository{db: db}
}

func (r *SQLiteSubscriptionEventRepository) Create(ctx context.Context, event *models.SubscriptionEvent) error {
	query := `INSERT INTO subscription_events (id, user_id, event, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Event, event.PayloadJSON,
		event.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteSubscriptionEventRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SubscriptionEvent, error) {
	query := `SELECT id, user_id, event, payload_json, created_at
		FROM subscription_events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []*models.SubscriptionEvent
	for rows.Next() {
		var event models.SubscriptionEvent
		var createdAt string
		if err := rows.Scan(&event.ID, &event.UserID, &event.Event, &event.PayloadJSON, &createdAt); err != nil {
			return nil, err
		}
		event.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, &event)
	}

	return events, rows.Err()
}

func (r *SQLiteSubscriptionEventRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscription_events WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// ========================================
// Payment Repository
// ========================================

// SQLitePaymentRepository implements PaymentRepository for SQLite.
type SQLitePaymentRepository struct {
	db *sql.DB
}

// NewSQLitePaymentRepository creates a new SQLite payment repository.
func NewSQLitePaymentRepository(db *sql.DB) *SQLitePaymentRepository {
	return &SQLitePaymentRepository{db: db}
}

func (r *SQLitePaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `INSERT INTO payments (id, user_id, status, amount, currency, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.UserID, string(payment.Status),
		payment.Amount, nullString(payment.Currency), payment.PayloadJSON,
		payment.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLitePaymentRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	query := `SELECT id, user_id, status, amount, currency, payload_json, created_at
		FROM payments WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payments []*models.Payment
	for rows.Next() {
		var payment models.Payment
		var status, createdAt string
		var amount sql.NullInt64
		var currency sql.NullString
		if err := rows.Scan(&payment.ID, &payment.UserID, &status, &amount, &currency, &payment.PayloadJSON, &createdAt); err != nil {
			return nil, err
		}
		payment.Status = models.PaymentStatus(status)
		if amount.Valid {
			payment.Amount = &amount.Int64
		}
		payment.Currency = currency.String
		payment.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}
