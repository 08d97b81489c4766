package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lobisloby/privacyfill/internal/models"
	"github.com/lobisloby/privacyfill/internal/repository"
)

// mockUserRepository implements repository.UserRepository for testing
type mockUserRepository struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	getErr    error
	updateErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*models.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Subscription.SubscriptionID == subscriptionID {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepository) UpdateUsage(ctx context.Context, userID string, usage models.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Usage = usage
	}
	return nil
}

// mockEventRepository implements repository.SubscriptionEventRepository for testing
type mockEventRepository struct {
	mu     sync.RWMutex
	events []*models.SubscriptionEvent
}

func (m *mockEventRepository) Create(ctx context.Context, event *models.SubscriptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *event
	m.events = append(m.events, &copy)
	return nil
}

func (m *mockEventRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SubscriptionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.SubscriptionEvent
	for _, e := range m.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEventRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	events, _ := m.GetByUserID(ctx, userID, 0, 0)
	return len(events), nil
}

// mockPaymentRepository implements repository.PaymentRepository for testing
type mockPaymentRepository struct {
	mu       sync.RWMutex
	payments []*models.Payment
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments = append(m.payments, &copy)
	return nil
}

func (m *mockPaymentRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// newTestRepos builds a Repositories container backed by mocks.
func newTestRepos() (*repository.Repositories, *mockUserRepository, *mockEventRepository, *mockPaymentRepository) {
	users := newMockUserRepository()
	events := &mockEventRepository{}
	payments := &mockPaymentRepository{}
	repos := &repository.Repositories{
		Users:    users,
		Events:   events,
		Payments: payments,
	}
	return repos, users, events, payments
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(users *mockUserRepository, id string, sub models.Subscription, usage models.Usage) *models.User {
	now := time.Now().UTC()
	user := &models.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Test User",
		Subscription: sub,
		Usage:        usage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_ = users.Create(context.Background(), user)
	return user
}
