// Package quota gates identity generation for free users against a
// monthly limit kept in the local state store.
package quota

import (
	"time"

	"github.com/lobisloby/privacyfill/internal/store"
)

// DefaultFreeLimit is the free-tier monthly generation allowance.
const DefaultFreeLimit = 10

// Engine applies the free-tier monthly quota. Premium users bypass it
// entirely.
type Engine struct {
	store *store.Store
	limit int
	now   func() time.Time
}

func NewEngine(s *store.Store, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultFreeLimit
	}
	return &Engine{store: s, limit: limit, now: time.Now}
}

// Limit returns the configured monthly allowance.
func (e *Engine) Limit() int {
	return e.limit
}

// CheckAndApplyMonthlyReset zeroes the counter when the stored reset
// date falls in a different month than now. A missing reset date is a
// first run and also resets. Returns whether a reset was applied.
func (e *Engine) CheckAndApplyMonthlyReset() (bool, error) {
	usage := e.store.Usage()
	now := e.now()

	if usage.ResetDate != nil &&
		usage.ResetDate.Month() == now.Month() &&
		usage.ResetDate.Year() == now.Year() {
		return false, nil
	}

	if err := e.store.SetUsage(0, now); err != nil {
		return false, err
	}
	return true, nil
}

// CanGenerate reports whether a generation is allowed right now.
func (e *Engine) CanGenerate() (bool, error) {
	if e.store.IsPremium() {
		return true, nil
	}
	if _, err := e.CheckAndApplyMonthlyReset(); err != nil {
		return false, err
	}
	count := e.store.Usage().Count
	if count < 0 {
		count = 0
	}
	return count < e.limit, nil
}

// RecordGeneration increments the counter and returns the new count.
// Premium users are not counted.
func (e *Engine) RecordGeneration() (int, error) {
	usage := e.store.Usage()
	if e.store.IsPremium() {
		return usage.Count, nil
	}

	if _, err := e.CheckAndApplyMonthlyReset(); err != nil {
		return 0, err
	}

	usage = e.store.Usage()
	count := usage.Count
	if count < 0 {
		count = 0
	}
	count++

	resetDate := e.now()
	if usage.ResetDate != nil {
		resetDate = *usage.ResetDate
	}
	if err := e.store.SetUsage(count, resetDate); err != nil {
		return 0, err
	}
	return count, nil
}

// Remaining returns how many free generations are left this month.
// Premium users always have the full limit reported.
func (e *Engine) Remaining() (int, error) {
	if e.store.IsPremium() {
		return e.limit, nil
	}
	if _, err := e.CheckAndApplyMonthlyReset(); err != nil {
		return 0, err
	}
	remaining := e.limit - e.store.Usage().Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
