package quota

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobisloby/privacyfill/internal/models"
	"github.com/lobisloby/privacyfill/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return NewEngine(s, 10), s
}

func setNow(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func TestFirstRunResets(t *testing.T) {
	engine, s := newTestEngine(t)

	wasReset, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)
	assert.True(t, wasReset, "first run should reset")
	assert.NotNil(t, s.Usage().ResetDate, "reset date should be persisted")
}

func TestMonthlyResetIdempotentWithinMonth(t *testing.T) {
	engine, _ := newTestEngine(t)
	setNow(engine, time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC))

	wasReset, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)
	require.True(t, wasReset)

	for i := 0; i < 3; i++ {
		wasReset, err = engine.CheckAndApplyMonthlyReset()
		require.NoError(t, err)
		assert.False(t, wasReset, "repeat check within the same month reset again")
	}
}

func TestMonthRolloverResets(t *testing.T) {
	engine, s := newTestEngine(t)
	setNow(engine, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))

	_, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = engine.RecordGeneration()
		require.NoError(t, err)
	}
	require.Equal(t, 5, s.Usage().Count)

	setNow(engine, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	wasReset, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)
	assert.True(t, wasReset, "month rollover should reset")
	assert.Equal(t, 0, s.Usage().Count)
}

func TestYearBoundaryResets(t *testing.T) {
	engine, _ := newTestEngine(t)

	// Same month, different year
	setNow(engine, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	_, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)

	setNow(engine, time.Date(2027, 8, 15, 0, 0, 0, 0, time.UTC))
	wasReset, err := engine.CheckAndApplyMonthlyReset()
	require.NoError(t, err)
	assert.True(t, wasReset, "year change with same month should reset")
}

func TestQuotaGateAtLimit(t *testing.T) {
	engine, _ := newTestEngine(t)
	setNow(engine, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))

	for i := 1; i <= 10; i++ {
		ok, err := engine.CanGenerate()
		require.NoError(t, err)
		require.True(t, ok, "generation %d blocked below the limit", i)

		count, err := engine.RecordGeneration()
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	ok, err := engine.CanGenerate()
	require.NoError(t, err)
	assert.False(t, ok, "generation allowed at the limit")

	remaining, err := engine.Remaining()
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestPremiumBypassesQuota(t *testing.T) {
	engine, s := newTestEngine(t)
	setNow(engine, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.SetSubscription(models.Subscription{
		Status: models.StatusActive,
		Plan:   models.PlanPremium,
	}, time.Now()))

	for i := 0; i < 25; i++ {
		ok, err := engine.CanGenerate()
		require.NoError(t, err)
		require.True(t, ok, "premium user blocked")

		_, err = engine.RecordGeneration()
		require.NoError(t, err)
	}

	// Premium generations do not consume the counter
	assert.Equal(t, 0, s.Usage().Count)
}

func TestLicenseUnlocksQuota(t *testing.T) {
	engine, s := newTestEngine(t)
	setNow(engine, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 10; i++ {
		_, err := engine.RecordGeneration()
		require.NoError(t, err)
	}
	ok, err := engine.CanGenerate()
	require.NoError(t, err)
	require.False(t, ok, "free user should be at the limit")

	require.NoError(t, s.SetLicense(store.LicenseInfo{Key: "PF-KEY", InstanceID: "inst"}))

	ok, err = engine.CanGenerate()
	require.NoError(t, err)
	assert.True(t, ok, "license holder blocked by quota")
}

func TestResetDatePreservedAcrossIncrements(t *testing.T) {
	engine, s := newTestEngine(t)
	first := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	setNow(engine, first)
	_, err := engine.RecordGeneration()
	require.NoError(t, err)

	setNow(engine, time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))
	_, err = engine.RecordGeneration()
	require.NoError(t, err)

	usage := s.Usage()
	require.NotNil(t, usage.ResetDate)
	assert.True(t, usage.ResetDate.Equal(first), "resetDate = %v, want preserved %v", usage.ResetDate, first)
	assert.Equal(t, 2, usage.Count)
}
