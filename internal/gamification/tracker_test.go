package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hskmaster/internal/counters"
	"hskmaster/internal/logging"
	"hskmaster/internal/metrics"
)

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advanceDays(days int) { c.t = c.t.AddDate(0, 0, days) }

func newTestTracker(t *testing.T) (*Tracker, *clock, counters.Store) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)}
	store := counters.NewMemoryStore()
	tracker := NewTracker(store, time.UTC, logging.Discard(), metrics.New()).WithClock(c.now)
	return tracker, c, store
}

func TestRecordActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("first activity starts a streak", func(t *testing.T) {
		tracker, _, _ := newTestTracker(t)
		require.NoError(t, tracker.RecordActivity(ctx))

		streak, err := tracker.CurrentStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, streak)

		active, err := tracker.WasActiveToday(ctx)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("same day is idempotent", func(t *testing.T) {
		tracker, _, _ := newTestTracker(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, tracker.RecordActivity(ctx))
		}

		streak, err := tracker.CurrentStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, streak)
	})

	t.Run("thirty consecutive days", func(t *testing.T) {
		tracker, c, _ := newTestTracker(t)
		for day := 0; day < 30; day++ {
			require.NoError(t, tracker.RecordActivity(ctx))
			c.advanceDays(1)
		}
		c.advanceDays(-1)

		streak, err := tracker.CurrentStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 30, streak)

		longest, err := tracker.LongestStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 30, longest)
	})

	t.Run("a skipped day restarts at one", func(t *testing.T) {
		tracker, c, _ := newTestTracker(t)
		for day := 0; day < 4; day++ {
			require.NoError(t, tracker.RecordActivity(ctx))
			c.advanceDays(1)
		}
		c.advanceDays(1)
		require.NoError(t, tracker.RecordActivity(ctx))

		streak, err := tracker.CurrentStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, streak)

		longest, err := tracker.LongestStreak(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, longest, "longest streak is never lowered")
	})
}

func TestCurrentStreakDecay(t *testing.T) {
	ctx := context.Background()
	tracker, c, store := newTestTracker(t)

	for day := 0; day < 3; day++ {
		require.NoError(t, tracker.RecordActivity(ctx))
		c.advanceDays(1)
	}

	// yesterday was the last active day: streak still alive but at risk
	streak, err := tracker.CurrentStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, streak)

	atRisk, err := tracker.IsStreakAtRisk(ctx)
	require.NoError(t, err)
	assert.True(t, atRisk)

	c.advanceDays(1)
	streak, err = tracker.CurrentStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	stored, err := store.Load(ctx, Namespace)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Int("current_streak", -1), "decay is persisted")
	assert.Equal(t, 3, stored.Int("longest_streak", 0))

	atRisk, err = tracker.IsStreakAtRisk(ctx)
	require.NoError(t, err)
	assert.False(t, atRisk)
}

func TestAddXP(t *testing.T) {
	ctx := context.Background()
	tracker, c, _ := newTestTracker(t)

	awarded, err := tracker.AddCorrectAnswerXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, XPCorrectAnswer, awarded)

	_, err = tracker.AddWrongAnswerXP(ctx)
	require.NoError(t, err)

	total, err := tracker.TotalXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, total)

	today, err := tracker.TodayXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, today)

	active, err := tracker.WasActiveToday(ctx)
	require.NoError(t, err)
	assert.True(t, active, "earning xp counts as activity")

	c.advanceDays(1)
	today, err = tracker.TodayXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, today, "yesterday's tally does not carry over")

	_, err = tracker.AddGameCompletionXP(ctx)
	require.NoError(t, err)
	_, err = tracker.AddPerfectGameXP(ctx)
	require.NoError(t, err)

	today, err = tracker.TodayXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, XPGameComplete+XPPerfectGame, today)

	total, err = tracker.TotalXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12+XPGameComplete+XPPerfectGame, total)

	streak, err := tracker.CurrentStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t)

	stats, err := tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentLevel)
	assert.Equal(t, "Beginner", stats.LevelTitle)
	assert.Equal(t, 100, stats.XPToNextLevel)
	assert.False(t, stats.IsStreakAtRisk)

	_, err = tracker.AddXP(ctx, 260)
	require.NoError(t, err)

	stats, err = tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 260, stats.TotalXP)
	assert.Equal(t, 260, stats.TodayXP)
	assert.Equal(t, 3, stats.CurrentLevel)
	assert.Equal(t, 240, stats.XPToNextLevel)
	assert.InDelta(t, 0.04, stats.LevelProgress, 1e-9)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)

	require.NoError(t, tracker.Reset(ctx))
	stats, err = tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalXP)
	assert.Zero(t, stats.CurrentStreak)
}

func TestDayBoundaryUsesLocation(t *testing.T) {
	ctx := context.Background()
	shanghai := time.FixedZone("CST", 8*60*60)

	// 17:00 UTC on the 10th is already the 11th in Shanghai
	c := &clock{t: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)}
	store := counters.NewMemoryStore()
	tracker := NewTracker(store, shanghai, logging.Discard(), nil).WithClock(c.now)

	require.NoError(t, tracker.RecordActivity(ctx))

	values, err := store.Load(ctx, Namespace)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", values.String("last_active_date", ""))
}
