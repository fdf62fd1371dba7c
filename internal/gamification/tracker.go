// Package gamification tracks the learner's daily streak, experience points
// and level.
package gamification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hskmaster/internal/counters"
	"hskmaster/internal/metrics"
	"hskmaster/internal/models"
)

// Namespace is the counter namespace holding progress keys
const Namespace = "user_progress"

const (
	keyCurrentStreak  = "current_streak"
	keyLongestStreak  = "longest_streak"
	keyLastActiveDate = "last_active_date"
	keyTotalXP        = "total_xp"
	keyTodayXP        = "today_xp"
	keyTodayXPDate    = "today_xp_date"

	dateLayout = "2006-01-02"
)

// Tracker keeps streak and XP state in a counter store. Calendar days are
// taken in the tracker's location.
type Tracker struct {
	store   counters.Store
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Metrics
	log     logrus.FieldLogger

	// serialises load-modify-save cycles
	mu sync.Mutex
}

// NewTracker creates a tracker. A nil loc means time.Local.
func NewTracker(store counters.Store, loc *time.Location, log logrus.FieldLogger, m *metrics.Metrics) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		store:   store,
		loc:     loc,
		now:     time.Now,
		metrics: m,
		log:     log.WithField("component", "gamification"),
	}
}

// WithClock replaces the tracker's time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) today() string {
	return t.now().In(t.loc).Format(dateLayout)
}

func (t *Tracker) yesterday() string {
	return t.now().In(t.loc).AddDate(0, 0, -1).Format(dateLayout)
}

func (t *Tracker) load(ctx context.Context) (counters.Values, error) {
	values, err := t.store.Load(ctx, Namespace)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return values, nil
}

func (t *Tracker) save(ctx context.Context, values counters.Values) error {
	if err := t.store.Save(ctx, Namespace, values); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// recordActivity applies today's activity to values and reports whether
// anything changed
func (t *Tracker) recordActivity(values counters.Values) bool {
	today := t.today()
	last := values.String(keyLastActiveDate, "")
	if last == today {
		return false
	}

	streak := 1
	if last == t.yesterday() {
		streak = values.Int(keyCurrentStreak, 0) + 1
	}

	longest := values.Int(keyLongestStreak, 0)
	if streak > longest {
		longest = streak
	}

	values.SetInt(keyCurrentStreak, streak)
	values.SetInt(keyLongestStreak, longest)
	values.SetString(keyLastActiveDate, today)

	t.log.WithFields(logrus.Fields{"streak": streak, "longest": longest}).Debug("activity recorded")
	return true
}

// decayStreak zeroes a streak whose last activity is older than yesterday
// and reports whether it did
func (t *Tracker) decayStreak(values counters.Values) bool {
	last := values.String(keyLastActiveDate, "")
	if last == "" || last == t.today() || last == t.yesterday() {
		return false
	}
	if values.Int(keyCurrentStreak, 0) == 0 {
		return false
	}
	values.SetInt(keyCurrentStreak, 0)
	return true
}

func (t *Tracker) todayXP(values counters.Values) int {
	if values.String(keyTodayXPDate, "") != t.today() {
		return 0
	}
	return values.Int(keyTodayXP, 0)
}

// RecordActivity marks today as active. Repeated calls on the same day are
// no-ops; activity the day after the last one extends the streak and any
// longer gap restarts it at 1.
func (t *Tracker) RecordActivity(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	values, err := t.load(ctx)
	if err != nil {
		return err
	}
	if !t.recordActivity(values) {
		return nil
	}
	return t.save(ctx, values)
}

// CurrentStreak returns the streak, first resetting it to 0 when the last
// active day is older than yesterday
func (t *Tracker) CurrentStreak(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	values, err := t.currentValues(ctx)
	if err != nil {
		return 0, err
	}
	return values.Int(keyCurrentStreak, 0), nil
}

// currentValues loads the namespace and persists a streak decay if one applies
func (t *Tracker) currentValues(ctx context.Context) (counters.Values, error) {
	values, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	if t.decayStreak(values) {
		reset := counters.Values{}
		reset.SetInt(keyCurrentStreak, 0)
		if err := t.save(ctx, reset); err != nil {
			return nil, err
		}
		t.log.Info("streak lapsed")
	}
	return values, nil
}

// LongestStreak returns the longest streak ever reached
func (t *Tracker) LongestStreak(ctx context.Context) (int, error) {
	values, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return values.Int(keyLongestStreak, 0), nil
}

// TotalXP returns all XP ever earned
func (t *Tracker) TotalXP(ctx context.Context) (int, error) {
	values, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return values.Int(keyTotalXP, 0), nil
}

// TodayXP returns the XP earned today, 0 if none was earned today
func (t *Tracker) TodayXP(ctx context.Context) (int, error) {
	values, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return t.todayXP(values), nil
}

// AddXP adds amount to the total and to today's tally, starting today's
// tally over when it belongs to an earlier day, and records activity.
// It returns amount.
func (t *Tracker) AddXP(ctx context.Context, amount int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	values, err := t.load(ctx)
	if err != nil {
		return 0, err
	}

	total := values.Int(keyTotalXP, 0) + amount
	today := t.todayXP(values) + amount

	values.SetInt(keyTotalXP, total)
	values.SetInt(keyTodayXP, today)
	values.SetString(keyTodayXPDate, t.today())
	t.recordActivity(values)

	if err := t.save(ctx, values); err != nil {
		return 0, err
	}

	t.metrics.XPAwarded(amount)
	t.log.WithFields(logrus.Fields{"amount": amount, "total_xp": total}).Debug("xp awarded")
	return amount, nil
}

// AddCorrectAnswerXP awards XPCorrectAnswer
func (t *Tracker) AddCorrectAnswerXP(ctx context.Context) (int, error) {
	return t.AddXP(ctx, XPCorrectAnswer)
}

// AddWrongAnswerXP awards XPWrongAnswer
func (t *Tracker) AddWrongAnswerXP(ctx context.Context) (int, error) {
	return t.AddXP(ctx, XPWrongAnswer)
}

// AddGameCompletionXP awards XPGameComplete
func (t *Tracker) AddGameCompletionXP(ctx context.Context) (int, error) {
	return t.AddXP(ctx, XPGameComplete)
}

// AddPerfectGameXP awards XPPerfectGame
func (t *Tracker) AddPerfectGameXP(ctx context.Context) (int, error) {
	return t.AddXP(ctx, XPPerfectGame)
}

// WasActiveToday reports whether activity was recorded today
func (t *Tracker) WasActiveToday(ctx context.Context) (bool, error) {
	values, err := t.load(ctx)
	if err != nil {
		return false, err
	}
	return values.String(keyLastActiveDate, "") == t.today(), nil
}

// IsStreakAtRisk reports a live streak with no activity yet today
func (t *Tracker) IsStreakAtRisk(ctx context.Context) (bool, error) {
	values, err := t.load(ctx)
	if err != nil {
		return false, err
	}
	return t.atRisk(values), nil
}

func (t *Tracker) atRisk(values counters.Values) bool {
	return values.Int(keyCurrentStreak, 0) > 0 && values.String(keyLastActiveDate, "") != t.today()
}

// Stats returns a snapshot of every progress figure. The streak decay
// is applied first.
func (t *Tracker) Stats(ctx context.Context) (models.ProgressStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	values, err := t.currentValues(ctx)
	if err != nil {
		return models.ProgressStats{}, err
	}

	total := values.Int(keyTotalXP, 0)
	level := LevelForXP(total)

	return models.ProgressStats{
		CurrentStreak:  values.Int(keyCurrentStreak, 0),
		LongestStreak:  values.Int(keyLongestStreak, 0),
		TotalXP:        total,
		TodayXP:        t.todayXP(values),
		CurrentLevel:   level,
		LevelProgress:  LevelProgress(total),
		XPToNextLevel:  XPToNextLevel(total),
		LevelTitle:     LevelTitle(level),
		IsStreakAtRisk: t.atRisk(values),
	}, nil
}

// Reset forgets all progress
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Clear(ctx, Namespace); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	t.log.Info("progress reset")
	return nil
}
