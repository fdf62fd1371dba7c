package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hskmaster/internal/models"
	"hskmaster/internal/repository"
)

// WeekDays is the number of days covered by WeeklyStats
const WeekDays = 7

// StatsService derives day, week and level views from the record store
type StatsService struct {
	records repository.RecordStore
	loc     *time.Location
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewStatsService creates a stats service. Calendar days are taken in loc;
// a nil loc means time.Local.
func NewStatsService(records repository.RecordStore, loc *time.Location, log logrus.FieldLogger) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{
		records: records,
		loc:     loc,
		now:     time.Now,
		log:     log.WithField("component", "stats"),
	}
}

// WithClock replaces the service's time source
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// dayBounds returns local midnight of date and the following midnight
func (s *StatsService) dayBounds(date time.Time) (time.Time, time.Time) {
	d := date.In(s.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// DailyStats summarises the records of the calendar day containing date
func (s *StatsService) DailyStats(ctx context.Context, date time.Time) (models.DailyStats, error) {
	start, end := s.dayBounds(date)
	stats := models.DailyStats{
		Date:          start.Format("2006-01-02"),
		GameBreakdown: map[models.GameType]models.GameStats{},
	}

	records, err := s.records.ByDateRange(ctx, start, end.Add(-time.Millisecond))
	if err != nil {
		return stats, fmt.Errorf("daily stats %s: %w", stats.Date, err)
	}

	characters := make(map[string]struct{})
	for _, r := range records {
		if r.IsCorrect {
			stats.CorrectCount++
		}
		characters[r.Character] = struct{}{}
	}
	stats.TotalAttempts = len(records)
	stats.WrongCount = stats.TotalAttempts - stats.CorrectCount
	stats.AccuracyRate = models.Percentage(stats.CorrectCount, stats.TotalAttempts)
	stats.CharactersLearned = len(characters)

	games, err := s.records.GameStatsBetween(ctx, start, end)
	if err != nil {
		return stats, fmt.Errorf("daily game stats %s: %w", stats.Date, err)
	}
	for _, g := range games {
		stats.GameBreakdown[g.GameType] = g
	}

	return stats, nil
}

// WeeklyStats returns DailyStats for today and the six days before it,
// oldest first
func (s *StatsService) WeeklyStats(ctx context.Context) ([]models.DailyStats, error) {
	today := s.now().In(s.loc)
	week := make([]models.DailyStats, WeekDays)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < WeekDays; i++ {
		day := today.AddDate(0, 0, i-(WeekDays-1))
		g.Go(func() error {
			stats, err := s.DailyStats(ctx, day)
			if err != nil {
				return err
			}
			week[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return week, nil
}

// WordMasteryByLevel maps each character practiced at level to the fraction
// of its attempts that were correct
func (s *StatsService) WordMasteryByLevel(ctx context.Context, level int) (map[string]float64, error) {
	records, err := s.records.ByLevel(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("word mastery level %d: %w", level, err)
	}

	type tally struct{ correct, total int }
	tallies := make(map[string]*tally)
	for _, r := range records {
		t, ok := tallies[r.Character]
		if !ok {
			t = &tally{}
			tallies[r.Character] = t
		}
		t.total++
		if r.IsCorrect {
			t.correct++
		}
	}

	mastery := make(map[string]float64, len(tallies))
	for character, t := range tallies {
		if t.total == 0 {
			mastery[character] = 0
			continue
		}
		mastery[character] = float64(t.correct) / float64(t.total)
	}
	return mastery, nil
}

// UniqueWordsByLevel counts the distinct characters practiced at level
func (s *StatsService) UniqueWordsByLevel(ctx context.Context, level int) (int, error) {
	records, err := s.records.ByLevel(ctx, level)
	if err != nil {
		return 0, fmt.Errorf("unique words level %d: %w", level, err)
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Character] = struct{}{}
	}
	return len(seen), nil
}

// LevelCoverage returns the share of a level's vocabulary that has been
// practiced, from 0 to 1. An empty vocabulary has no coverage.
func (s *StatsService) LevelCoverage(ctx context.Context, level, vocabularySize int) (float64, error) {
	if vocabularySize <= 0 {
		return 0, nil
	}
	practiced, err := s.UniqueWordsByLevel(ctx, level)
	if err != nil {
		return 0, err
	}
	coverage := float64(practiced) / float64(vocabularySize)
	if coverage > 1 {
		coverage = 1
	}
	return coverage, nil
}

// CharacterProgress returns per-character aggregates, highest mastery first
func (s *StatsService) CharacterProgress(ctx context.Context) ([]models.CharacterProgress, error) {
	return s.records.CharacterProgress(ctx)
}

// WatchCharacterProgress delivers CharacterProgress now and after every
// change to the record store
func (s *StatsService) WatchCharacterProgress(ctx context.Context) <-chan []models.CharacterProgress {
	return s.records.WatchCharacterProgress(ctx)
}
