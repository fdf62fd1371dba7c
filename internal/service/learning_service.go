package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hskmaster/internal/counters"
	"hskmaster/internal/gamification"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
	"hskmaster/internal/validation"
)

// DefaultDaysToKeep is the retention used by ClearOldData when none is given
const DefaultDaysToKeep = 30

// speedChallengeNamespace holds the per-level speed challenge best scores
const speedChallengeNamespace = "speed_challenge"

// LearningService records practice answers and awards experience for them.
// A record insert and its XP award are two writes to two stores and are not
// atomic: a failed award leaves the record in place.
type LearningService struct {
	records  repository.RecordStore
	tracker  *gamification.Tracker
	counters counters.Store
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewLearningService creates a new learning service
func NewLearningService(records repository.RecordStore, tracker *gamification.Tracker, store counters.Store, log logrus.FieldLogger) *LearningService {
	return &LearningService{
		records:  records,
		tracker:  tracker,
		counters: store,
		log:      log.WithField("component", "learning"),
		now:      time.Now,
	}
}

// WithClock replaces the service's time source
func (s *LearningService) WithClock(now func() time.Time) *LearningService {
	s.now = now
	return s
}

// record inserts a record and awards the XP for its outcome
func (s *LearningService) record(ctx context.Context, record *models.LearningRecord) (int64, error) {
	if err := validation.ValidateLevel(record.HSKLevel); err != nil {
		return 0, err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}

	id, err := s.records.Insert(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("record %s answer: %w", record.GameType, err)
	}

	if record.IsCorrect {
		_, err = s.tracker.AddCorrectAnswerXP(ctx)
	} else {
		_, err = s.tracker.AddWrongAnswerXP(ctx)
	}
	if err != nil {
		return id, fmt.Errorf("award xp for record %d: %w", id, err)
	}
	return id, nil
}

func wordRecord(level int, gameType models.GameType, word models.Word, correct bool) *models.LearningRecord {
	return &models.LearningRecord{
		HSKLevel:  level,
		GameType:  gameType,
		Character: word.Simplified,
		Pinyin:    word.Pinyin(),
		Meaning:   word.Meaning(),
		IsCorrect: correct,
		Attempts:  1,
	}
}

// RecordMatchingGame records one pair attempt of the matching game
func (s *LearningService) RecordMatchingGame(ctx context.Context, level int, word models.Word, correct bool, responseTime int64, attempts int) (int64, error) {
	r := wordRecord(level, models.GameMatching, word, correct)
	r.ResponseTime = models.Int64Ptr(responseTime)
	if attempts > 0 {
		r.Attempts = attempts
	}
	return s.record(ctx, r)
}

// RecordQuizAnswer records one quiz answer with the question type asked
func (s *LearningService) RecordQuizAnswer(ctx context.Context, level int, word models.Word, correct bool, questionType string, responseTime int64) (int64, error) {
	r := wordRecord(level, models.GameQuiz, word, correct)
	r.ResponseTime = models.Int64Ptr(responseTime)
	r.QuestionType = models.StringPtr(questionType)
	return s.record(ctx, r)
}

// RecordWritingPractice records one character written on the practice canvas
func (s *LearningService) RecordWritingPractice(ctx context.Context, level int, word models.Word, hintUsed, correct bool) (int64, error) {
	r := wordRecord(level, models.GameWriting, word, correct)
	r.HintUsed = hintUsed
	return s.record(ctx, r)
}

// RecordListeningAnswer records one answer of the listening game
func (s *LearningService) RecordListeningAnswer(ctx context.Context, level int, word models.Word, correct bool, responseTime int64) (int64, error) {
	r := wordRecord(level, models.GameListening, word, correct)
	r.ResponseTime = models.Int64Ptr(responseTime)
	r.QuestionType = models.StringPtr("listening")
	return s.record(ctx, r)
}

// RecordSentenceBuilder records one sentence arrangement. The whole sentence
// is the practiced item.
func (s *LearningService) RecordSentenceBuilder(ctx context.Context, level int, sentence models.Sentence, correct bool, responseTime int64, attempts int) (int64, error) {
	r := &models.LearningRecord{
		HSKLevel:     level,
		GameType:     models.GameSentenceBuilder,
		Character:    sentence.Chinese,
		Pinyin:       sentence.Pinyin,
		Meaning:      sentence.English,
		IsCorrect:    correct,
		ResponseTime: models.Int64Ptr(responseTime),
		Attempts:     max(attempts, 1),
	}
	return s.record(ctx, r)
}

// RecordSpeedChallenge records one speed challenge answer
func (s *LearningService) RecordSpeedChallenge(ctx context.Context, level int, word models.SimpleWord, correct bool, direction string) (int64, error) {
	r := wordRecord(level, models.GameSpeedChallenge, word.ToWord(), correct)
	if direction != "" {
		r.QuestionType = models.StringPtr(direction)
	}
	return s.record(ctx, r)
}

// RecordFillBlank records one cloze answer. The missing word is the
// practiced item and the full sentence is kept as its meaning.
func (s *LearningService) RecordFillBlank(ctx context.Context, level int, question models.ClozeQuestion, correct bool, responseTime int64) (int64, error) {
	r := &models.LearningRecord{
		HSKLevel:     level,
		GameType:     models.GameFillBlank,
		Character:    question.CorrectAnswer,
		Pinyin:       question.CorrectPinyin,
		Meaning:      question.FullSentence,
		IsCorrect:    correct,
		ResponseTime: models.Int64Ptr(responseTime),
		Attempts:     1,
	}
	return s.record(ctx, r)
}

// GameSummary describes a finished game round
type GameSummary struct {
	SessionID uuid.UUID
	GameType  models.GameType
	Level     int
	Correct   int
	Total     int
}

// Perfect reports whether every answer of a non-empty round was correct
func (g GameSummary) Perfect() bool {
	return g.Total > 0 && g.Correct == g.Total
}

// CompleteGame awards the completion bonus for a finished round, plus the
// perfect-game bonus when every answer was correct. It returns the XP awarded.
func (s *LearningService) CompleteGame(ctx context.Context, summary GameSummary) (int, error) {
	if summary.SessionID == uuid.Nil {
		summary.SessionID = uuid.New()
	}
	log := s.log.WithFields(logrus.Fields{
		"session_id": summary.SessionID.String(),
		"game_type":  summary.GameType,
		"score":      fmt.Sprintf("%d/%d", summary.Correct, summary.Total),
	})

	if summary.Total <= 0 {
		log.Debug("empty round, no bonus")
		return 0, nil
	}

	awarded := 0
	if _, err := s.tracker.AddGameCompletionXP(ctx); err != nil {
		return 0, fmt.Errorf("completion bonus: %w", err)
	}
	awarded += gamification.XPGameComplete

	if summary.Perfect() {
		if _, err := s.tracker.AddPerfectGameXP(ctx); err != nil {
			return awarded, fmt.Errorf("perfect game bonus: %w", err)
		}
		awarded += gamification.XPPerfectGame
	}

	log.WithField("xp", awarded).Info("game completed")
	return awarded, nil
}

// SpeedChallengeBest returns the best speed challenge score at level
func (s *LearningService) SpeedChallengeBest(ctx context.Context, level int) (int, error) {
	values, err := s.counters.Load(ctx, speedChallengeNamespace)
	if err != nil {
		return 0, err
	}
	return values.Int(speedChallengeKey(level), 0), nil
}

// SubmitSpeedChallenge stores correct as the new best at level when it beats
// the previous one, and reports whether it did
func (s *LearningService) SubmitSpeedChallenge(ctx context.Context, level, correct int) (bool, error) {
	best, err := s.SpeedChallengeBest(ctx, level)
	if err != nil {
		return false, err
	}
	if correct <= best {
		return false, nil
	}

	values := counters.Values{}
	values.SetInt(speedChallengeKey(level), correct)
	if err := s.counters.Save(ctx, speedChallengeNamespace, values); err != nil {
		return false, err
	}
	return true, nil
}

func speedChallengeKey(level int) string {
	return fmt.Sprintf("best_hsk%d", level)
}

// ClearAllData removes every learning record and returns how many went
func (s *LearningService) ClearAllData(ctx context.Context) (int64, error) {
	n, err := s.records.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear all data: %w", err)
	}
	s.log.WithField("deleted", n).Info("cleared all learning records")
	return n, nil
}

// ClearOldData removes records older than daysToKeep days. A non-positive
// value means DefaultDaysToKeep.
func (s *LearningService) ClearOldData(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultDaysToKeep
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep)

	n, err := s.records.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear old data: %w", err)
	}
	s.log.WithFields(logrus.Fields{"deleted": n, "days_kept": daysToKeep}).Info("cleared old learning records")
	return n, nil
}
