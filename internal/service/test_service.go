package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"hskmaster/internal/metrics"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
	"hskmaster/internal/validation"
)

// ErrEmptyTest is returned when a graded test has no questions to score
var ErrEmptyTest = errors.New("test has no questions")

// TestService grades practice tests and keeps their attempt history
type TestService struct {
	attempts *repository.TestAttemptRepository
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// NewTestService creates a new test service
func NewTestService(attempts *repository.TestAttemptRepository, log logrus.FieldLogger, m *metrics.Metrics) *TestService {
	return &TestService{
		attempts: attempts,
		metrics:  m,
		log:      log.WithField("component", "tests"),
	}
}

// Grade scores answers against the test's answer key. Questions are graded
// listening section first, then reading, each in part order. An unanswered
// question counts as the empty string and answers are compared exactly.
func (s *TestService) Grade(test *models.Test, answers map[int]string, completionTime int64) models.TestResult {
	result := models.TestResult{
		TestID:         test.TestID,
		Level:          test.Level,
		CompletionTime: completionTime,
		Answers:        []models.AnswerRecord{},
	}

	grade := func(section string, parts []models.TestPart) int {
		correct := 0
		for _, part := range parts {
			for _, q := range part.Questions {
				answer := answers[q.QuestionNumber]
				record := models.AnswerRecord{
					QuestionNumber: q.QuestionNumber,
					UserAnswer:     answer,
					CorrectAnswer:  q.Answer,
					IsCorrect:      answer == q.Answer,
					QuestionType:   q.Type,
					Section:        section,
				}
				if record.IsCorrect {
					correct++
				}
				result.Answers = append(result.Answers, record)
			}
		}
		return correct
	}

	result.ListeningScore = grade(models.SectionListening, test.Sections.Listening.Parts)
	result.ReadingScore = grade(models.SectionReading, test.Sections.Reading.Parts)
	result.TotalScore = result.ListeningScore + result.ReadingScore
	result.TotalQuestions = len(result.Answers)

	return result
}

// Passed reports whether score out of total reaches the inclusive pass mark
func Passed(score, total int) bool {
	return float64(score)*100.0/float64(total) >= models.PassPercentage
}

// Submit persists a graded result as a new attempt. A result with no
// questions is rejected with ErrEmptyTest.
func (s *TestService) Submit(ctx context.Context, result models.TestResult, level int) (*models.TestAttempt, error) {
	if err := validation.ValidateLevel(level); err != nil {
		return nil, err
	}
	if result.TotalQuestions == 0 {
		return nil, fmt.Errorf("submit %s: %w", result.TestID, ErrEmptyTest)
	}

	attempt := &models.TestAttempt{
		TestID:         result.TestID,
		HSKLevel:       level,
		TotalScore:     result.TotalScore,
		TotalQuestions: result.TotalQuestions,
		ListeningScore: result.ListeningScore,
		ReadingScore:   result.ReadingScore,
		CompletionTime: result.CompletionTime,
		Passed:         Passed(result.TotalScore, result.TotalQuestions),
		Answers:        result.Answers,
	}

	id, err := s.attempts.Insert(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", result.TestID, err)
	}
	attempt.ID = id

	s.metrics.TestAttempt(attempt.Passed)
	s.log.WithFields(logrus.Fields{
		"test_id": attempt.TestID,
		"score":   fmt.Sprintf("%d/%d", attempt.TotalScore, attempt.TotalQuestions),
		"passed":  attempt.Passed,
	}).Info("test attempt saved")

	return attempt, nil
}

// GradeAndSubmit grades answers and persists the result, taking the HSK level
// from the test's level label
func (s *TestService) GradeAndSubmit(ctx context.Context, test *models.Test, answers map[int]string, completionTime int64) (*models.TestAttempt, error) {
	level, err := ParseLevel(test.Level)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, s.Grade(test, answers, completionTime), level)
}

// ParseLevel reads an HSK level label such as "HSK3", "hsk 3" or "3"
func ParseLevel(label string) (int, error) {
	digits := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(label)), "HSK"))
	level, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", label)
	}
	if err := validation.ValidateLevel(level); err != nil {
		return 0, err
	}
	return level, nil
}

// Stats summarises every attempt at testID. The best score is recomputed
// from history on each call.
func (s *TestService) Stats(ctx context.Context, testID string) (models.TestStats, error) {
	stats := models.TestStats{TestID: testID}

	total, err := s.attempts.TotalCount(ctx, testID)
	if err != nil {
		return stats, err
	}
	passed, err := s.attempts.PassedCount(ctx, testID)
	if err != nil {
		return stats, err
	}
	best, err := s.attempts.BestScorePercentage(ctx, testID)
	if err != nil {
		return stats, err
	}

	stats.TotalAttempts = total
	stats.PassedAttempts = passed
	stats.BestScorePercentage = best
	return stats, nil
}

// Attempts returns the history of testID, newest first
func (s *TestService) Attempts(ctx context.Context, testID string) ([]models.TestAttempt, error) {
	return s.attempts.ByTestID(ctx, testID)
}

// AttemptsByLevel returns every attempt at level, newest first
func (s *TestService) AttemptsByLevel(ctx context.Context, level int) ([]models.TestAttempt, error) {
	return s.attempts.ByLevel(ctx, level)
}

// Attempt returns one attempt with its answers for detail review
func (s *TestService) Attempt(ctx context.Context, id int64) (*models.TestAttempt, error) {
	return s.attempts.ByID(ctx, id)
}

// DeleteAttempt removes one attempt
func (s *TestService) DeleteAttempt(ctx context.Context, id int64) error {
	if err := s.attempts.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("attempt_id", id).Info("test attempt deleted")
	return nil
}
