package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hskmaster/internal/logging"
	"hskmaster/internal/metrics"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
	"hskmaster/internal/validation"
)

// paper builds a test with listening questions 1..listening and reading
// questions after them, every answer being "A"
func paper(id string, listening, reading int) *models.Test {
	questions := func(from, n int) []models.TestQuestion {
		qs := make([]models.TestQuestion, n)
		for i := range qs {
			qs[i] = models.TestQuestion{QuestionNumber: from + i, Type: "choice", Answer: "A"}
		}
		return qs
	}

	return &models.Test{
		TestID: id,
		Level:  "HSK1",
		Sections: models.TestSections{
			Listening: models.TestSection{Parts: []models.TestPart{
				{Name: "part1", Questions: questions(1, listening)},
			}},
			Reading: models.TestSection{Parts: []models.TestPart{
				{Name: "part1", Questions: questions(listening+1, reading)},
			}},
		},
	}
}

// answerFirst answers questions 1..correct with the key and the rest wrongly
func answerFirst(correct, total int) map[int]string {
	answers := make(map[int]string, total)
	for n := 1; n <= total; n++ {
		if n <= correct {
			answers[n] = "A"
		} else {
			answers[n] = "B"
		}
	}
	return answers
}

func newTestService(t *testing.T) *TestService {
	t.Helper()
	return NewTestService(repository.NewTestAttemptRepository(setupTestDB(t)), logging.Discard(), metrics.New())
}

func TestGrade(t *testing.T) {
	s := &TestService{}
	test := paper("H10901", 3, 2)

	result := s.Grade(test, map[int]string{1: "A", 2: "a", 4: "A"}, 90_000)

	assert.Equal(t, "H10901", result.TestID)
	assert.Equal(t, 1, result.ListeningScore, "comparison is exact")
	assert.Equal(t, 1, result.ReadingScore)
	assert.Equal(t, 2, result.TotalScore)
	assert.Equal(t, 5, result.TotalQuestions)
	assert.Equal(t, int64(90_000), result.CompletionTime)

	require.Len(t, result.Answers, 5)
	for i, a := range result.Answers {
		assert.Equal(t, i+1, a.QuestionNumber, "listening first, then reading, in order")
	}
	assert.Equal(t, models.SectionListening, result.Answers[2].Section)
	assert.Equal(t, "", result.Answers[2].UserAnswer, "unanswered questions are empty")
	assert.False(t, result.Answers[2].IsCorrect)
	assert.Equal(t, models.SectionReading, result.Answers[3].Section)
	assert.Equal(t, "A", result.Answers[4].CorrectAnswer)
}

func TestGradeScoreProperty(t *testing.T) {
	s := &TestService{}
	for _, tc := range []struct{ listening, reading, correct int }{
		{5, 5, 0}, {5, 5, 6}, {10, 10, 12}, {10, 10, 11}, {1, 0, 1}, {0, 3, 3},
	} {
		t.Run(fmt.Sprintf("%d+%d/%d", tc.listening, tc.reading, tc.correct), func(t *testing.T) {
			total := tc.listening + tc.reading
			result := s.Grade(paper("T", tc.listening, tc.reading), answerFirst(tc.correct, total), 0)

			assert.Equal(t, tc.correct, result.TotalScore)
			assert.Equal(t, total, result.TotalQuestions)
			assert.Equal(t, float64(tc.correct)*100.0/float64(total) >= 60.0,
				Passed(result.TotalScore, result.TotalQuestions))
		})
	}
}

func TestPassBoundary(t *testing.T) {
	assert.True(t, Passed(12, 20))
	assert.False(t, Passed(11, 20))
	assert.True(t, Passed(3, 5))
	assert.True(t, Passed(20, 20))
}

func TestSubmitAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestService(t)
	ctx := context.Background()
	test := paper("H10901", 10, 10)

	none, err := s.Stats(ctx, "H10901")
	require.NoError(t, err)
	assert.Zero(t, none.TotalAttempts)
	assert.Nil(t, none.BestScorePercentage)

	passed, err := s.Submit(ctx, s.Grade(test, answerFirst(12, 20), 1000), 1)
	require.NoError(t, err)
	assert.NotZero(t, passed.ID)
	assert.True(t, passed.Passed)

	failed, err := s.GradeAndSubmit(ctx, test, answerFirst(5, 20), 2000)
	require.NoError(t, err)
	assert.False(t, failed.Passed)
	assert.Equal(t, 1, failed.HSKLevel)

	stats, err := s.Stats(ctx, "H10901")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAttempts)
	assert.Equal(t, 1, stats.PassedAttempts)
	require.NotNil(t, stats.BestScorePercentage)
	assert.InDelta(t, 60.0, *stats.BestScorePercentage, 0.001)

	stored, err := s.Attempt(ctx, passed.ID)
	require.NoError(t, err)
	require.Len(t, stored.Answers, 20)
	assert.Equal(t, "B", stored.Answers[19].UserAnswer)

	require.NoError(t, s.DeleteAttempt(ctx, passed.ID))
	assert.ErrorIs(t, s.DeleteAttempt(ctx, passed.ID), repository.ErrNotFound)

	stats, err = s.Stats(ctx, "H10901")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PassedAttempts)
	assert.InDelta(t, 25.0, *stats.BestScorePercentage, 0.001)
}

func TestSubmitRejects(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestService(t)
	ctx := context.Background()

	empty := s.Grade(paper("EMPTY", 0, 0), nil, 0)
	_, err := s.Submit(ctx, empty, 1)
	assert.ErrorIs(t, err, ErrEmptyTest)

	_, err = s.Submit(ctx, s.Grade(paper("T", 1, 1), nil, 0), 9)
	var verr validation.ValidationError
	assert.ErrorAs(t, err, &verr)

	all, err := s.AttemptsByLevel(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestParseLevel(t *testing.T) {
	for label, want := range map[string]int{"HSK1": 1, "hsk 3": 3, "7": 7, " HSK6 ": 6} {
		got, err := ParseLevel(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}
	for _, label := range []string{"", "HSK", "HSK9", "level one"} {
		_, err := ParseLevel(label)
		assert.Error(t, err, label)
	}
}
