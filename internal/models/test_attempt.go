package models

import "time"

// Test sections
const (
	SectionListening = "listening"
	SectionReading   = "reading"
)

// PassPercentage is the inclusive pass mark of a practice test
const PassPercentage = 60.0

// AnswerRecord is the graded outcome of one test question
type AnswerRecord struct {
	QuestionNumber int    `json:"questionNumber"`
	UserAnswer     string `json:"userAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	QuestionType   string `json:"questionType"`
	Section        string `json:"section"`
}

// TestResult is a graded but not yet persisted test run
type TestResult struct {
	TestID         string
	Level          string
	ListeningScore int
	ReadingScore   int
	TotalScore     int
	TotalQuestions int
	CompletionTime int64 // milliseconds
	Answers        []AnswerRecord
}

// TestAttempt is one persisted test submission. Passed is computed once at
// save time and never recomputed.
type TestAttempt struct {
	ID             int64          `json:"id"`
	TestID         string         `json:"test_id"`
	HSKLevel       int            `json:"hsk_level"`
	TotalScore     int            `json:"total_score"`
	TotalQuestions int            `json:"total_questions"`
	ListeningScore int            `json:"listening_score"`
	ReadingScore   int            `json:"reading_score"`
	CompletionTime int64          `json:"completion_time"` // milliseconds
	AttemptDate    time.Time      `json:"attempt_date"`
	Passed         bool           `json:"passed"`
	Answers        []AnswerRecord `json:"answers"`
}

// Percentage returns the attempt's score as a percentage
func (a *TestAttempt) Percentage() float64 {
	return Percentage(a.TotalScore, a.TotalQuestions)
}

// TestStats summarises the history of one test paper
type TestStats struct {
	TestID              string   `json:"test_id"`
	TotalAttempts       int      `json:"total_attempts"`
	PassedAttempts      int      `json:"passed_attempts"`
	BestScorePercentage *float64 `json:"best_score_percentage,omitempty"` // nil without attempts
}
