package models

import (
	"fmt"
	"time"
)

// GameType identifies the mini-game that produced a learning record
type GameType string

const (
	GameMatching        GameType = "matching"
	GameQuiz            GameType = "quiz"
	GameWriting         GameType = "writing"
	GameListening       GameType = "listening"
	GameSentenceBuilder GameType = "sentence_builder"
	GameSpeedChallenge  GameType = "speed_challenge"
	GameFillBlank       GameType = "fill_blank"
)

// GameTypes lists every known game type in display order
var GameTypes = []GameType{
	GameMatching,
	GameQuiz,
	GameWriting,
	GameListening,
	GameSentenceBuilder,
	GameSpeedChallenge,
	GameFillBlank,
}

// Valid reports whether g is one of the known game types
func (g GameType) Valid() bool {
	for _, known := range GameTypes {
		if g == known {
			return true
		}
	}
	return false
}

// ParseGameType converts a stored or user-supplied name into a GameType
func ParseGameType(s string) (GameType, error) {
	g := GameType(s)
	if !g.Valid() {
		return "", fmt.Errorf("unknown game type %q", s)
	}
	return g, nil
}

// LearningRecord is one scored practice interaction. Character, Pinyin and
// Meaning are copies taken from the vocabulary when the record was created.
type LearningRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	HSKLevel     int       `json:"hsk_level"`
	GameType     GameType  `json:"game_type"`
	Character    string    `json:"character"`
	Pinyin       string    `json:"pinyin"`
	Meaning      string    `json:"meaning"`
	IsCorrect    bool      `json:"is_correct"`
	ResponseTime *int64    `json:"response_time,omitempty"` // milliseconds
	Attempts     int       `json:"attempts"`
	HintUsed     bool      `json:"hint_used"`
	QuestionType *string   `json:"question_type,omitempty"`
}

// ResponseDuration returns the response time as a duration, or zero if unknown
func (r *LearningRecord) ResponseDuration() time.Duration {
	if r.ResponseTime == nil {
		return 0
	}
	return time.Duration(*r.ResponseTime) * time.Millisecond
}

// Int64Ptr is a small helper for optional millisecond values
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr is a small helper for optional strings
func StringPtr(s string) *string {
	return &s
}
