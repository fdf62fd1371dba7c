package models

import "time"

// GameStats aggregates the records of one game type
type GameStats struct {
	GameType GameType `json:"game_type"`
	Attempts int      `json:"attempts"`
	Correct  int      `json:"correct"`
	Accuracy float64  `json:"accuracy"` // percentage 0..100
}

// DailyStats summarises one calendar day of practice
type DailyStats struct {
	Date              string                 `json:"date"` // 2006-01-02
	TotalAttempts     int                    `json:"total_attempts"`
	CorrectCount      int                    `json:"correct_count"`
	WrongCount        int                    `json:"wrong_count"`
	AccuracyRate      float64                `json:"accuracy_rate"`
	CharactersLearned int                    `json:"characters_learned"`
	GameBreakdown     map[GameType]GameStats `json:"game_breakdown"`
}

// CharacterProgress aggregates every record of one practiced item
type CharacterProgress struct {
	Character     string    `json:"character"`
	Pinyin        string    `json:"pinyin"`
	TotalAttempts int       `json:"total_attempts"`
	CorrectCount  int       `json:"correct_count"`
	LastSeen      time.Time `json:"last_seen"`
	Mastery       float64   `json:"mastery"` // percentage 0..100
}

// Percentage returns part*100/total, or 0 when total is 0
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100.0 / float64(total)
}
