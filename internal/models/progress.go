package models

// ProgressStats is the gamification snapshot shown on the home screen
type ProgressStats struct {
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	TotalXP        int     `json:"total_xp"`
	TodayXP        int     `json:"today_xp"`
	CurrentLevel   int     `json:"current_level"`
	LevelProgress  float64 `json:"level_progress"` // 0..1 into the next level
	XPToNextLevel  int     `json:"xp_to_next_level"`
	LevelTitle     string  `json:"level_title"`
	IsStreakAtRisk bool    `json:"is_streak_at_risk"`
}
