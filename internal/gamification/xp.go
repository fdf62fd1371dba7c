package gamification

// XP awarded per event
const (
	XPCorrectAnswer = 10
	XPWrongAnswer   = 2
	XPGameComplete  = 25
	XPPerfectGame   = 50
)

// LevelThresholds holds the total XP at which each level starts. Level n
// starts at LevelThresholds[n-1].
var LevelThresholds = []int{
	0, 100, 250, 500, 850,
	1300, 1900, 2650, 3550, 4600,
	5800, 7200, 8800, 10600, 12600,
	14850, 17350, 20100, 23100, 26400,
	30000, 34000, 38500, 43500, 49000,
	55000, 62000, 70000, 79000, 89000,
}

// MaxLevel is the highest reachable level
var MaxLevel = len(LevelThresholds)

// LevelForXP returns the highest level whose threshold totalXP has reached
func LevelForXP(totalXP int) int {
	level := 1
	for i, threshold := range LevelThresholds {
		if totalXP < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// currentLevelXP is the threshold of the level totalXP sits in
func currentLevelXP(totalXP int) int {
	return LevelThresholds[LevelForXP(totalXP)-1]
}

// nextLevelXP is the threshold of the following level, or the last threshold
// at the maximum level
func nextLevelXP(totalXP int) int {
	level := LevelForXP(totalXP)
	if level < MaxLevel {
		return LevelThresholds[level]
	}
	return LevelThresholds[MaxLevel-1]
}

// LevelProgress returns how far totalXP is into its level, from 0 to 1.
// At the maximum level it is always 1.
func LevelProgress(totalXP int) float64 {
	current := currentLevelXP(totalXP)
	next := nextLevelXP(totalXP)
	if next == current {
		return 1
	}

	progress := float64(totalXP-current) / float64(next-current)
	switch {
	case progress < 0:
		return 0
	case progress > 1:
		return 1
	default:
		return progress
	}
}

// XPToNextLevel returns the XP still needed for the next level, never negative
func XPToNextLevel(totalXP int) int {
	remaining := nextLevelXP(totalXP) - totalXP
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LevelTitle names a band of five levels
func LevelTitle(level int) string {
	switch {
	case level <= 5:
		return "Beginner"
	case level <= 10:
		return "Elementary"
	case level <= 15:
		return "Intermediate"
	case level <= 20:
		return "Advanced"
	case level <= 25:
		return "Expert"
	default:
		return "Master"
	}
}
