package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{4600, 10},
		{88999, 29},
		{89000, 30},
		{1000000, 30},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= 95000; xp += 37 {
		level := LevelForXP(xp)
		assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
		assert.LessOrEqual(t, level, MaxLevel)
		prev = level
	}
}

func TestLevelProgress(t *testing.T) {
	assert.Equal(t, 0.0, LevelProgress(0))
	assert.InDelta(t, 0.5, LevelProgress(50), 1e-9)
	assert.InDelta(t, 0.5, LevelProgress(175), 1e-9)
	assert.Equal(t, 1.0, LevelProgress(89000), "max level is always complete")
	assert.Equal(t, 1.0, LevelProgress(120000))

	for xp := 0; xp <= 95000; xp += 113 {
		p := LevelProgress(xp)
		assert.True(t, p >= 0 && p <= 1, "progress %f out of range at xp=%d", p, xp)
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(0))
	assert.Equal(t, 10, XPToNextLevel(90))
	assert.Equal(t, 150, XPToNextLevel(100))
	assert.Equal(t, 0, XPToNextLevel(89000))
	assert.Equal(t, 0, XPToNextLevel(100000), "never negative")
}

func TestLevelTitle(t *testing.T) {
	tests := map[int]string{
		1:  "Beginner",
		5:  "Beginner",
		6:  "Elementary",
		10: "Elementary",
		11: "Intermediate",
		16: "Advanced",
		21: "Expert",
		25: "Expert",
		26: "Master",
		30: "Master",
	}
	for level, title := range tests {
		assert.Equal(t, title, LevelTitle(level), "level %d", level)
	}
}
