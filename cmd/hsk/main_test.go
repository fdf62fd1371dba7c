package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	answers, err := parseAnswers("1=A, 2 = B,,10=对")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "A", 2: "B", 10: "对"}, answers)

	answers, err = parseAnswers("")
	require.NoError(t, err)
	assert.Empty(t, answers)

	_, err = parseAnswers("1A")
	assert.Error(t, err)
	_, err = parseAnswers("x=A")
	assert.Error(t, err)
}

func TestCommandsHaveUsage(t *testing.T) {
	for name, cmd := range commands {
		assert.NotEmpty(t, cmd.usage, name)
		assert.NotNil(t, cmd.setup, name)
	}
}
