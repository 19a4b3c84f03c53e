package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaultsMatchDefault(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PARODY_MIN_PLAYERS", "4")
	t.Setenv("PARODY_PROMPT_DURATION", "30s")
	t.Setenv("PARODY_VOTE_POINTS", "10,6,2")
	t.Setenv("PARODY_DEFAULT_DIFFICULTY", "hard")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, c.Game.MinPlayers)
	assert.Equal(t, 30*time.Second, c.Game.PromptDuration)
	assert.Equal(t, []int{10, 6, 2}, c.Game.VotePoints)
	assert.Equal(t, "hard", c.Difficulty)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	t.Setenv("PARODY_VOTE_POINTS", "1,3,5")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestGameValidate(t *testing.T) {
	g := Default().Game
	require.NoError(t, g.Validate())

	bad := g
	bad.MaxPlayers = 2
	assert.Error(t, bad.Validate())

	bad = g
	bad.VotePoints = []int{5, 3}
	assert.Error(t, bad.Validate())

	bad = g
	bad.MinPlayers = 1
	assert.Error(t, bad.Validate())

	bad = g
	bad.PlacementStep = 0
	assert.Error(t, bad.Validate())
}
