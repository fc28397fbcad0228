package rollout_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/rollout"
)

func TestPlayFillsTheBoard(t *testing.T) {
	d := deck.NewFull()
	b := game.NewBoard()
	rng := rand.New(rand.NewSource(1))
	tile, err := d.SampleUniform(rng)
	require.NoError(t, err)
	require.NoError(t, d.Remove(tile))

	score, err := rollout.Play(b, tile, d, rng, 1.0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, game.MaxPossibleScore())
}

func TestPlayIsDeterministicWithFixedSeed(t *testing.T) {
	play := func(seed int64) int {
		d := deck.NewFull()
		b := game.NewBoard()
		rng := rand.New(rand.NewSource(seed))
		tile, err := d.SampleUniform(rng)
		require.NoError(t, err)
		require.NoError(t, d.Remove(tile))
		score, err := rollout.Play(b, tile, d, rng, 0)
		require.NoError(t, err)
		return score
	}
	assert.Equal(t, play(7), play(7))
}

func TestNormalizeScoreIsBounded(t *testing.T) {
	assert.Equal(t, float32(-1), rollout.NormalizeScore(0))
	assert.Equal(t, float32(1), rollout.NormalizeScore(1000))
}

func TestPlayDoesNotMutateCallerState(t *testing.T) {
	d := deck.NewFull()
	b := game.NewBoard()
	rng := rand.New(rand.NewSource(3))
	tile := game.Tile{A: 1, B: 2, C: 3}
	require.NoError(t, d.Remove(tile))
	sizeBefore := d.Size()

	_, err := rollout.Play(b, tile, d, rng, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0, b.NumPlaced())
	assert.Equal(t, sizeBefore, d.Size())
}
