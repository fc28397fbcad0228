package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilesage/takeiteasy-engine/internal/game"
)

func TestEmptyBoardScoresZero(t *testing.T) {
	b := game.NewBoard()
	assert.Equal(t, 0, game.Score(b))
	assert.Len(t, b.LegalPositions(), game.NumCells)
}

func TestLineTablePartitionsBoard(t *testing.T) {
	for axis := game.Axis(0); axis < game.NumAxes; axis++ {
		seen := make(map[int]bool)
		for _, line := range game.Lines {
			if line.Axis != axis {
				continue
			}
			for _, cell := range line.Cells {
				require.False(t, seen[cell], "cell %d appears twice on axis %d", cell, axis)
				seen[cell] = true
			}
		}
		assert.Len(t, seen, game.NumCells)
	}
}

func TestPlaceRejectsOccupiedCell(t *testing.T) {
	b := game.NewBoard()
	require.NoError(t, b.Place(0, game.Tile{A: 1, B: 2, C: 3}))
	err := b.Place(0, game.Tile{A: 5, B: 6, C: 4})
	assert.Error(t, err)
}

func TestPlaceRejectsMalformedTile(t *testing.T) {
	b := game.NewBoard()
	err := b.Place(0, game.Tile{A: 2, B: 2, C: 3})
	assert.Error(t, err)
}

// TestForcedCompletion mirrors spec.md §8 scenario 2: completing an
// axis-1 line of length 3 adds length*value.
func TestForcedCompletion(t *testing.T) {
	b := game.NewBoard()
	line := findLine(t, game.Axis1, 3)
	require.NoError(t, b.Place(line.Cells[0], game.Tile{A: 9, B: 2, C: 3}))
	require.NoError(t, b.Place(line.Cells[1], game.Tile{A: 9, B: 6, C: 4}))
	require.Equal(t, 0, game.Score(b), "partially filled line scores 0")
	require.NoError(t, b.Place(line.Cells[2], game.Tile{A: 9, B: 7, C: 8}))
	assert.Equal(t, 3*9, game.Score(b))
}

func TestScoreNeverExceedsTheoreticalMax(t *testing.T) {
	assert.Greater(t, game.MaxPossibleScore(), 0)
	b := game.NewBoard()
	for cell := 0; cell < game.NumCells; cell++ {
		require.NoError(t, b.Place(cell, game.AllTiles()[cell]))
	}
	assert.LessOrEqual(t, game.Score(b), game.MaxPossibleScore())
}

func TestPermuteIsEquivariantOnIdentity(t *testing.T) {
	b := game.NewBoard()
	require.NoError(t, b.Place(0, game.Tile{A: 1, B: 2, C: 3}))
	same := b.Permute(0)
	assert.Equal(t, b.At(0), same.At(0))
}

func TestPermuteRoundTrips(t *testing.T) {
	for k := 0; k < game.NumPermutations; k++ {
		twice := game.PermuteCell(k, game.PermuteCell(k, 4))
		assert.Equal(t, 4, twice, "permutation %d isn't its own inverse", k)
	}
}

func TestPermuteCellIsPointSymmetric(t *testing.T) {
	assert.Equal(t, 0, game.PermuteCell(0, 0))
	assert.Equal(t, 18, game.PermuteCell(1, 0))
	assert.Equal(t, 9, game.PermuteCell(1, 9), "the center cell is its own antipode")
}

// TestScoreInvariantUnderPermutation hand-traces the exact tiles a prior,
// broken Permute (one that cyclically rotated each axis' value within its
// own 3-value domain) failed on: a matched axis-1 line of length 3 and
// common value 9 scores 27, and that score must survive every permutation.
func TestScoreInvariantUnderPermutation(t *testing.T) {
	b := game.NewBoard()
	require.NoError(t, b.Place(0, game.Tile{A: 9, B: 2, C: 3}))
	require.NoError(t, b.Place(3, game.Tile{A: 9, B: 6, C: 4}))
	require.NoError(t, b.Place(7, game.Tile{A: 9, B: 7, C: 8}))
	base := game.Score(b)
	require.Equal(t, 27, base)
	for k := 0; k < game.NumPermutations; k++ {
		assert.Equal(t, base, game.Score(b.Permute(k)), "permutation %d changed score", k)
	}
}

// TestPermuteMovesTileContentNotValues confirms the fix moves tiles between
// cells rather than rewriting their values in place: the tile placed at cell
// 0 must reappear, byte-identical, at cell 0's antipode under k=1.
func TestPermuteMovesTileContentNotValues(t *testing.T) {
	b := game.NewBoard()
	tile := game.Tile{A: 9, B: 2, C: 3}
	require.NoError(t, b.Place(0, tile))
	permuted := b.Permute(1)
	assert.Equal(t, tile, permuted.At(18))
	assert.True(t, permuted.At(0).IsEmpty())
}

func findLine(t *testing.T, axis game.Axis, length int) game.Line {
	t.Helper()
	for _, line := range game.Lines {
		if line.Axis == axis && len(line.Cells) == length {
			return line
		}
	}
	t.Fatalf("no line of axis %d length %d", axis, length)
	return game.Line{}
}
