package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tilesage/takeiteasy-engine/internal/game"
)

func TestHexNeighborsHaveNoSelfLoops(t *testing.T) {
	for cell := 0; cell < game.NumCells; cell++ {
		for _, n := range hexNeighbors[cell] {
			assert.NotEqual(t, cell, n)
		}
	}
}

func TestHexNeighborsAreSymmetric(t *testing.T) {
	for cell := 0; cell < game.NumCells; cell++ {
		for _, n := range hexNeighbors[cell] {
			if n == noNeighbor {
				continue
			}
			assert.Contains(t, hexNeighbors[n][:], cell, "cell %d lists %d as a neighbor but not vice versa", cell, n)
		}
	}
}

func TestInteriorCellHasSixNeighbors(t *testing.T) {
	// Cell 9 is the board's center (middle of the length-5 row).
	count := 0
	for _, n := range hexNeighbors[9] {
		if n != noNeighbor {
			count++
		}
	}
	assert.Equal(t, 6, count)
}

func TestGridReceptiveFieldStaysInBounds(t *testing.T) {
	for pos := 0; pos < numGridPositions; pos++ {
		for _, n := range gridReceptiveField[pos] {
			if n == noNeighbor {
				continue
			}
			assert.GreaterOrEqual(t, n, 0)
			assert.Less(t, n, numGridPositions)
		}
	}
}

func TestValidGridPositionsCoverAllBoardCells(t *testing.T) {
	seen := make(map[int32]bool)
	for _, pos := range validGridPositions {
		assert.False(t, seen[pos], "grid position %d mapped twice", pos)
		seen[pos] = true
	}
	assert.Len(t, seen, game.NumCells)
}
