package features

import "github.com/tilesage/takeiteasy-engine/internal/game"

// LegalMask returns a length-19 mask, 1 for empty cells and 0 for occupied
// ones, used by the search to mask illegal positions before softmax (§4.4).
func LegalMask(b *game.Board) [game.NumCells]float32 {
	var mask [game.NumCells]float32
	for _, cell := range b.LegalPositions() {
		mask[cell] = 1
	}
	return mask
}

// PotentialScore estimates, per empty cell, the best achievable contribution
// to score if the current tile were placed there: for each axis, if the
// cell's line already has every other occupied cell sharing the tile's axis
// value, the line could still complete; this returns the best such
// length*value across the three axes, and 0 if no axis is still "live" for
// that tile. This is the completable-line potential the rollout evaluator
// and MCTS heuristic scorers (H in §4.6) build on.
func PotentialScore(b *game.Board, tile game.Tile) [game.NumCells]float32 {
	var potential [game.NumCells]float32
	for _, cell := range b.LegalPositions() {
		var best float32
		for axis := game.Axis(0); axis < game.NumAxes; axis++ {
			lineIdx := game.CellLines[cell][axis]
			line := game.Lines[lineIdx]
			v := tile.Value(axis)
			live := true
			for _, other := range line.Cells {
				if other == cell {
					continue
				}
				t := b.At(other)
				if t.IsEmpty() {
					continue
				}
				if t.Value(axis) != v {
					live = false
					break
				}
			}
			if live {
				score := float32(len(line.Cells)) * float32(v)
				if score > best {
					best = score
				}
			}
		}
		potential[cell] = best
	}
	return potential
}
