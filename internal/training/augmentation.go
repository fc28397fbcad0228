package training

import (
	"math/rand"

	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// augment applies one of the board's game.NumPermutations symmetries to
// example, chosen uniformly at random: identity, or the center-reflection
// game.Board.Permute implements. Unlike a literal axis cycle (see
// game.Board.Permute's doc for why that's not score-preserving here),
// this transform never changes a tile's values, so the current tile and
// remaining deck are untouched. policyLabels is indexed by cell and is
// carried along with the board's cell relabeling so the target
// distribution still names the same physical placements; valueLabel is
// the game's final score and needs no change at all, since the chosen
// permutation preserves Score exactly. Grounded on
// original_source/src/data/augmentation.rs's cyclic-permutation idea,
// adapted to this repo's axis-pinned tile domains; §4.7 names this
// augmentation.
func augment(e Example, rng *rand.Rand) Example {
	k := rng.Intn(game.NumPermutations)
	if k == 0 {
		return e
	}
	var policyLabels [game.NumCells]float32
	for cell := 0; cell < game.NumCells; cell++ {
		policyLabels[game.PermuteCell(k, cell)] = e.policyLabels[cell]
	}
	return Example{
		board:        e.board.Permute(k),
		tile:         e.tile,
		deck:         e.deck.Clone(),
		turn:         e.turn,
		policyLabels: policyLabels,
		valueLabel:   e.valueLabel,
	}
}
