// Package rollout implements the cheap heuristic playout evaluator of
// §4.5: a fast, network-free way to finish a partial game and turn the
// result into a value estimate, used as one term of internal/mcts's
// blended leaf evaluation.
//
// The action-selection shape is grounded on hiveGo's
// internal/searchers randomizedSearcher (internal/searchers/randomized.go):
// score every legal placement, turn scores into a softmax distribution
// divided by a temperature ("randomness" in hiveGo), and sample from it;
// temperature 0 collapses to picking the best score, exactly as
// randomizedSearcher special-cases "randomness <= 0".
package rollout

import (
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// NormalizeScore maps a raw Take It Easy score onto [-1, 1], the same
// squashing internal/training applies to self-play outcomes, so rollout
// results are directly comparable to network value-head outputs when
// blended (§4.6).
func NormalizeScore(score int) float32 {
	const referenceMax = 200 // a strong but not maximal human/engine game
	ratio := float32(score) / referenceMax
	if ratio > 1 {
		ratio = 1
	}
	return 2*ratio - 1
}

// Play finishes the game from (board, currentTile, deck) by repeatedly
// placing the current tile at a heuristically-chosen cell and drawing the
// next tile uniformly at random, then returns the final raw score. board
// and deck are cloned internally; the caller's copies are untouched.
func Play(b *game.Board, currentTile game.Tile, d *deck.Deck, rng *rand.Rand, temperature float32) (int, error) {
	board := b.Clone()
	remaining := d.Clone()
	tile := currentTile

	for !board.IsFull() {
		cell, err := chooseCell(board, tile, temperature, rng)
		if err != nil {
			return 0, err
		}
		if err := board.Place(cell, tile); err != nil {
			return 0, err
		}
		if board.IsFull() {
			break
		}
		tile, err = remaining.SampleUniform(rng)
		if err != nil {
			return 0, err
		}
		if err := remaining.Remove(tile); err != nil {
			return 0, err
		}
	}
	return game.Score(board), nil
}

// Evaluate is a convenience wrapper returning the normalized value of a
// random playout, the form internal/mcts's leaf evaluator consumes.
func Evaluate(b *game.Board, currentTile game.Tile, d *deck.Deck, rng *rand.Rand, temperature float32) (float32, error) {
	score, err := Play(b, currentTile, d, rng, temperature)
	if err != nil {
		return 0, err
	}
	return NormalizeScore(score), nil
}

// chooseCell picks a legal placement for tile using a potential-score
// softmax, as in hiveGo's randomizedSearcher.Search: build scores per
// option, softmax with the temperature as divisor, then sample; temperature
// <= 0 takes the argmax deterministically.
func chooseCell(b *game.Board, tile game.Tile, temperature float32, rng *rand.Rand) (int, error) {
	legal := b.LegalPositions()
	if len(legal) == 0 {
		return 0, game.ErrNoLegalPositions
	}
	potential := features.PotentialScore(b, tile)

	if temperature <= 0 {
		best, bestScore := legal[0], potential[legal[0]]
		for _, cell := range legal[1:] {
			if potential[cell] > bestScore {
				best, bestScore = cell, potential[cell]
			}
		}
		return best, nil
	}

	probs := make([]float32, len(legal))
	var maxScore float32 = potential[legal[0]]
	for _, cell := range legal[1:] {
		if potential[cell] > maxScore {
			maxScore = potential[cell]
		}
	}
	var sum float32
	for i, cell := range legal {
		probs[i] = math32.Exp((potential[cell] - maxScore) / temperature)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	chance := rng.Float32()
	for i, p := range probs {
		if chance <= p {
			return legal[i], nil
		}
		chance -= p
	}
	// Floating-point rounding: fall back to the last candidate.
	return legal[len(legal)-1], nil
}
