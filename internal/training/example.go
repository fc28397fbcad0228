// Package training implements §4.7's training loop: self-play generation,
// mini-batch optimization with robust input normalization, board-symmetry
// data augmentation, and a generation acceptance gate. Per-example loss
// clamping lives in internal/model's LossGraph; gradients are not clipped.
//
// Grounded on cmd/a0trainer/{matches.go,ai.go}: errgroup-parallel self-play
// collecting Example values re-scored to the game's final outcome, and an
// exceptions.TryCatch-wrapped mini-batch loop with moving-average loss
// logging. cmd/a0trainer/ai.go leaves a "// TODO: check trained model is
// better than previous one." comment at exactly the point this package's
// acceptance gate (acceptance.go) fills in.
package training

import (
	"sync"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// Example holds one training data point: the full context needed to
// re-encode the board (for augmentation, which must re-derive the tensor
// from a permuted board rather than permute the tensor directly),
// the target visit distribution, and the target value. Mirrors
// cmd/a0trainer/ai.go's Example, generalized to keep the pre-encoding
// state instead of a precomputed board pointer, since this repo's
// augmentation needs to permute and re-encode.
type Example struct {
	board *game.Board
	tile  game.Tile
	deck  *deck.Deck
	turn  int

	policyLabels [game.NumCells]float32
	valueLabel   float32
}

// Encode re-derives this example's input tensor on demand, rather than
// storing it, so augmentation can cheaply produce permuted variants without
// keeping both the pre- and post-permutation tensors around.
func (e Example) Encode() features.Tensor {
	return features.Encode(e.board, e.tile, e.deck, e.turn, game.NumCells)
}

// collector accumulates examples from concurrent self-play games behind a
// mutex, mirroring cmd/a0trainer/matches.go's CollectExamples.
type collector struct {
	mu       sync.Mutex
	examples []Example
}

func (c *collector) add(examples []Example) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.examples = append(c.examples, examples...)
}

func (c *collector) drain() []Example {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.examples
	c.examples = nil
	return out
}
