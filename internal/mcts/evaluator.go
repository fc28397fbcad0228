package mcts

import (
	"math/rand"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
	"github.com/tilesage/takeiteasy-engine/internal/rollout"
)

// Evaluator is the blended leaf evaluation of §4.6: a weighted combination
// of the network's value head, one or more heuristic rollouts, and two
// cheap positional heuristics, with phase-annealed weights and a rollout
// count chosen from the network's value confidence (rolloutCount).
type Evaluator struct {
	net    model.PolicyValueNet
	params parameters.Hyperparameters
	rng    *rand.Rand
}

// NewEvaluator builds an Evaluator around a trained net. rng drives the
// rollout evaluator's internal randomness; callers that need determinism
// should pass a rand.Rand seeded deterministically.
func NewEvaluator(net model.PolicyValueNet, params parameters.Hyperparameters, rng *rand.Rand) *Evaluator {
	return &Evaluator{net: net, params: params, rng: rng}
}

// policy returns the network's legality-masked per-cell probabilities for
// placing tile on b. newDecisionNode still renormalizes over the board's
// legal cells afterward, to absorb any floating-point drift from the
// graph-side softmax.
func (e *Evaluator) policy(b *game.Board, tile game.Tile, d *deck.Deck, turn int) [game.NumCells]float32 {
	totalTurns := game.NumCells
	t := features.Encode(b, tile, d, turn, totalTurns)
	return e.net.PredictMasked(t, features.LegalMask(b)).Policy
}

// evaluate computes the blended leaf value for the board immediately after
// a placement (b, the cell just filled), with the remaining deck d and the
// tile that will next be revealed unknown. nextTile, when non-empty, is the
// already-sampled tile for this branch (used for the network value query);
// when empty the network sees a context with no committed next tile.
func (e *Evaluator) evaluate(b *game.Board, placedCell int, nextTile game.Tile, d *deck.Deck, turn int) float32 {
	totalTurns := game.NumCells
	valueFeatures := features.Encode(b, nextTile, d, turn, totalTurns)
	netValue := e.net.Predict(valueFeatures).Value

	rolloutValue := e.rolloutValue(b, nextTile, d, turn)
	heuristic := e.heuristicValue(b)
	contextual := e.contextualValue(b, placedCell)

	wCNN, wRollout, wHeuristic, wContextual := phaseWeights(e.params, turn)
	blended := wCNN*netValue + wRollout*rolloutValue + wHeuristic*heuristic + wContextual*contextual

	if e.params.RiskAversion != 0 {
		blended = applyRiskAversion(blended, e.params.RiskAversion)
	}
	return clamp(blended, -1, 1)
}

// rolloutValue averages rolloutCount(turn) independent heuristic playouts,
// the rollout count chosen by how confident the network's own value
// estimate already looks: a value near the extremes needs fewer
// corroborating rollouts than one near zero.
func (e *Evaluator) rolloutValue(b *game.Board, nextTile game.Tile, d *deck.Deck, turn int) float32 {
	if b.IsFull() {
		return rollout.NormalizeScore(game.Score(b))
	}
	// The rollout evaluator needs a committed current tile; if none has
	// been revealed yet for this branch, sample one uniformly so a rollout
	// can still run (it only ever informs a blend weight, not ground
	// truth).
	tile := nextTile
	var err error
	if tile.IsEmpty() {
		tile, err = d.SampleUniform(e.rng)
		if err != nil {
			return 0
		}
	}
	remaining := d
	if d.Has(tile) {
		remaining = d.Clone()
		_ = remaining.Remove(tile)
	}

	count := e.rolloutCount(b, tile, d, turn)
	if count == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < count; i++ {
		v, err := rollout.Evaluate(b, tile, remaining, e.rng, 0.5)
		if err != nil {
			return 0
		}
		sum += v
	}
	return sum / float32(count)
}

// rolloutCount picks the rollout budget from a quick network-confidence
// probe: |value| close to 1 means the network is already decisive, so fewer
// rollouts are spent corroborating it.
func (e *Evaluator) rolloutCount(b *game.Board, tile game.Tile, d *deck.Deck, turn int) int {
	probe := e.net.Predict(features.Encode(b, tile, d, turn, game.NumCells)).Value
	confidence := probe
	if confidence < 0 {
		confidence = -confidence
	}
	switch {
	case confidence >= 0.66:
		return e.params.RolloutStrong
	case confidence >= 0.33:
		return e.params.RolloutMedium
	case confidence >= 0.1:
		return e.params.RolloutDefault
	default:
		return e.params.RolloutWeak
	}
}

// heuristicValue (H) is a coarse, board-wide estimate of remaining
// potential: the mean completable-line potential over every still-empty
// cell, normalized onto the same [-1, 1] scale as rollout outcomes. It
// deliberately ignores whose tile is in hand, unlike the rollout evaluator.
func (e *Evaluator) heuristicValue(b *game.Board) float32 {
	legal := b.LegalPositions()
	if len(legal) == 0 {
		return rollout.NormalizeScore(game.Score(b))
	}
	// Use the highest-value tile on each axis as an optimistic proxy: the
	// true current/next tile isn't known at this scope.
	proxy := game.Tile{A: game.AxisValues[game.Axis1][2], B: game.AxisValues[game.Axis2][2], C: game.AxisValues[game.Axis3][2]}
	potential := features.PotentialScore(b, proxy)
	var sum float32
	for _, cell := range legal {
		sum += potential[cell]
	}
	mean := sum / float32(len(legal))
	return rollout.NormalizeScore(int(mean) * len(legal))
}

// contextualValue (C) rewards the specific cell just placed: the longer the
// live lines it still participates in, the better, normalized by the
// longest possible line (5).
func (e *Evaluator) contextualValue(b *game.Board, placedCell int) float32 {
	if placedCell < 0 {
		return 0
	}
	tile := b.At(placedCell)
	if tile.IsEmpty() {
		return 0
	}
	var best int
	for axis := game.Axis(0); axis < game.NumAxes; axis++ {
		line := game.Lines[game.CellLines[placedCell][axis]]
		live := true
		for _, other := range line.Cells {
			if other == placedCell {
				continue
			}
			t := b.At(other)
			if !t.IsEmpty() && t.Value(axis) != tile.Value(axis) {
				live = false
				break
			}
		}
		if live && len(line.Cells) > best {
			best = len(line.Cells)
		}
	}
	const longestLine = 5
	return 2*float32(best)/longestLine - 1
}

// phaseWeights interpolates the leaf-evaluation blend weights by game
// phase: as the board fills in, the network has seen a context closer to
// what it was trained on (a denser board), so its share of the blend grows
// while the rollout/heuristic share shrinks; contextual stays fixed. The
// configured Hyperparameters weights are the late-game (turn 18) weights;
// early game pulls mass from WeightCNN toward WeightRollout and
// WeightHeuristic.
func phaseWeights(h parameters.Hyperparameters, turn int) (wCNN, wRollout, wHeuristic, wContextual float32) {
	progress := float32(turn) / float32(game.NumCells-1)
	const earlyCNNDiscount = 0.3
	wCNN = h.WeightCNN * (1 - earlyCNNDiscount*(1-progress))
	shed := h.WeightCNN - wCNN
	wRollout = h.WeightRollout + shed*0.6
	wHeuristic = h.WeightHeuristic + shed*0.4
	wContextual = h.WeightContextual

	sum := wCNN + wRollout + wHeuristic + wContextual
	if sum > 1e-8 {
		wCNN /= sum
		wRollout /= sum
		wHeuristic /= sum
		wContextual /= sum
	}
	return
}

// applyRiskAversion shifts a value toward -1 proportionally to its own
// variance contribution, the supplemented risk-sensitive transform of
// SPEC_FULL.md (grounded on original_source/src/mcts/risk_sensitive.rs): a
// positive riskAversion penalizes optimistic-but-uncertain leaves.
func applyRiskAversion(value, riskAversion float32) float32 {
	penalty := riskAversion * (1 - value*value)
	return value - penalty
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
