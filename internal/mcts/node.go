// Package mcts implements the search of §4.6: a single-player, stochastic
// variant of AlphaZero's PUCT tree search. Unlike hiveGo's two-player
// zero-sum search (internal/searchers/mcts/mcts.go), values are never
// negated on the way back up the tree — there is no adversary, only chance.
//
// The tree alternates two node kinds. A decisionNode chooses among the
// board's currently-empty cells for where to place the tile already in
// hand. A chanceNode represents the board immediately after that placement,
// before the next tile is revealed; its children are decisionNodes keyed by
// the tile that was actually sampled for that branch, built lazily and
// reused across repeat visits (an open-loop chance node, since the deck's
// remaining composition makes every reachable tile revisit distinguishable
// from a plain transposition table).
//
// The two-phase lazy expansion — first visit to an action evaluates
// directly without allocating a child, only the second visit onward builds
// the child and recurses — and the PUCT formula itself are carried over
// verbatim from hiveGo's cacheNode/SearchSubtree (mcts.go), generalized
// to a single-player score and to the decision/chance alternation. Per-node
// locking plus virtual-loss counters is the concurrency discipline (as
// opposed to a lock-free atomics scheme), grounded on Elvenson-alphabeth's
// mutex-guarded Node (mcts/node.go) and its virtual-loss-like nc/running
// bookkeeping (mcts/search.go).
package mcts

import (
	"sort"
	"sync"

	"github.com/chewxy/math32"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// decisionNode holds the search statistics for choosing a cell to place the
// node's tile on, for every one of the board's legal positions (indexed by
// cell, 0 for occupied cells).
type decisionNode struct {
	mu sync.Mutex

	board *game.Board
	tile  game.Tile
	deck  *deck.Deck
	turn  int

	priors [game.NumCells]float32

	n           [game.NumCells]int32
	virtualLoss [game.NumCells]int32
	sumValues   [game.NumCells]float64
	sumSquares  [game.NumCells]float64
	children    [game.NumCells]*chanceNode
	sumN        int32

	// order ranks legal cells by descending prior, computed once at
	// construction; progressive widening admits a growing prefix of it.
	order []int
}

// chanceNode represents the board right after a placement, before the next
// tile is revealed.
type chanceNode struct {
	mu sync.Mutex

	board *game.Board
	deck  *deck.Deck
	turn  int

	visits   int32
	children map[game.Tile]*decisionNode
}

// newDecisionNode builds a node and evaluates its policy priors via eval,
// masking and renormalizing over the board's legal positions (§4.4).
func newDecisionNode(b *game.Board, tile game.Tile, d *deck.Deck, turn int, eval *Evaluator) *decisionNode {
	n := &decisionNode{board: b, tile: tile, deck: d, turn: turn}
	legal := b.LegalPositions()
	rawPolicy := eval.policy(b, tile, d, turn)

	var sum float32
	for _, cell := range legal {
		sum += rawPolicy[cell]
	}
	if sum > 1e-8 {
		for _, cell := range legal {
			n.priors[cell] = rawPolicy[cell] / sum
		}
	} else {
		uniform := 1.0 / float32(len(legal))
		for _, cell := range legal {
			n.priors[cell] = uniform
		}
	}

	n.order = append([]int(nil), legal...)
	sort.Slice(n.order, func(i, j int) bool {
		return n.priors[n.order[i]] > n.priors[n.order[j]]
	})
	return n
}

// addDirichletNoise blends Dirichlet(alpha) noise into the root's priors
// with weight epsilon, the self-play-only exploration boost of §4.6/§4.7.
// It must only ever be called on a freshly-constructed root node, before any
// simulation has visited it.
func (n *decisionNode) addDirichletNoise(alpha, epsilon float32, rng *randSource) {
	legal := n.order
	noise := sampleDirichlet(alpha, len(legal), rng)
	for i, cell := range legal {
		n.priors[cell] = (1-epsilon)*n.priors[cell] + epsilon*noise[i]
	}
}

// widenWindow returns how many of the top-prior legal actions are currently
// eligible for selection, a progressive-widening schedule that grows with
// the node's visit count: k = max(1, ceil(phaseConstant*numLegal)) +
// floor(sqrt(N+1)), capped at the number of legal actions. phaseConstant is one of
// Hyperparameters' Prune{Early,Mid1,Mid2,Late} values, chosen by turn.
func (n *decisionNode) widenWindow(h parameters.Hyperparameters) int {
	phaseConstant := pruneConstant(h, n.turn)
	numLegal := len(n.order)
	baseline := int(math32.Ceil(phaseConstant * float32(numLegal)))
	if baseline < 1 {
		baseline = 1
	}
	growth := int(math32.Sqrt(float32(n.sumN + 1)))
	k := baseline + growth
	if k > numLegal {
		k = numLegal
	}
	return k
}

// pruneConstant selects the phase-appropriate progressive-widening constant.
// Game phase is quartered over the board's 19 placements.
func pruneConstant(h parameters.Hyperparameters, turn int) float32 {
	switch {
	case turn < 5:
		return h.PruneEarly
	case turn < 10:
		return h.PruneMid1
	case turn < 14:
		return h.PruneMid2
	default:
		return h.PruneLate
	}
}

// cPuct selects the phase-appropriate exploration constant, then scales it
// by the risk-sensitive variance multiplier: nodes whose visited children
// show high outcome variance get a larger constant (explore more to resolve
// the uncertainty), low-variance nodes get a smaller one (exploit the
// established estimate). Grounded on original_source/src/mcts/risk_sensitive.rs.
func cPuct(h parameters.Hyperparameters, turn int, variance float32) float32 {
	var base float32
	switch {
	case turn < 5:
		base = h.CPuctEarly
	case turn < 14:
		base = h.CPuctMid
	default:
		base = h.CPuctLate
	}
	const varianceThreshold = 0.05
	if variance > varianceThreshold {
		return base * h.VarianceMultHigh
	}
	return base * h.VarianceMultLow
}

// selectAction runs one PUCT selection step, assuming the caller holds
// n.mu. It returns -1 only if no legal action exists, which never happens
// for a node constructed from a non-full board.
func (n *decisionNode) selectAction(h parameters.Hyperparameters) int {
	window := n.widenWindow(h)
	variance := n.outcomeVariance()
	c := cPuct(h, n.turn, variance)
	globalFactor := c * math32.Sqrt(float32(n.sumN)+1)

	best := -1
	var bestScore float32
	for i := 0; i < window; i++ {
		cell := n.order[i]
		visits := n.n[cell] + n.virtualLoss[cell]
		var q float32
		if visits > 0 {
			q = float32(n.sumValues[cell]) / float32(visits)
		}
		score := q + globalFactor*n.priors[cell]/float32(1+visits)
		if best == -1 || score > bestScore {
			best, bestScore = cell, score
		}
	}
	return best
}

// outcomeVariance estimates the spread of backed-up values across the
// node's visited actions, assuming the caller holds n.mu.
func (n *decisionNode) outcomeVariance() float32 {
	var totalN int32
	var sum, sumSq float64
	for _, cell := range n.order {
		v := n.n[cell]
		if v == 0 {
			continue
		}
		totalN += v
		sum += n.sumValues[cell]
		sumSq += n.sumSquares[cell]
	}
	if totalN == 0 {
		return 0
	}
	mean := sum / float64(totalN)
	meanSq := sumSq / float64(totalN)
	variance := meanSq - mean*mean
	if variance < 0 {
		variance = 0
	}
	return float32(variance)
}

// visitDistribution returns the normalized visit counts over all 19 cells
// (zero at illegal or never-visited cells), the form used both as the
// policy training target and, via temperature sampling, as the move choice
// itself (§4.6, §4.7).
func (n *decisionNode) visitDistribution() [game.NumCells]float32 {
	var dist [game.NumCells]float32
	if n.sumN == 0 {
		return dist
	}
	for _, cell := range n.order {
		dist[cell] = float32(n.n[cell]) / float32(n.sumN)
	}
	return dist
}
