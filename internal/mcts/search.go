package mcts

import (
	"context"
	"math/rand"
	"sync/atomic"

	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// Result is choose_move's output (§5): the chosen cell, the visit
// distribution used both to pick it and as a training target, and a value
// estimate for the chosen branch.
type Result struct {
	BestPosition      int
	VisitDistribution [game.NumCells]float32
	ValueEstimate     float32
}

// newChanceNode builds a chance node for the board immediately after a
// placement.
func newChanceNode(b *game.Board, d *deck.Deck, turn int) *chanceNode {
	return &chanceNode{board: b, deck: d, turn: turn, children: make(map[game.Tile]*decisionNode)}
}

// Search runs choose_move's tree search (§4.6, §5) from (board, tile, deck,
// turn) and returns the chosen cell plus the visit distribution. temperature
// controls how the final choice is sampled from the root's visit counts (0
// is greedy, matching evaluation play; >0 matches self-play exploration).
// withDirichletNoise adds root exploration noise, which must only ever be
// requested for self-play (never for engine.ChooseMove's evaluation path).
// seed makes the search's random draws (root noise, tile sampling,
// temperature sampling) reproducible. ctx's deadline, if any, bounds the
// search: on expiry the search returns the best move found so far rather
// than an error (§7, ResourceExhausted).
func Search(
	ctx context.Context,
	b *game.Board,
	tile game.Tile,
	d *deck.Deck,
	turn int,
	eval *Evaluator,
	h parameters.Hyperparameters,
	temperature float32,
	withDirichletNoise bool,
	seed int64,
) (Result, error) {
	if b.IsFull() {
		return Result{}, game.ErrNoLegalPositions
	}

	root := newDecisionNode(b, tile, d, turn, eval)
	if withDirichletNoise {
		root.addDirichletNoise(h.DirichletAlpha, h.DirichletEpsilon, newRandSource(seed))
	}

	budget := int32(float32(h.NumSimulations) * simMultiplier(h, turn))
	if budget < 1 {
		budget = 1
	}
	workers := h.ParallelWorkers
	if workers < 1 {
		workers = 1
	}

	var completed int32
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		workerSeed := seed + int64(w) + 1
		g.Go(func() error {
			rng := rand.New(rand.NewSource(workerSeed))
			for {
				if gctx.Err() != nil {
					return nil
				}
				if atomic.AddInt32(&completed, 1) > budget {
					return nil
				}
				if _, err := searchDecision(root, eval, h, rng); err != nil {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	dist := root.visitDistribution()
	tempRNG := rand.New(rand.NewSource(seed))
	best := selectByTemperature(root, temperature, tempRNG)
	value := meanValue(root, best)
	return Result{BestPosition: best, VisitDistribution: dist, ValueEstimate: value}, nil
}

// searchDecision runs one simulation from n down to a leaf and backs the
// resulting value up through n. It never negates the value on the way up:
// Take It Easy is single-player, so every node shares the same objective.
func searchDecision(n *decisionNode, eval *Evaluator, h parameters.Hyperparameters, rng *rand.Rand) (float32, error) {
	n.mu.Lock()
	cell := n.selectAction(h)
	firstVisit := n.n[cell] == 0
	n.virtualLoss[cell]++
	existingChild := n.children[cell]
	n.mu.Unlock()

	newBoard := n.board.Clone()
	if err := newBoard.Place(cell, n.tile); err != nil {
		n.mu.Lock()
		n.virtualLoss[cell]--
		n.mu.Unlock()
		return 0, err
	}

	var value float32
	var err error
	switch {
	case newBoard.IsFull():
		value = normalizedFinalScore(newBoard)
	case firstVisit:
		value = eval.evaluate(newBoard, cell, game.EmptyTile, n.deck, n.turn+1)
	default:
		child := existingChild
		if child == nil {
			n.mu.Lock()
			child = n.children[cell]
			if child == nil {
				child = newChanceNode(newBoard, n.deck, n.turn+1)
				n.children[cell] = child
			}
			n.mu.Unlock()
		}
		value, err = searchChance(child, eval, h, rng)
	}

	n.mu.Lock()
	n.virtualLoss[cell]--
	if err == nil {
		n.n[cell]++
		n.sumN++
		n.sumValues[cell] += float64(value)
		n.sumSquares[cell] += float64(value) * float64(value)
	}
	n.mu.Unlock()
	return value, err
}

// searchChance samples the next tile, then either directly evaluates the
// resulting decision (first time this exact tile is drawn at this chance
// node) or recurses into the cached decisionNode for it (every draw after
// the first), mirroring hiveGo's two-phase lazy expansion one layer
// down, over chance rather than choice.
func searchChance(cn *chanceNode, eval *Evaluator, h parameters.Hyperparameters, rng *rand.Rand) (float32, error) {
	tile, err := cn.deck.SampleUniform(rng)
	if err != nil {
		return 0, err
	}

	cn.mu.Lock()
	child, exists := cn.children[tile]
	cn.visits++
	cn.mu.Unlock()

	remaining := cn.deck.Clone()
	if err := remaining.Remove(tile); err != nil {
		return 0, err
	}

	if !exists {
		value := eval.evaluate(cn.board, -1, tile, remaining, cn.turn)
		fresh := newDecisionNode(cn.board, tile, remaining, cn.turn, eval)
		cn.mu.Lock()
		if existing, ok := cn.children[tile]; ok {
			child = existing
		} else {
			cn.children[tile] = fresh
			child = fresh
		}
		_ = child
		cn.mu.Unlock()
		return value, nil
	}
	return searchDecision(child, eval, h, rng)
}

func normalizedFinalScore(b *game.Board) float32 {
	const referenceMax = 200
	ratio := float32(game.Score(b)) / referenceMax
	if ratio > 1 {
		ratio = 1
	}
	return 2*ratio - 1
}

func simMultiplier(h parameters.Hyperparameters, turn int) float32 {
	switch {
	case turn < 5:
		return h.SimMultEarly
	case turn < 14:
		return h.SimMultMid
	default:
		return h.SimMultLate
	}
}

// selectByTemperature chooses the root's move the way self-play and
// evaluation each need: temperature 0 is a deterministic tie-break over
// visit count, mean value, prior and finally cell index; temperature > 0
// samples from the visit-count distribution raised to 1/temperature,
// exactly as hiveGo's selectAction (mcts.go).
func selectByTemperature(n *decisionNode, temperature float32, rng *rand.Rand) int {
	legal := n.order
	if n.sumN == 0 {
		best := legal[0]
		for _, cell := range legal[1:] {
			if n.priors[cell] > n.priors[best] {
				best = cell
			}
		}
		return best
	}
	if temperature <= 0 {
		return bestByTieBreak(n)
	}

	probs := make([]float32, len(legal))
	var sum float32
	for i, cell := range legal {
		v := float32(n.n[cell]) / float32(n.sumN)
		if temperature != 1 {
			v = math32.Pow(v, 1/temperature)
		}
		probs[i] = v
		sum += v
	}
	if sum <= 0 {
		return bestByTieBreak(n)
	}
	for i := range probs {
		probs[i] /= sum
	}
	r := rng.Float32()
	for i, p := range probs {
		r -= p
		if r <= 0 {
			return legal[i]
		}
	}
	return legal[len(legal)-1]
}

// bestByTieBreak implements the visits -> mean value -> prior -> lower
// index tie-break rule.
func bestByTieBreak(n *decisionNode) int {
	best := n.order[0]
	for _, cell := range n.order[1:] {
		if betterAction(n, cell, best) {
			best = cell
		}
	}
	return best
}

func betterAction(n *decisionNode, a, b int) bool {
	if n.n[a] != n.n[b] {
		return n.n[a] > n.n[b]
	}
	qa, qb := meanValue(n, a), meanValue(n, b)
	if qa != qb {
		return qa > qb
	}
	if n.priors[a] != n.priors[b] {
		return n.priors[a] > n.priors[b]
	}
	return a < b
}

func meanValue(n *decisionNode, cell int) float32 {
	if n.n[cell] == 0 {
		return 0
	}
	return float32(n.sumValues[cell]) / float32(n.n[cell])
}
