// Package engine is the public facade of §4.8: ChooseMove and Train, the
// two entry points surrounding code (servers, CLIs, training drivers) is
// meant to call. An Engine owns the network weights and the RNG; the
// search and training packages only ever borrow them for the duration of
// one call, never hold process-global state of their own.
//
// Grounded on internal/players/searcherscorer.go's SearcherScorer: a facade
// struct built once from a configuration string, exposing a single Play-like
// entry point, with unrecognized configuration keys rejected rather than
// silently ignored.
package engine

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/generics"
	"github.com/tilesage/takeiteasy-engine/internal/mcts"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// Engine is one loaded model plus the hyperparameters governing how it is
// searched. Safe for concurrent use: ChooseMove's own parallelism lives
// inside mcts.Search, model.Net guards its executors with its muLearning
// lock, and the per-call seed stream is mutex-guarded.
type Engine struct {
	net    model.PolicyValueNet
	h      parameters.Hyperparameters
	seeder *seedSource
}

// New loads a network of architecture arch from checkpointDir and parses
// config (the same comma-separated key=value string
// parameters.NewFromConfigString accepts) into a Hyperparameters. Any
// configuration key HyperparametersFromParams doesn't recognize is an
// error, mirroring SearcherScorer.New's "unknown AI parameters" check.
func New(arch model.Graph, checkpointDir, config string, seed int64) (*Engine, error) {
	params := parameters.NewFromConfigString(config)
	h, err := parameters.HyperparametersFromParams(params)
	if err != nil {
		return nil, errors.Wrap(err, "parsing hyperparameters")
	}
	if len(params) > 0 {
		return nil, errors.Errorf("unknown engine parameters %q passed", generics.KeysSlice(params))
	}

	net, err := model.New(arch, checkpointDir)
	if err != nil {
		return nil, errors.Wrap(err, "loading model checkpoint")
	}
	return &Engine{net: net, h: h, seeder: newSeedSource(seed)}, nil
}

// NewFromNet wraps an already-loaded net (e.g. the candidate net a training
// loop is benchmarking) with an explicit Hyperparameters, bypassing config
// string parsing. Used by internal/training and by tests.
func NewFromNet(net model.PolicyValueNet, h parameters.Hyperparameters, seed int64) *Engine {
	return &Engine{net: net, h: h, seeder: newSeedSource(seed)}
}

// seedSource hands out a fresh deterministic seed per call from a single
// root seed, so repeated ChooseMove calls on the same Engine don't all
// replay identical search randomness while a single Engine build still
// reproduces byte-for-byte given the same root seed and call sequence. mu
// serializes access to rng across concurrent ChooseMove calls.
type seedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSeedSource(seed int64) *seedSource {
	return &seedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *seedSource) next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63()
}

// ChooseMove is §4.8's choose_move: it runs one internally-parallel MCTS
// search from (board, tile, deck, turn) at temperature 0 (greedy,
// deterministic evaluation play — self-play's exploratory temperature
// schedule lives in internal/training, never here) and returns the chosen
// cell, the root's visit distribution, and a value estimate. totalTurns is
// accepted for the public contract's shape but this engine's board is
// always the fixed 19-cell one (game.NumCells); a mismatched totalTurns is
// an InvalidInput error rather than silently reinterpreting the board.
func (e *Engine) ChooseMove(ctx context.Context, board *game.Board, d *deck.Deck, tile game.Tile, turn, totalTurns int) (mcts.Result, error) {
	if totalTurns != game.NumCells {
		return mcts.Result{}, errors.Errorf("totalTurns=%d, this engine only supports boards of %d cells", totalTurns, game.NumCells)
	}
	if board.IsFull() {
		return mcts.Result{}, game.ErrNoLegalPositions
	}
	eval := mcts.NewEvaluator(e.net, e.h, rand.New(rand.NewSource(e.seeder.next())))
	result, err := mcts.Search(ctx, board, tile, d, turn, eval, e.h, 0, false, e.seeder.next())
	if err != nil {
		return mcts.Result{}, err
	}
	if klog.V(2).Enabled() {
		klog.Infof("turn %d: chose cell %d (value=%.3f)", turn, result.BestPosition, result.ValueEstimate)
	}
	return result, nil
}

// Hyperparameters exposes the engine's resolved hyperparameters (e.g. for a
// caller that wants to log or display the effective configuration).
func (e *Engine) Hyperparameters() parameters.Hyperparameters {
	return e.h
}
