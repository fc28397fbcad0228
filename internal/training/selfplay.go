package training

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/mcts"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
	"github.com/tilesage/takeiteasy-engine/internal/rollout"
)

// selfPlayTemperature is the exploration temperature schedule of §6/§9:
// constant at TempInitial through TempDecayStart, linearly decayed to
// TempFinal by TempDecayEnd, then held at TempFinal, mirroring hiveGo's own
// decayed-temperature self-play move selection (mcts.go's
// derivedPolicy/selectAction with a temperature argument).
func selfPlayTemperature(h parameters.Hyperparameters, turn int) float32 {
	if turn <= h.TempDecayStart {
		return h.TempInitial
	}
	if turn >= h.TempDecayEnd {
		return h.TempFinal
	}
	span := float32(h.TempDecayEnd - h.TempDecayStart)
	progress := float32(turn-h.TempDecayStart) / span
	return h.TempInitial + progress*(h.TempFinal-h.TempInitial)
}

// playSelfPlayGame runs one complete game using mcts.Search with root
// Dirichlet noise and the exploration temperature schedule, recording one
// Example per decision and re-scoring every example to the game's final
// normalized outcome once play ends (cmd/a0trainer/matches.go's runMatch,
// generalized from two-player win/loss/draw scoring to this single-player
// domain's continuous score).
func playSelfPlayGame(ctx context.Context, net model.PolicyValueNet, h parameters.Hyperparameters, seed int64) ([]Example, error) {
	rng := rand.New(rand.NewSource(seed))
	eval := mcts.NewEvaluator(net, h, rng)

	board := game.NewBoard()
	d := deck.NewFull()
	tile, err := d.SampleUniform(rng)
	if err != nil {
		return nil, err
	}
	if err := d.Remove(tile); err != nil {
		return nil, err
	}

	examples := make([]Example, 0, game.NumCells)
	for turn := 0; ; turn++ {
		temperature := selfPlayTemperature(h, turn)
		result, err := mcts.Search(ctx, board, tile, d, turn, eval, h, temperature, true, seed+int64(turn)+1)
		if err != nil {
			return nil, err
		}

		examples = append(examples, Example{
			board:        board.Clone(),
			tile:         tile,
			deck:         d.Clone(),
			turn:         turn,
			policyLabels: result.VisitDistribution,
		})

		if err := board.Place(result.BestPosition, tile); err != nil {
			return nil, err
		}
		if board.IsFull() {
			break
		}
		tile, err = d.SampleUniform(rng)
		if err != nil {
			return nil, err
		}
		if err := d.Remove(tile); err != nil {
			return nil, err
		}
	}

	outcome := rollout.NormalizeScore(game.Score(board))
	for i := range examples {
		examples[i].valueLabel = outcome
	}
	return examples, nil
}

// generateSelfPlay runs config.GamesPerGeneration games in parallel,
// errgroup-bounded exactly as cmd/a0trainer/matches.go's runMatches, and
// returns every collected example.
func generateSelfPlay(ctx context.Context, net model.PolicyValueNet, h parameters.Hyperparameters, numGames int, baseSeed int64) ([]Example, error) {
	var collect collector
	g, gctx := errgroup.WithContext(ctx)
	if h.ParallelWorkers > 0 {
		g.SetLimit(h.ParallelWorkers)
	}

	for i := 0; i < numGames; i++ {
		gameIdx := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			examples, err := playSelfPlayGame(gctx, net, h, baseSeed+int64(gameIdx)*1009)
			if err != nil {
				return err
			}
			collect.add(examples)
			klog.V(2).Infof("self-play game %d/%d finished, %d examples", gameIdx+1, numGames, len(examples))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collect.drain(), nil
}
