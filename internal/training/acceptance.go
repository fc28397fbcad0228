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
)

// playGreedyGame runs one complete game at temperature 0 (deterministic
// evaluation play, no root noise), the same choose_move mode
// engine.ChooseMove uses, and returns the final raw score.
func playGreedyGame(ctx context.Context, net model.PolicyValueNet, h parameters.Hyperparameters, seed int64) (int, error) {
	// Tiles are drawn from rng alone; the evaluator gets its own stream, so
	// the tile sequence depends only on seed and not on the net's search.
	rng := rand.New(rand.NewSource(seed))
	eval := mcts.NewEvaluator(net, h, rand.New(rand.NewSource(seed+1)))

	board := game.NewBoard()
	d := deck.NewFull()
	tile, err := d.SampleUniform(rng)
	if err != nil {
		return 0, err
	}
	if err := d.Remove(tile); err != nil {
		return 0, err
	}

	for turn := 0; ; turn++ {
		result, err := mcts.Search(ctx, board, tile, d, turn, eval, h, 0, false, seed+int64(turn)+1)
		if err != nil {
			return 0, err
		}
		if err := board.Place(result.BestPosition, tile); err != nil {
			return 0, err
		}
		if board.IsFull() {
			break
		}
		tile, err = d.SampleUniform(rng)
		if err != nil {
			return 0, err
		}
		if err := d.Remove(tile); err != nil {
			return 0, err
		}
	}
	return game.Score(board), nil
}

// benchmarkMeanScore plays numGames greedy games with net in parallel (the
// same games.go/matches.go errgroup pattern, applied to a single player
// rather than a match) and returns the mean final score. Both nets compared
// by acceptanceGate are given the same seed sequence so they face the same
// sequence of sampled tiles, isolating the comparison to move choice.
func benchmarkMeanScore(ctx context.Context, net model.PolicyValueNet, h parameters.Hyperparameters, numGames int, baseSeed int64) (float32, error) {
	scores := make([]int, numGames)
	g, gctx := errgroup.WithContext(ctx)
	if h.ParallelWorkers > 0 {
		g.SetLimit(h.ParallelWorkers)
	}
	for i := 0; i < numGames; i++ {
		gameIdx := i
		g.Go(func() error {
			score, err := playGreedyGame(gctx, net, h, baseSeed+int64(gameIdx)*1009)
			if err != nil {
				return err
			}
			scores[gameIdx] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	return float32(sum) / float32(numGames), nil
}

// acceptanceGate is the §4.7 acceptance gate, filling in the point
// cmd/a0trainer/ai.go leaves as "// TODO: check trained model is better
// than previous one.": the candidate is accepted only if its mean
// benchmark score beats the frozen reference's by more than config's margin.
func acceptanceGate(ctx context.Context, candidate, reference model.PolicyValueNet, h parameters.Hyperparameters, config parameters.TrainConfig, seed int64) (accepted bool, candidateMean, referenceMean float32, err error) {
	candidateMean, err = benchmarkMeanScore(ctx, candidate, h, config.BenchmarkGames, seed)
	if err != nil {
		return false, 0, 0, err
	}
	referenceMean, err = benchmarkMeanScore(ctx, reference, h, config.BenchmarkGames, seed)
	if err != nil {
		return false, 0, 0, err
	}
	accepted = candidateMean > referenceMean+config.AcceptanceMargin
	klog.V(1).Infof("acceptance gate: candidate=%.2f reference=%.2f margin=%.2f accepted=%v",
		candidateMean, referenceMean, config.AcceptanceMargin, accepted)
	return accepted, candidateMean, referenceMean, nil
}
