package mcts_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/mcts"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// uniformNet is a fake PolicyValueNet that never touches gomlx: uniform
// policy, zero value, used so these tests never need a real backend.
type uniformNet struct{}

func (uniformNet) Predict(features.Tensor) model.Prediction {
	var p model.Prediction
	for i := range p.Policy {
		p.Policy[i] = 1.0 / float32(game.NumCells)
	}
	return p
}

func (n uniformNet) PredictMasked(t features.Tensor, _ [game.NumCells]float32) model.Prediction {
	return n.Predict(t)
}

func (n uniformNet) BatchPredict(batch []features.Tensor) []model.Prediction {
	out := make([]model.Prediction, len(batch))
	for i := range out {
		out[i] = n.Predict(batch[i])
	}
	return out
}

func (n uniformNet) BatchPredictMasked(batch []features.Tensor, _ [][game.NumCells]float32) []model.Prediction {
	return n.BatchPredict(batch)
}

func (uniformNet) Learn([]features.Tensor, [][game.NumCells]float32, []float32) (float32, error) {
	return 0, nil
}

func (uniformNet) Loss([]features.Tensor, [][game.NumCells]float32, []float32) (float32, error) {
	return 0, nil
}

func (uniformNet) Save() error { return nil }

func (uniformNet) BatchSize() int { return 32 }

func smallHyperparameters() parameters.Hyperparameters {
	h := parameters.DefaultHyperparameters()
	h.NumSimulations = 32
	h.ParallelWorkers = 2
	h.RolloutStrong, h.RolloutMedium, h.RolloutDefault, h.RolloutWeak = 0, 0, 1, 1
	return h
}

func TestSearchReturnsLegalPosition(t *testing.T) {
	b := game.NewBoard()
	d := deck.NewFull()
	tile, err := d.SampleUniform(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, d.Remove(tile))

	eval := mcts.NewEvaluator(uniformNet{}, smallHyperparameters(), rand.New(rand.NewSource(2)))
	result, err := mcts.Search(context.Background(), b, tile, d, 0, eval, smallHyperparameters(), 0, false, 42)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty(result.BestPosition))
}

func TestSearchVisitDistributionSumsToOne(t *testing.T) {
	b := game.NewBoard()
	d := deck.NewFull()
	tile := game.Tile{A: 1, B: 2, C: 3}
	require.NoError(t, d.Remove(tile))

	eval := mcts.NewEvaluator(uniformNet{}, smallHyperparameters(), rand.New(rand.NewSource(3)))
	result, err := mcts.Search(context.Background(), b, tile, d, 0, eval, smallHyperparameters(), 1.0, true, 7)
	require.NoError(t, err)

	var sum float32
	for _, p := range result.VisitDistribution {
		assert.GreaterOrEqual(t, p, float32(0))
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}

func TestSearchIsDeterministicWithFixedSeed(t *testing.T) {
	run := func() int {
		b := game.NewBoard()
		d := deck.NewFull()
		tile := game.Tile{A: 5, B: 6, C: 4}
		require.NoError(t, d.Remove(tile))
		eval := mcts.NewEvaluator(uniformNet{}, smallHyperparameters(), rand.New(rand.NewSource(9)))
		result, err := mcts.Search(context.Background(), b, tile, d, 0, eval, smallHyperparameters(), 0, false, 99)
		require.NoError(t, err)
		return result.BestPosition
	}
	assert.Equal(t, run(), run())
}

func TestSearchOnAlmostFullBoardPicksTheLastCell(t *testing.T) {
	b := game.NewBoard()
	all := game.AllTiles()
	d := deck.New(all)

	// Fill every cell but the last one with arbitrary distinct tiles.
	for cell := 0; cell < game.NumCells-1; cell++ {
		tile := all[cell]
		require.NoError(t, d.Remove(tile))
		require.NoError(t, b.Place(cell, tile))
	}
	lastTile := all[game.NumCells-1]
	require.NoError(t, d.Remove(lastTile))

	eval := mcts.NewEvaluator(uniformNet{}, smallHyperparameters(), rand.New(rand.NewSource(5)))
	result, err := mcts.Search(context.Background(), b, lastTile, d, game.NumCells-1, eval, smallHyperparameters(), 0, false, 11)
	require.NoError(t, err)
	assert.Equal(t, game.NumCells-1, result.BestPosition)
}

func TestSearchRejectsFullBoard(t *testing.T) {
	b := game.NewBoard()
	all := game.AllTiles()
	for cell := 0; cell < game.NumCells; cell++ {
		require.NoError(t, b.Place(cell, all[cell]))
	}
	d := deck.New(nil)
	eval := mcts.NewEvaluator(uniformNet{}, smallHyperparameters(), rand.New(rand.NewSource(1)))
	_, err := mcts.Search(context.Background(), b, game.EmptyTile, d, game.NumCells, eval, smallHyperparameters(), 0, false, 1)
	assert.ErrorIs(t, err, game.ErrNoLegalPositions)
}

func TestSearchRespectsContextDeadline(t *testing.T) {
	b := game.NewBoard()
	d := deck.NewFull()
	tile := game.Tile{A: 9, B: 7, C: 8}
	require.NoError(t, d.Remove(tile))

	h := smallHyperparameters()
	h.NumSimulations = 1_000_000
	h.ParallelWorkers = 1
	eval := mcts.NewEvaluator(uniformNet{}, h, rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := mcts.Search(ctx, b, tile, d, 0, eval, h, 0, false, 1)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty(result.BestPosition))
}
