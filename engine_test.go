package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// uniformNet is the same fake model.PolicyValueNet shape used by
// internal/mcts and internal/training's own test stubs: uniform policy,
// zero value, no gomlx backend involved.
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

func testHyperparameters() parameters.Hyperparameters {
	h := parameters.DefaultHyperparameters()
	h.NumSimulations = 16
	h.ParallelWorkers = 2
	h.RolloutStrong, h.RolloutMedium, h.RolloutDefault, h.RolloutWeak = 0, 0, 0, 0
	return h
}

func TestChooseMoveReturnsLegalPosition(t *testing.T) {
	e := NewFromNet(uniformNet{}, testHyperparameters(), 1)
	board := game.NewBoard()
	d := deck.NewFull()
	tile := game.AllTiles()[0]

	result, err := e.ChooseMove(context.Background(), board, d, tile, 0, game.NumCells)
	require.NoError(t, err)
	assert.True(t, board.IsEmpty(result.BestPosition))

	var sum float32
	for _, p := range result.VisitDistribution {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
	assert.GreaterOrEqual(t, result.ValueEstimate, float32(-1))
	assert.LessOrEqual(t, result.ValueEstimate, float32(1))
}

func TestChooseMoveRejectsWrongTotalTurns(t *testing.T) {
	e := NewFromNet(uniformNet{}, testHyperparameters(), 1)
	board := game.NewBoard()
	d := deck.NewFull()
	tile := game.AllTiles()[0]

	_, err := e.ChooseMove(context.Background(), board, d, tile, 0, game.NumCells+1)
	assert.Error(t, err)
}

func TestChooseMoveRejectsFullBoard(t *testing.T) {
	e := NewFromNet(uniformNet{}, testHyperparameters(), 1)
	board := game.NewBoard()
	d := deck.NewFull()
	for cell := 0; cell < game.NumCells; cell++ {
		require.NoError(t, board.Place(cell, game.AllTiles()[0]))
	}

	_, err := e.ChooseMove(context.Background(), board, d, game.AllTiles()[0], game.NumCells, game.NumCells)
	assert.Error(t, err)
}

func TestNewRejectsUnknownConfigKeys(t *testing.T) {
	_, err := New(model.CNNModel{}, t.TempDir(), "bogus_key=1", 1)
	assert.Error(t, err)
}

func TestTrainRejectsUnknownArchitecture(t *testing.T) {
	err := Train(context.Background(), "not-a-real-architecture", "", "", 1)
	assert.Error(t, err)
}
