package training

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// uniformNet is a fake model.PolicyValueNet, the same shape as
// internal/mcts's test stub: uniform policy, zero value, never touching
// gomlx, so self-play/acceptance-gate tests don't need a real backend.
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
	h.NumSimulations = 16
	h.ParallelWorkers = 2
	h.RolloutStrong, h.RolloutMedium, h.RolloutDefault, h.RolloutWeak = 0, 0, 0, 0
	return h
}

func TestSelfPlayTemperatureSchedule(t *testing.T) {
	h := parameters.DefaultHyperparameters()
	assert.Equal(t, h.TempInitial, selfPlayTemperature(h, 0))
	assert.Equal(t, h.TempInitial, selfPlayTemperature(h, h.TempDecayStart))
	assert.Equal(t, h.TempFinal, selfPlayTemperature(h, h.TempDecayEnd))
	assert.Equal(t, h.TempFinal, selfPlayTemperature(h, h.TempDecayEnd+5))
	mid := selfPlayTemperature(h, (h.TempDecayStart+h.TempDecayEnd)/2)
	assert.Less(t, mid, h.TempInitial)
	assert.Greater(t, mid, h.TempFinal)
}

func TestPlaySelfPlayGameProducesOneExamplePerDecision(t *testing.T) {
	h := smallHyperparameters()
	examples, err := playSelfPlayGame(context.Background(), uniformNet{}, h, 1)
	require.NoError(t, err)
	assert.Len(t, examples, game.NumCells)
	for _, e := range examples {
		assert.GreaterOrEqual(t, e.valueLabel, float32(-1))
		assert.LessOrEqual(t, e.valueLabel, float32(1))
		var sum float32
		for _, p := range e.policyLabels {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-3)
	}
	// Every example in a finished game shares the same final-score label.
	for _, e := range examples[1:] {
		assert.Equal(t, examples[0].valueLabel, e.valueLabel)
	}
}

func TestGenerateSelfPlayCollectsAllGames(t *testing.T) {
	h := smallHyperparameters()
	h.ParallelWorkers = 2
	examples, err := generateSelfPlay(context.Background(), uniformNet{}, h, 3, 10)
	require.NoError(t, err)
	assert.Len(t, examples, 3*game.NumCells)
}

func TestPlayGreedyGameIsDeterministic(t *testing.T) {
	h := smallHyperparameters()
	run := func() int {
		score, err := playGreedyGame(context.Background(), uniformNet{}, h, 7)
		require.NoError(t, err)
		return score
	}
	assert.Equal(t, run(), run())
}

func TestBenchmarkMeanScoreIsNonNegative(t *testing.T) {
	h := smallHyperparameters()
	mean, err := benchmarkMeanScore(context.Background(), uniformNet{}, h, 4, 3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mean, float32(0))
}

func TestAcceptanceGateRejectsIdenticalNets(t *testing.T) {
	h := smallHyperparameters()
	config := parameters.DefaultTrainConfig()
	config.BenchmarkGames = 4
	config.AcceptanceMargin = 0.01
	// Both players are the exact same net under the exact same seeds, so the
	// candidate can never clear a positive acceptance margin.
	accepted, candidateMean, referenceMean, err := acceptanceGate(context.Background(), uniformNet{}, uniformNet{}, h, config, 42)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, candidateMean, referenceMean)
}

func TestNormalizeRobustClampsAndCenters(t *testing.T) {
	values := []float32{-100, -1, 0, 1, 100}
	out := normalizeRobust(values)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, float32(-3))
		assert.LessOrEqual(t, v, float32(3))
	}
	// The median value normalizes to (approximately) zero.
	assert.InDelta(t, 0, out[2], 1e-3)
}

func TestNormalizeRobustHandlesDegenerateBatch(t *testing.T) {
	values := []float32{5, 5, 5, 5}
	out := normalizeRobust(values)
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
}

func TestNormalizeBatchPreservesShape(t *testing.T) {
	batch := make([]features.Tensor, 4)
	for i := range batch {
		batch[i][0][0][0] = float32(i) * 50
	}
	out := normalizeBatch(batch)
	require.Len(t, out, len(batch))
	for _, t2 := range out {
		for c := 0; c < features.NumChannels; c++ {
			for r := 0; r < game.GridSize; r++ {
				for col := 0; col < game.GridSize; col++ {
					assert.GreaterOrEqual(t, t2[c][r][col], float32(-3))
					assert.LessOrEqual(t, t2[c][r][col], float32(3))
				}
			}
		}
	}
}

func TestAugmentIdentityOrPermuted(t *testing.T) {
	b := game.NewBoard()
	require.NoError(t, b.Place(0, game.Tile{A: 1, B: 2, C: 3}))
	e := Example{
		board:        b,
		tile:         game.Tile{A: 5, B: 6, C: 7},
		deck:         deck.NewFull(),
		turn:         1,
		policyLabels: [game.NumCells]float32{0: 1},
		valueLabel:   0.5,
	}
	seen := map[bool]bool{}
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		out := augment(e, rng)
		// The current tile and valueLabel are never touched by augmentation:
		// Board.Permute doesn't change any tile's values, and it's chosen to
		// preserve Score exactly.
		assert.Equal(t, e.tile, out.tile)
		assert.Equal(t, e.valueLabel, out.valueLabel)

		identity := out.board.At(0).Equal(e.board.At(0))
		// policyLabels must move in lockstep with wherever the board's tile
		// went: identity leaves it at cell 0, the non-identity permutation
		// moves it to cell 0's antipode.
		if identity {
			assert.Equal(t, e.policyLabels, out.policyLabels)
		} else {
			assert.Equal(t, e.board.At(0), out.board.At(18))
			assert.Equal(t, float32(1), out.policyLabels[18])
			assert.Equal(t, float32(0), out.policyLabels[0])
		}
		seen[identity] = true
	}
	// Across enough seeds we should see both the identity permutation and the
	// non-identity one.
	assert.True(t, seen[true])
	assert.True(t, seen[false])
}

func TestBufferDropsOldestOnOverflow(t *testing.T) {
	buf := newBuffer(5)
	buf.add([]Example{{turn: 1}, {turn: 2}, {turn: 3}})
	buf.add([]Example{{turn: 4}, {turn: 5}, {turn: 6}})
	require.Len(t, buf.examples, 5)
	// The oldest (turn 1) should have been dropped first.
	for _, e := range buf.examples {
		assert.NotEqual(t, 1, e.turn)
	}
	assert.Equal(t, 6, buf.examples[len(buf.examples)-1].turn)
}

func TestMovingAverageConvergesTowardNewValue(t *testing.T) {
	avg := float32(0)
	for i := 1; i <= 500; i++ {
		avg = movingAverage(avg, 1.0, averageLossDecay, i)
	}
	assert.InDelta(t, 1.0, avg, 0.05)
}
