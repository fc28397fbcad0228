package training

import (
	"context"
	"math"
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
)

// averageLossDecay is hiveGo's own moving-average smoothing constant
// (cmd/a0trainer/ai.go).
const averageLossDecay = float32(0.95)

func movingAverage(average, newValue, decay float32, count int) float32 {
	decay = min(1-1/float32(count), decay)
	return average*decay + (1-decay)*newValue
}

// buffer is the bounded FIFO sample pool of §4.7: self-play appends to it
// each generation, and the oldest examples are dropped once it exceeds
// capacity.
type buffer struct {
	examples []Example
	capacity int
}

func newBuffer(capacity int) *buffer {
	return &buffer{capacity: capacity}
}

func (b *buffer) add(examples []Example) {
	b.examples = append(b.examples, examples...)
	if overflow := len(b.examples) - b.capacity; b.capacity > 0 && overflow > 0 {
		b.examples = b.examples[overflow:]
	}
}

// Train runs the §4.7 training loop for config.Generations generations,
// alternating self-play and mini-batch optimization, gated by
// acceptanceGate after each generation. Grounded on cmd/a0trainer/main.go's
// top-level loop shape and ai.go's trainAI.
func Train(ctx context.Context, arch model.Graph, config parameters.TrainConfig, h parameters.Hyperparameters, seed int64) error {
	pool := newBuffer(config.BufferSize)
	rng := rand.New(rand.NewSource(seed))

	for generation := 0; generation < config.Generations; generation++ {
		if ctx.Err() != nil {
			return nil
		}
		klog.V(1).Infof("generation %d/%d: starting self-play", generation+1, config.Generations)

		referenceNet, err := model.New(arch, config.CheckpointDir)
		if err != nil {
			return errors.Wrapf(err, "loading reference net for generation %d", generation)
		}
		candidateNet, err := model.New(arch, config.CheckpointDir)
		if err != nil {
			return errors.Wrapf(err, "loading candidate net for generation %d", generation)
		}
		configureLossWeights(candidateNet, config)

		genSeed := seed + int64(generation)*1_000_003
		examples, err := generateSelfPlay(ctx, candidateNet, h, config.GamesPerGeneration, genSeed)
		if err != nil {
			return errors.Wrapf(err, "self-play for generation %d", generation)
		}
		pool.add(examples)
		klog.V(1).Infof("generation %d: %d new examples, buffer holds %d", generation+1, len(examples), len(pool.examples))

		if len(pool.examples) < config.BatchSize {
			klog.Warningf("generation %d: buffer (%d) smaller than batch size (%d), skipping optimization", generation+1, len(pool.examples), config.BatchSize)
			continue
		}

		ok, err := trainGeneration(ctx, candidateNet, pool.examples, config, rng)
		if err != nil {
			return errors.Wrapf(err, "training step for generation %d", generation)
		}
		if !ok {
			klog.Warningf("generation %d: optimization aborted (NaN/Inf loss), keeping previous checkpoint", generation+1)
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		accepted, candidateMean, referenceMean, err := acceptanceGate(ctx, candidateNet, referenceNet, h, config, genSeed+500_000)
		if err != nil {
			return errors.Wrapf(err, "acceptance gate for generation %d", generation)
		}
		if !accepted {
			klog.Infof("generation %d: candidate (%.2f) did not beat reference (%.2f) by margin %.2f, keeping previous weights",
				generation+1, candidateMean, referenceMean, config.AcceptanceMargin)
			continue
		}
		if err := candidateNet.Save(); err != nil {
			return errors.Wrapf(err, "saving accepted checkpoint for generation %d", generation)
		}
		klog.Infof("generation %d: accepted (candidate=%.2f reference=%.2f)", generation+1, candidateMean, referenceMean)
	}
	return nil
}

// configureLossWeights sets the optimizer learning rate and the
// value_loss_weight context hyperparameter from config's λ_p/λ_v, the
// realization of §4.7's weighted loss over model.Net's single shared
// optimizer (see DESIGN.md's Open Question decision).
func configureLossWeights(net *model.Net, config parameters.TrainConfig) {
	ctx := net.Context()
	ctx.SetParam(optimizers.ParamLearningRate, float64(config.LearningRate))
	weight := 1.0
	if config.PolicyLossWeight != 0 {
		weight = float64(config.ValueLossWeight / config.PolicyLossWeight)
	}
	ctx.SetParam("value_loss_weight", weight)
}

// trainGeneration runs config.TrainStepsPerGeneration mini-batch optimizer
// steps, sampling with replacement from examples, applying augmentation and
// robust normalization to each batch before the optimizer step. Returns
// false (without error) if a NaN/Inf loss is seen, in which case the
// generation's weight changes should be discarded by the caller.
func trainGeneration(ctx context.Context, net *model.Net, examples []Example, config parameters.TrainConfig, rng *rand.Rand) (ok bool, err error) {
	batchSize := config.BatchSize
	var averageLoss float32
	var numSteps int

	trainErr := exceptions.TryCatch[error](func() {
		boardsBatch := make([]features.Tensor, batchSize)
		policyLabelsBatch := make([][game.NumCells]float32, batchSize)
		valueLabelsBatch := make([]float32, batchSize)

		for step := 0; step < config.TrainStepsPerGeneration; step++ {
			if ctx.Err() != nil {
				return
			}
			for i := 0; i < batchSize; i++ {
				example := examples[rng.Intn(len(examples))]
				if config.AugmentationEnabled {
					example = augment(example, rng)
				}
				boardsBatch[i] = example.Encode()
				policyLabelsBatch[i] = example.policyLabels
				valueLabelsBatch[i] = example.valueLabel
			}
			normalizedBatch := normalizeBatch(boardsBatch)

			loss, learnErr := net.Learn(normalizedBatch, policyLabelsBatch, valueLabelsBatch)
			if learnErr != nil {
				panic(learnErr)
			}
			if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
				ok = false
				return
			}
			numSteps++
			averageLoss = movingAverage(averageLoss, loss, averageLossDecay, numSteps)
			if numSteps%100 == 0 {
				klog.V(1).Infof("training step %d/%d: loss(moving avg)=%.4f", numSteps, config.TrainStepsPerGeneration, averageLoss)
			}
		}
		ok = true
	})
	if trainErr != nil {
		return false, trainErr
	}
	return ok, nil
}
