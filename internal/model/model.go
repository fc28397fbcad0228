// Package model implements the policy/value network abstraction of §4.4: a
// PolicyValueNet that maps an encoded board tensor to a 19-way move
// distribution and a scalar value estimate, with two interchangeable
// backends (CNNModel and GATModel) built on gomlx.
//
// The split mirrors hiveGo's PolicyModel/ValueModel separation
// (internal/ai/gomlx/{policymodel.go,valuemodel.go,alphazerofnn.go}): a
// Graph implementation owns hyperparameters and graph-building, while Net
// owns the gomlx executors, checkpoint and optimizer plumbing
// (internal/ai/gomlx/scorer.go).
package model

import (
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// Prediction is the net's output for a single board: a probability (or raw
// score, depending on caller) per cell and a value estimate in [-1, 1].
type Prediction struct {
	Policy [game.NumCells]float32
	Value  float32
}

// Graph is implemented by each concrete network architecture (CNNModel,
// GATModel). It owns hyperparameters via a gomlx context and knows how to
// build the forward and loss graphs; it has no notion of executors,
// checkpoints or batching, which Net provides generically.
type Graph interface {
	// Name identifies the architecture, used in checkpoint directory naming
	// and logging.
	Name() string

	// CreateContext returns a context with this architecture's
	// hyperparameters set to their defaults.
	CreateContext() *context.Context

	// CreateInputs builds the input tensor for a (possibly padded) batch of
	// already-encoded boards, shaped [batch, features.NumChannels,
	// game.GridSize, game.GridSize].
	CreateInputs(batch []features.Tensor) *tensors.Tensor

	// CreateLegalMask builds the [batch, NumCells] 0/1 legality mask used to
	// exclude occupied cells from the policy softmax, both at inference and
	// at training time (§4.4: illegal positions never receive probability
	// mass).
	CreateLegalMask(masks [][game.NumCells]float32) *tensors.Tensor

	// ForwardGraph builds the shared tower and both heads. input is shaped
	// [batch, C, H, W], legalMask is shaped [batch, NumCells]; it returns
	// policy shaped [batch, NumCells] (already masked and normalized with
	// Softmax) and value shaped [batch] (already squeezed and
	// Tanh-squashed to [-1, 1]).
	ForwardGraph(ctx *context.Context, input, legalMask *graph.Node) (policy, value *graph.Node)

	// LossGraph computes the combined policy cross-entropy + value MSE +
	// L2 weight decay loss (§4.7) given the forward outputs and labels.
	// policyLabels is shaped [batch, NumCells] (a normalized visit
	// distribution, zero at illegal cells); valueLabels is shaped [batch].
	LossGraph(ctx *context.Context, policy, value *graph.Node, policyLabels, valueLabels *graph.Node) *graph.Node
}

// PolicyValueNet is the interface consumed by internal/mcts and
// internal/training: single and batched inference plus a single optimizer
// step. internal/mcts's decision-node construction always calls
// PredictMasked with the board's true legality, since an unmasked policy
// would let occupied cells compete for probability mass in the softmax
// before renormalization; internal/training evaluates full batches with an
// all-legal mask since training boards are padded to a fixed batch size.
type PolicyValueNet interface {
	// Predict scores a single encoded board, treating every cell as legal.
	Predict(t features.Tensor) Prediction

	// PredictMasked is Predict with the board's true legality mask (§4.4):
	// occupied cells receive zero policy probability and the remaining
	// mass is renormalized over the legal cells, computed inside the graph
	// before the softmax rather than by the caller.
	PredictMasked(t features.Tensor, mask [game.NumCells]float32) Prediction

	// BatchPredict scores a batch of encoded boards in one graph call,
	// treating every cell as legal.
	BatchPredict(batch []features.Tensor) []Prediction

	// BatchPredictMasked is BatchPredict with a per-board legality mask.
	BatchPredictMasked(batch []features.Tensor, masks [][game.NumCells]float32) []Prediction

	// Learn runs one optimizer step over a mini-batch and returns the loss.
	Learn(batch []features.Tensor, policyLabels [][game.NumCells]float32, valueLabels []float32) (loss float32, err error)

	// Loss evaluates the loss without updating weights, used by the
	// acceptance gate (§4.7) to compare candidate against reference.
	Loss(batch []features.Tensor, policyLabels [][game.NumCells]float32, valueLabels []float32) (loss float32, err error)

	// Save persists weights to the checkpoint directory, if any.
	Save() error

	// BatchSize is the model's preferred mini-batch size.
	BatchSize() int
}
