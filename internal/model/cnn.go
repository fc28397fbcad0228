package model

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/activations"
	fnnLayer "github.com/gomlx/gomlx/ml/layers/fnn"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/ml/train/optimizers/cosineschedule"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// CNNModel is a residual "convolutional" tower over the 5x5 embedding grid:
// each block gathers the 4-connected neighborhood of every grid position and
// mixes it with a dense layer. This generalizes hiveGo's
// Gather+Concatenate message-passing style (internal/ai/gomlx/alphazerofnn.go,
// boardEmbed -> actionsEmbed via Gather/Concatenate) from board-to-action
// edges to grid-neighbor edges, which is gomlx's idiomatic way of expressing
// local structure without a dedicated convolution layer in hiveGo's
// dependency set.
type CNNModel struct{}

var _ Graph = CNNModel{}

func (CNNModel) Name() string { return "cnn" }

func (CNNModel) CreateContext() *context.Context {
	ctx := context.New()
	ctx.RngStateReset()
	ctx.SetParams(map[string]any{
		"batch_size": 128,

		optimizers.ParamOptimizer:       "adam",
		optimizers.ParamLearningRate:    0.001,
		optimizers.ParamAdamEpsilon:     1e-7,
		optimizers.ParamAdamDType:       "",
		cosineschedule.ParamPeriodSteps: 0,
		activations.ParamActivation:     "relu",
		regularizers.ParamL2:            1e-5,

		fnnLayer.ParamNumHiddenLayers: 0,
		fnnLayer.ParamResidual:        true,
		fnnLayer.ParamNormalization:   "layer",

		"cnn_embed_dim":  32,
		"cnn_num_blocks": 3,

		"value_loss_weight": 1.0,
	})
	return ctx.Checked(false)
}

func (CNNModel) CreateInputs(batch []features.Tensor) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(batch), features.NumChannels, game.GridSize, game.GridSize))
	tensors.MutableFlatData(t, func(flat []float32) {
		stride := features.NumChannels * game.GridSize * game.GridSize
		for i, b := range batch {
			copy(flat[i*stride:], b.Flatten())
		}
	})
	return t
}

func (CNNModel) CreateLegalMask(masks [][game.NumCells]float32) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(masks), game.NumCells))
	tensors.MutableFlatData(t, func(flat []float32) {
		for i, m := range masks {
			copy(flat[i*game.NumCells:], m[:])
		}
	})
	return t
}

// validGridPositions lists, for each of the 19 board cells in order, its
// flat position in the 5x5 embedding grid.
var validGridPositions [game.NumCells]int32

func init() {
	for cell := 0; cell < game.NumCells; cell++ {
		row, col := game.CellToGrid(cell)
		validGridPositions[cell] = int32(row*game.GridSize + col)
	}
}

func (m CNNModel) ForwardGraph(ctx *context.Context, input, legalMask *Node) (policy, value *Node) {
	g := input.Graph()
	batchSize := input.Shape().Dim(0)
	embedDim := context.GetParamOr(ctx, "cnn_embed_dim", 32)
	numBlocks := context.GetParamOr(ctx, "cnn_num_blocks", 3)

	// [batch, C, H, W] -> [batch, H, W, C] -> [batch*H*W, C]
	x := Transpose(input, 1, 3)
	x = Transpose(x, 1, 2)
	x = Reshape(x, batchSize*numGridPositions, features.NumChannels)
	x = fnnLayer.New(ctx.In("embed"), x, embedDim).Done()

	neighborIdx := m.neighborIndex(g, batchSize)
	for block := 0; block < numBlocks; block++ {
		blockCtx := ctx.In("block").In(itoa(block))
		padded := Concatenate([]*Node{x, Zeros(g, shapes.Make(x.DType(), 1, embedDim))}, 0)
		parts := make([]*Node, 0, 5)
		parts = append(parts, x)
		for _, col := range neighborIdx {
			parts = append(parts, Gather(padded, col))
		}
		mixed := Concatenate(parts, -1)
		mixed = fnnLayer.New(blockCtx, mixed, embedDim).Done()
		x = Add(x, mixed)
	}

	// Value head: mean-pool over the 19 valid cells per board.
	xGrid := Reshape(x, batchSize, numGridPositions, embedDim)
	validMaskData := make([]float32, numGridPositions)
	for _, pos := range validGridPositions {
		validMaskData[pos] = 1
	}
	validMask := Const(g, validMaskData)
	validMask = Reshape(validMask, 1, numGridPositions, 1)
	pooled := ReduceSum(Mul(xGrid, validMask), 1)
	pooled = Div(pooled, Const(g, float32(game.NumCells)))
	valueLogits := fnnLayer.New(ctx.In("value"), pooled, 1).NumHiddenLayers(1, embedDim).Done()
	value = Squeeze(Tanh(valueLogits), -1)

	// Policy head: one logit per board cell, gathered back out in cell order.
	cellIdxData := make([]int32, batchSize*game.NumCells)
	for b := 0; b < batchSize; b++ {
		for cell := 0; cell < game.NumCells; cell++ {
			cellIdxData[b*game.NumCells+cell] = int32(b*numGridPositions) + validGridPositions[cell]
		}
	}
	cellIdx := Const(g, cellIdxData)
	cellEmbed := Gather(x, cellIdx)
	cellLogits := fnnLayer.New(ctx.In("policy"), cellEmbed, 1).NumHiddenLayers(1, embedDim).Done()
	cellLogits = Reshape(cellLogits, batchSize, game.NumCells)

	maskedLogits := Add(cellLogits, Mul(Sub(legalMask, OnesLike(legalMask)), Const(g, float32(1e9))))
	policy = Softmax(maskedLogits, -1)
	return
}

// neighborIndex returns, for each of the 4 receptive-field slots, a flat
// gather-index node of shape [batchSize*numGridPositions] pointing into the
// zero-padded embedding tensor (the extra padIdx row stands in for
// off-grid neighbors).
func (CNNModel) neighborIndex(g *Graph, batchSize int) [4]*Node {
	flatSize := batchSize * numGridPositions
	padIdx := int32(flatSize)
	var data [4][]int32
	for slot := range data {
		data[slot] = make([]int32, flatSize)
	}
	for b := 0; b < batchSize; b++ {
		base := int32(b * numGridPositions)
		for pos := 0; pos < numGridPositions; pos++ {
			for slot, n := range gridReceptiveField[pos] {
				if n == noNeighbor {
					data[slot][int(base)+pos] = padIdx
				} else {
					data[slot][int(base)+pos] = base + int32(n)
				}
			}
		}
	}
	var idx [4]*Node
	for slot := range data {
		idx[slot] = Const(g, data[slot])
	}
	return idx
}

// LossGraph weighs the value head's contribution by "value_loss_weight", a
// context hyperparameter internal/training sets to the ratio of its two
// configured loss weights (ValueLossWeight/PolicyLossWeight, the λ_v/λ_p of
// §4.7): the net has a single shared-tower optimizer, so the weighted sum of
// losses is realized by scaling how much the value term moves that one
// optimizer step rather than by two separate optimizers.
//
// Each per-example loss term is also clamped before reduction
// (valueClipBound/policyClipBound), bounding how far a single outlier example
// can move the shared optimizer step. gomlx's optimizer.UpdateGraph computes
// and applies gradients internally with no per-tensor interception point, so
// this clamps the loss magnitude that feeds that step rather than the
// gradient tensor directly.
func (CNNModel) LossGraph(ctx *context.Context, policy, value, policyLabels, valueLabels *Node) *Node {
	const valueClipBound = 0.5 * 0.5
	const policyClipBound = 1.0

	valueWeight := context.GetParamOr(ctx, "value_loss_weight", 1.0)
	g := value.Graph()
	valuePerExample := Min(losses.MeanSquaredError([]*Node{valueLabels}, []*Node{value}), Const(g, float32(valueClipBound)))
	policyPerExample := Min(losses.CategoricalCrossEntropy([]*Node{policyLabels}, []*Node{policy}), Const(g, float32(policyClipBound)))

	valueLoss := Mul(ReduceAllMean(valuePerExample), Const(g, float32(valueWeight)))
	policyLoss := ReduceAllMean(policyPerExample)
	return Add(valueLoss, policyLoss)
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return string(buf)
}
