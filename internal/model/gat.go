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

	"github.com/chewxy/math32"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// GATModel is a graph-attention tower over the true hex adjacency of the 19
// board cells (hexNeighbors, derived from game.Lines), rather than the
// square-grid adjacency CNNModel uses. Each layer computes per-edge
// attention logits from query/key projections and aggregates neighbor
// values with a softmax-normalized weighted sum, the attention counterpart
// of hiveGo's Gather+Concatenate message passing
// (internal/ai/gomlx/alphazerofnn.go).
type GATModel struct{}

var _ Graph = GATModel{}

func (GATModel) Name() string { return "gat" }

func (GATModel) CreateContext() *context.Context {
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

		"gat_embed_dim":  32,
		"gat_num_layers": 2,

		"value_loss_weight": 1.0,
	})
	return ctx.Checked(false)
}

func (GATModel) CreateInputs(batch []features.Tensor) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(batch), features.NumChannels, game.GridSize, game.GridSize))
	tensors.MutableFlatData(t, func(flat []float32) {
		stride := features.NumChannels * game.GridSize * game.GridSize
		for i, b := range batch {
			copy(flat[i*stride:], b.Flatten())
		}
	})
	return t
}

func (GATModel) CreateLegalMask(masks [][game.NumCells]float32) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(masks), game.NumCells))
	tensors.MutableFlatData(t, func(flat []float32) {
		for i, m := range masks {
			copy(flat[i*game.NumCells:], m[:])
		}
	})
	return t
}

func (m GATModel) ForwardGraph(ctx *context.Context, input, legalMask *Node) (policy, value *Node) {
	g := input.Graph()
	batchSize := input.Shape().Dim(0)
	embedDim := context.GetParamOr(ctx, "gat_embed_dim", 32)
	numLayers := context.GetParamOr(ctx, "gat_num_layers", 2)

	// Gather the 19 board cells' raw features out of the 5x5 grid, in cell
	// order: [batch, C, H, W] -> [batch*NumCells, C].
	flatInput := Reshape(input, batchSize, features.NumChannels, numGridPositions)
	flatInput = Transpose(flatInput, 1, 2) // [batch, numGridPositions, C]
	cellIdxData := make([]int32, batchSize*game.NumCells)
	for b := 0; b < batchSize; b++ {
		for cell := 0; cell < game.NumCells; cell++ {
			cellIdxData[b*game.NumCells+cell] = int32(b*numGridPositions) + validGridPositions[cell]
		}
	}
	cellIdx := Const(g, cellIdxData)
	flatInput = Reshape(flatInput, batchSize*numGridPositions, features.NumChannels)
	x := Gather(flatInput, cellIdx)
	x = fnnLayer.New(ctx.In("embed"), x, embedDim).Done()

	flatSize := batchSize * game.NumCells
	srcIdx, dstIdx, validEdge := m.edgeIndex(g, batchSize)
	for layer := 0; layer < numLayers; layer++ {
		layerCtx := ctx.In("layer").In(itoa(layer))
		query := fnnLayer.New(layerCtx.In("query"), x, embedDim).NumHiddenLayers(0, 0).Done()
		key := fnnLayer.New(layerCtx.In("key"), x, embedDim).NumHiddenLayers(0, 0).Done()
		value := fnnLayer.New(layerCtx.In("value_proj"), x, embedDim).NumHiddenLayers(0, 0).Done()

		padQuery := Concatenate([]*Node{query, Zeros(g, shapes.Make(query.DType(), 1, embedDim))}, 0)
		padKey := Concatenate([]*Node{key, Zeros(g, shapes.Make(key.DType(), 1, embedDim))}, 0)
		padValue := Concatenate([]*Node{value, Zeros(g, shapes.Make(value.DType(), 1, embedDim))}, 0)

		edgeQuery := Gather(padQuery, dstIdx)
		edgeKey := Gather(padKey, srcIdx)
		edgeValue := Gather(padValue, srcIdx)
		logits := ReduceSum(Mul(edgeQuery, edgeKey), -1)
		logits = Div(logits, Const(g, SqrtEmbedDim(embedDim)))
		logits = Add(logits, Mul(Sub(validEdge, OnesLike(validEdge)), Const(g, float32(1e9))))

		// Ragged softmax per destination cell: hiveGo's MakeRagged2D
		// pattern (alphazerofnn.go ForwardPolicyGraph), here with a fixed
		// per-node neighbor count instead of a variable action count.
		attn := m.perNodeSoftmax(g, logits, flatSize)
		messages := Mul(edgeValue, ExpandAxes(attn, -1))
		aggregated := m.scatterSum(g, messages, dstIdx, flatSize, embedDim)
		aggregated = fnnLayer.New(layerCtx.In("mix"), aggregated, embedDim).Done()
		x = Add(x, aggregated)
	}

	xByBoard := Reshape(x, batchSize, game.NumCells, embedDim)
	pooled := ReduceMean(xByBoard, 1)
	valueLogits := fnnLayer.New(ctx.In("value"), pooled, 1).NumHiddenLayers(1, embedDim).Done()
	valOut := Squeeze(Tanh(valueLogits), -1)

	cellLogits := fnnLayer.New(ctx.In("policy"), x, 1).NumHiddenLayers(1, embedDim).Done()
	cellLogits = Reshape(cellLogits, batchSize, game.NumCells)
	maskedLogits := Add(cellLogits, Mul(Sub(legalMask, OnesLike(legalMask)), Const(g, float32(1e9))))
	return Softmax(maskedLogits, -1), valOut
}

// edgeIndex builds the fixed (up to 6 neighbors per cell) edge list for a
// batch: srcIdx/dstIdx are flat indices into the padded [flatSize+1, dim]
// node tensor, validEdge is 1 where the edge is real and 0 for a padded
// (missing) hex neighbor slot.
func (GATModel) edgeIndex(g *Graph, batchSize int) (srcIdx, dstIdx, validEdge *Node) {
	flatSize := batchSize * game.NumCells
	numEdges := flatSize * maxHexNeighbors
	src := make([]int32, numEdges)
	dst := make([]int32, numEdges)
	valid := make([]float32, numEdges)
	padIdx := int32(flatSize)
	e := 0
	for b := 0; b < batchSize; b++ {
		base := int32(b * game.NumCells)
		for cell := 0; cell < game.NumCells; cell++ {
			for _, n := range hexNeighbors[cell] {
				dst[e] = base + int32(cell)
				if n == noNeighbor {
					src[e] = padIdx
					valid[e] = 0
				} else {
					src[e] = base + int32(n)
					valid[e] = 1
				}
				e++
			}
		}
	}
	return Const(g, src), Const(g, dst), Reshape(Const(g, valid), numEdges)
}

// perNodeSoftmax normalizes logits (shape [numEdges]) within each
// destination node's fixed maxHexNeighbors-sized group.
func (GATModel) perNodeSoftmax(g *Graph, logits *Node, flatSize int) *Node {
	grouped := Reshape(logits, flatSize, maxHexNeighbors)
	return Softmax(grouped, -1)
}

// scatterSum folds per-edge messages (shape [numEdges, dim], grouped
// contiguously by destination since edgeIndex emits all of a cell's edges
// together) back down to per-node sums by reshaping and reducing.
func (GATModel) scatterSum(g *Graph, messages *Node, dstIdx *Node, flatSize, embedDim int) *Node {
	grouped := Reshape(messages, flatSize, maxHexNeighbors, embedDim)
	return ReduceSum(grouped, 1)
}

// LossGraph weighs the value head's contribution by "value_loss_weight" and
// clamps each per-example loss term before reduction; see CNNModel.LossGraph
// for why.
func (GATModel) LossGraph(ctx *context.Context, policy, value, policyLabels, valueLabels *Node) *Node {
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

// SqrtEmbedDim is the attention-logit scaling factor sqrt(embedDim),
// precomputed in Go rather than as a graph op since embedDim is static.
func SqrtEmbedDim(embedDim int) float32 {
	return math32.Sqrt(float32(embedDim))
}
