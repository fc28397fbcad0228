package model

import (
	"sync"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/xla"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tilesage/takeiteasy-engine/internal/features"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// backend is a process-wide singleton, shared by every Net, mirroring
// hiveGo's internal/ai/gomlx/scorer.go backend = sync.OnceValue(...).
var backend = sync.OnceValue(func() backends.Backend { return backends.New() })

// Net wraps a Graph implementation with gomlx executors, an optional
// on-disk checkpoint and an optimizer, implementing PolicyValueNet. It is
// the generic counterpart of hiveGo's Scorer struct
// (internal/ai/gomlx/scorer.go), parameterized over Graph instead of being
// hard-wired to one ValueModel implementation.
type Net struct {
	arch Graph
	ctx  *context.Context

	predictExec   *context.Exec
	lossExec      *context.Exec
	trainStepExec *context.Exec

	checkpoint *checkpoints.Handler
	optimizer  optimizers.Interface

	batchSize int

	// muLearning: write-locked for Learn, read-locked for Predict/Loss, as
	// in hiveGo's Scorer.
	muLearning sync.RWMutex
}

var _ PolicyValueNet = (*Net)(nil)

// New builds a Net around the given architecture. If checkpointDir is
// non-empty, weights are loaded from (and later saved to) that directory.
func New(arch Graph, checkpointDir string) (*Net, error) {
	n := &Net{arch: arch, ctx: arch.CreateContext()}

	if checkpointDir != "" {
		var err error
		n.checkpoint, err = checkpoints.Build(n.ctx).Dir(checkpointDir).Immediate().Keep(10).Done()
		if err != nil {
			return nil, errors.Wrapf(err, "building checkpoint for %s model at %s", arch.Name(), checkpointDir)
		}
	}

	n.batchSize = context.GetParamOr(n.ctx, "batch_size", 128)
	n.optimizer = optimizers.FromContext(n.ctx)

	n.predictExec = context.NewExec(backend(), n.ctx,
		func(ctx *context.Context, inputs []*graph.Node) []*graph.Node {
			ctx = ctx.Checked(false)
			policy, value := arch.ForwardGraph(ctx, inputs[0], inputs[1])
			return []*graph.Node{policy, value}
		})

	n.lossExec = context.NewExec(backend(), n.ctx,
		func(ctx *context.Context, inputs []*graph.Node) *graph.Node {
			board, mask, policyLabels, valueLabels := inputs[0], inputs[1], inputs[2], inputs[3]
			policy, value := arch.ForwardGraph(ctx, board, mask)
			return arch.LossGraph(ctx, policy, value, policyLabels, valueLabels)
		})

	n.trainStepExec = context.NewExec(backend(), n.ctx,
		func(ctx *context.Context, inputs []*graph.Node) *graph.Node {
			board, mask, policyLabels, valueLabels := inputs[0], inputs[1], inputs[2], inputs[3]
			g := board.Graph()
			ctx.SetTraining(g, true)
			policy, value := arch.ForwardGraph(ctx, board, mask)
			loss := arch.LossGraph(ctx, policy, value, policyLabels, valueLabels)
			n.optimizer.UpdateGraph(ctx, g, loss)
			train.ExecPerStepUpdateGraphFn(ctx, g)
			return loss
		})

	// Force variable creation/loading before concurrent use.
	_ = n.Predict(features.Tensor{})

	klog.V(1).Infof("created %s net (batch_size=%d)", arch.Name(), n.batchSize)
	return n, nil
}

func (n *Net) Predict(t features.Tensor) Prediction {
	return n.BatchPredict([]features.Tensor{t})[0]
}

func (n *Net) PredictMasked(t features.Tensor, mask [game.NumCells]float32) Prediction {
	return n.BatchPredictMasked([]features.Tensor{t}, [][game.NumCells]float32{mask})[0]
}

func (n *Net) BatchPredict(batch []features.Tensor) []Prediction {
	masks := make([][game.NumCells]float32, len(batch))
	for i := range masks {
		for c := range masks[i] {
			masks[i][c] = 1
		}
	}
	return n.BatchPredictMasked(batch, masks)
}

// BatchPredictMasked is the variant internal/mcts uses, with the true
// legality mask for each board rather than the all-legal default
// BatchPredict assumes.
func (n *Net) BatchPredictMasked(batch []features.Tensor, masks [][game.NumCells]float32) []Prediction {
	input := n.arch.CreateInputs(batch)
	maskT := n.arch.CreateLegalMask(masks)

	n.muLearning.RLock()
	defer n.muLearning.RUnlock()
	outputs := n.predictExec.Call(
		graph.DonateTensorBuffer(input, backend()),
		graph.DonateTensorBuffer(maskT, backend()))
	policyT, valueT := outputs[0], outputs[1]

	predictions := make([]Prediction, len(batch))
	policyFlat := policyT.Value().([]float32)
	valueFlat := valueT.Value().([]float32)
	for i := range batch {
		var p Prediction
		copy(p.Policy[:], policyFlat[i*game.NumCells:(i+1)*game.NumCells])
		p.Value = valueFlat[i]
		predictions[i] = p
	}
	return predictions
}

func (n *Net) Learn(batch []features.Tensor, policyLabels [][game.NumCells]float32, valueLabels []float32) (float32, error) {
	n.muLearning.Lock()
	defer n.muLearning.Unlock()
	loss, err := n.run(n.trainStepExec, batch, policyLabels, valueLabels)
	if err != nil {
		return 0, errors.Wrap(err, "training step")
	}
	return loss, nil
}

func (n *Net) Loss(batch []features.Tensor, policyLabels [][game.NumCells]float32, valueLabels []float32) (float32, error) {
	n.muLearning.RLock()
	defer n.muLearning.RUnlock()
	loss, err := n.run(n.lossExec, batch, policyLabels, valueLabels)
	if err != nil {
		return 0, errors.Wrap(err, "loss evaluation")
	}
	return loss, nil
}

func (n *Net) run(exec *context.Exec, batch []features.Tensor, policyLabels [][game.NumCells]float32, valueLabels []float32) (loss float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("model execution panicked: %v", r)
		}
	}()
	allLegal := make([][game.NumCells]float32, len(batch))
	for i := range allLegal {
		for c := range allLegal[i] {
			allLegal[i][c] = 1
		}
	}
	input := n.arch.CreateInputs(batch)
	maskT := n.arch.CreateLegalMask(allLegal)
	policyLabelsT := tensorFromPolicyLabels(policyLabels)
	valueLabelsT := tensorFromValueLabels(valueLabels)

	outputs := exec.Call(
		graph.DonateTensorBuffer(input, backend()),
		graph.DonateTensorBuffer(maskT, backend()),
		graph.DonateTensorBuffer(policyLabelsT, backend()),
		graph.DonateTensorBuffer(valueLabelsT, backend()))
	return tensors.ToScalar[float32](outputs[0]), nil
}

func tensorFromPolicyLabels(labels [][game.NumCells]float32) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(labels), game.NumCells))
	tensors.MutableFlatData(t, func(flat []float32) {
		for i, l := range labels {
			copy(flat[i*game.NumCells:], l[:])
		}
	})
	return t
}

func tensorFromValueLabels(labels []float32) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(labels)))
	tensors.MutableFlatData(t, func(flat []float32) {
		copy(flat, labels)
	})
	return t
}

func (n *Net) Save() error {
	if n.checkpoint == nil {
		klog.Warningf("%s net has no checkpoint directory, not saving", n.arch.Name())
		return nil
	}
	return n.checkpoint.Save()
}

func (n *Net) BatchSize() int {
	return n.batchSize
}

// Context exposes the underlying hyperparameter context, e.g. so
// internal/training can override learning rate between generations.
func (n *Net) Context() *context.Context {
	return n.ctx
}
