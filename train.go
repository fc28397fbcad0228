package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tilesage/takeiteasy-engine/internal/generics"
	"github.com/tilesage/takeiteasy-engine/internal/model"
	"github.com/tilesage/takeiteasy-engine/internal/parameters"
	"github.com/tilesage/takeiteasy-engine/internal/training"
)

// Architectures maps §4.4's model-name configuration value to a
// model.Graph, the registry-by-string-key pattern of hiveGo's
// RegisteredScorers/RegisteredSearchers (players/default registration),
// written out here as a literal map; internal/model registers nothing
// itself.
var Architectures = map[string]model.Graph{
	model.CNNModel{}.Name(): model.CNNModel{},
	model.GATModel{}.Name(): model.GATModel{},
}

// Train is §4.8's train(config): it runs internal/training.Train's
// self-play/optimize/accept loop to completion (or until ctx is
// cancelled), persisting accepted checkpoints under config.CheckpointDir.
// archName selects the network architecture by §4.4's "cnn"/"gat" name.
//
// This is a thin wrapper: internal/training already owns the full
// generation loop (self-play, mini-batch optimization, acceptance gate),
// grounded on cmd/a0trainer/main.go's top-level orchestration; Train's job
// is only to resolve configuration into the typed structs training.Train
// expects, the way cmd/a0trainer/main.go resolves flags before calling into
// its own match/train helpers.
func Train(ctx context.Context, archName string, trainConfigStr, hyperparamsStr string, seed int64) error {
	arch, ok := Architectures[archName]
	if !ok {
		return errors.Errorf("unknown architecture %q, known: %q", archName, generics.KeysSlice(Architectures))
	}

	trainParams := parameters.NewFromConfigString(trainConfigStr)
	config, err := parameters.TrainConfigFromParams(trainParams)
	if err != nil {
		return errors.Wrap(err, "parsing train configuration")
	}
	if len(trainParams) > 0 {
		return errors.Errorf("unknown train configuration parameters %q passed", generics.KeysSlice(trainParams))
	}

	hyperParams := parameters.NewFromConfigString(hyperparamsStr)
	h, err := parameters.HyperparametersFromParams(hyperParams)
	if err != nil {
		return errors.Wrap(err, "parsing hyperparameters")
	}
	if len(hyperParams) > 0 {
		return errors.Errorf("unknown hyperparameters %q passed", generics.KeysSlice(hyperParams))
	}

	return training.Train(ctx, arch, config, h, seed)
}
