// cmd/train drives engine.Train (§4.7's self-play/optimize/accept loop),
// grounded on cmd/a0trainer/main.go's flag-to-orchestration shape.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	engine "github.com/tilesage/takeiteasy-engine"
	"github.com/tilesage/takeiteasy-engine/internal/ui/spinning"
)

var (
	flagArch        = flag.String("arch", "cnn", "Network architecture: \"cnn\" or \"gat\".")
	flagTrainConfig = flag.String("train_config", "", "Comma-separated TrainConfig overrides, e.g. \"generations=10,games_per_generation=50\".")
	flagHyperparams = flag.String("config", "", "Comma-separated Hyperparameters overrides used during self-play and benchmark games.")
	flagSeed        = flag.Int64("seed", 1, "RNG seed for the whole training run.")

	globalCtx = context.Background()
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var cancel func()
	globalCtx, cancel = context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 5*time.Second)
	defer cancel()

	must.M(engine.Train(globalCtx, *flagArch, *flagTrainConfig, *flagHyperparams, *flagSeed))
}
