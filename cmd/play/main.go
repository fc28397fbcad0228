// cmd/play drives engine.ChooseMove over self-played games, a
// non-interactive replacement for hiveGo's ascii_ui-driven cmd/hive
// (interactive hotseat/watch play is out of scope per §1's Non-goals: "no
// interactive game server").
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	engine "github.com/tilesage/takeiteasy-engine"
	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
	"github.com/tilesage/takeiteasy-engine/internal/ui/spinning"
)

var (
	flagCheckpointDir = flag.String("checkpoint_dir", "", "Directory holding the trained model checkpoint.")
	flagArch          = flag.String("arch", "cnn", "Network architecture: \"cnn\" or \"gat\".")
	flagConfig        = flag.String("config", "", "Comma-separated hyperparameter overrides, e.g. \"num_simulations=800\".")
	flagGames         = flag.Int("games", 1, "Number of games to play.")
	flagSeed          = flag.Int64("seed", 0, "RNG seed. 0 picks a time-based seed.")
	flagMaxMove       = flag.Duration("max_move_time", 0, "Per-move search deadline; 0 means no deadline.")
	flagQuiet         = flag.Bool("quiet", false, "Only print the final score of each game.")

	globalCtx = context.Background()
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var cancel func()
	globalCtx, cancel = context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 3*time.Second)
	defer cancel()

	seed := *flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	arch, ok := engine.Architectures[*flagArch]
	if !ok {
		klog.Fatalf("unknown --arch=%q", *flagArch)
	}
	e := must.M1(engine.New(arch, *flagCheckpointDir, *flagConfig, seed))

	var totalScore int
	for g := 0; g < *flagGames; g++ {
		score := must.M1(playOneGame(e, seed+int64(g)*7919, *flagQuiet))
		totalScore += score
		fmt.Printf("game %d/%d: score=%d\n", g+1, *flagGames, score)
	}
	if *flagGames > 1 {
		fmt.Printf("mean score over %d games: %.2f\n", *flagGames, float64(totalScore)/float64(*flagGames))
	}
}

// playOneGame runs one complete game to the full 19-cell board, calling
// engine.ChooseMove once per decision and printing the board as it fills in.
func playOneGame(e *engine.Engine, seed int64, quiet bool) (int, error) {
	rng := rand.New(rand.NewSource(seed))
	board := game.NewBoard()
	d := deck.NewFull()

	tile, err := d.SampleUniform(rng)
	if err != nil {
		return 0, err
	}
	if err := d.Remove(tile); err != nil {
		return 0, err
	}

	for turn := 0; ; turn++ {
		ctx := globalCtx
		var moveCancel func()
		if *flagMaxMove > 0 {
			ctx, moveCancel = context.WithTimeout(globalCtx, *flagMaxMove)
		}
		if !quiet {
			fmt.Printf("turn %d: placing %s\n", turn, tile)
		}
		s := spinning.New(ctx)
		result, err := e.ChooseMove(ctx, board, d, tile, turn, game.NumCells)
		s.Done()
		if moveCancel != nil {
			moveCancel()
		}
		if err != nil {
			return 0, err
		}
		if err := board.Place(result.BestPosition, tile); err != nil {
			return 0, err
		}
		if !quiet {
			printBoard(board, result.BestPosition)
			fmt.Println()
		}
		if board.IsFull() {
			break
		}
		tile, err = d.SampleUniform(rng)
		if err != nil {
			return 0, err
		}
		if err := d.Remove(tile); err != nil {
			return 0, err
		}
	}
	return game.Score(board), nil
}
