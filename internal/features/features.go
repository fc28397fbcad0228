// Package features converts (board, current tile, deck, turn) into the
// fixed-shape numeric tensor consumed by the policy/value networks (§4.3).
//
// Channel layout mirrors hiveGo's table-driven BoardSpec design
// (internal/features/features.go in hiveGo) but is one-hot rather
// than scalar, as required by §4.3: pattern-matching "same value on axis" is
// then a per-channel equality check the downstream network can learn
// cheaply.
package features

import (
	"github.com/chewxy/math32"

	"github.com/tilesage/takeiteasy-engine/internal/deck"
	"github.com/tilesage/takeiteasy-engine/internal/game"
)

const (
	// numAxisValueChannels is 3 axes * 3 legal values per axis.
	numAxisValueChannels = game.NumAxes * 3

	channelOccupancyOneHotStart = 0
	channelOccupied              = channelOccupancyOneHotStart + numAxisValueChannels
	channelCurrentTileStart      = channelOccupied + 1
	channelDeckCompositionStart  = channelCurrentTileStart + numAxisValueChannels
	channelTurnIndex             = channelDeckCompositionStart + numAxisValueChannels

	// NumChannels is the fixed channel count C of the encoded tensor.
	NumChannels = channelTurnIndex + 1
)

// Tensor is the encoded state, shaped [NumChannels][game.GridSize][game.GridSize].
type Tensor [NumChannels][game.GridSize][game.GridSize]float32

// Encode converts (board, current tile, deck, turn) into a Tensor. Pure and
// deterministic: identical inputs produce a bit-identical tensor (§8).
func Encode(b *game.Board, currentTile game.Tile, d *deck.Deck, turn, totalTurns int) Tensor {
	var t Tensor

	for cell := 0; cell < game.NumCells; cell++ {
		row, col := game.CellToGrid(cell)
		tile := b.At(cell)
		if tile.IsEmpty() {
			continue
		}
		t[channelOccupied][row][col] = 1
		for axis := game.Axis(0); axis < game.NumAxes; axis++ {
			ch := axisValueChannel(channelOccupancyOneHotStart, axis, tile.Value(axis))
			if ch >= 0 {
				t[ch][row][col] = 1
			}
		}
	}

	// Current-tile broadcast: same one-hot value at every occupied-in-grid
	// cell; the six unused grid cells stay zero on every channel.
	if !currentTile.IsEmpty() {
		for axis := game.Axis(0); axis < game.NumAxes; axis++ {
			ch := axisValueChannel(channelCurrentTileStart, axis, currentTile.Value(axis))
			if ch >= 0 {
				broadcast(&t, ch, 1)
			}
		}
	}

	// Deck composition: count of remaining tiles per axis-value, normalized
	// by the 9 copies of each value present in the full 27-tile deck.
	if d != nil {
		var counts [game.NumAxes][3]int
		for _, tile := range d.Available() {
			for axis := game.Axis(0); axis < game.NumAxes; axis++ {
				idx := axisValueIndex(axis, tile.Value(axis))
				if idx >= 0 {
					counts[axis][idx]++
				}
			}
		}
		for axis := game.Axis(0); axis < game.NumAxes; axis++ {
			for idx := 0; idx < 3; idx++ {
				ch := channelDeckCompositionStart + int(axis)*3 + idx
				broadcast(&t, ch, float32(counts[axis][idx])/9.0)
			}
		}
	}

	// Normalized turn index.
	var normTurn float32
	if totalTurns > 0 {
		normTurn = float32(turn) / float32(totalTurns)
	}
	broadcast(&t, channelTurnIndex, normTurn)

	return t
}

// axisValueIndex returns the index (0,1,2) of v within game.AxisValues[axis],
// or -1 if v isn't legal for that axis.
func axisValueIndex(axis game.Axis, v uint8) int {
	for i, candidate := range game.AxisValues[axis] {
		if candidate == v {
			return i
		}
	}
	return -1
}

// axisValueChannel returns base + 3*axis + valueIndex(axis, v), or -1 if v
// isn't legal for axis.
func axisValueChannel(base int, axis game.Axis, v uint8) int {
	idx := axisValueIndex(axis, v)
	if idx < 0 {
		return -1
	}
	return base + int(axis)*3 + idx
}

// broadcast sets the given channel to value on every one of the 19 occupied
// grid positions, leaving the 6 unused grid cells at zero.
func broadcast(t *Tensor, channel int, value float32) {
	for cell := 0; cell < game.NumCells; cell++ {
		row, col := game.CellToGrid(cell)
		t[channel][row][col] = value
	}
}

// Flatten returns the tensor as a single contiguous slice in
// [channel][row][col] order, the layout the model package expects when
// building a gomlx tensor.
func (t Tensor) Flatten() []float32 {
	flat := make([]float32, 0, NumChannels*game.GridSize*game.GridSize)
	for c := 0; c < NumChannels; c++ {
		for r := 0; r < game.GridSize; r++ {
			flat = append(flat, t[c][r][:]...)
		}
	}
	return flat
}

// LogTurn returns log(1+turn), matching hiveGo's fMoveNumber feature
// (internal/features/features.go), available for models that want a
// non-normalized turn signal in addition to the normalized broadcast channel.
func LogTurn(turn int) float32 {
	return math32.Log(float32(turn + 1))
}
