package model

import "github.com/tilesage/takeiteasy-engine/internal/game"

// maxHexNeighbors is 6 for an interior cell; edge and corner cells have
// fewer and pad with noNeighbor.
const maxHexNeighbors = 6

// noNeighbor marks an absent neighbor slot, handled by masking in the
// attention graph rather than by gathering a real cell's features.
const noNeighbor = -1

// hexNeighbors[cell] lists up to 6 neighboring cell indices, derived from
// adjacency along game.Lines: two cells are neighbors if they are
// consecutive along any of the 3 axes' lines. This gives each interior cell
// exactly 2 neighbors per axis (prev/next), 6 total, matching a hex grid's
// connectivity without needing a separate hand-authored coordinate scheme.
var hexNeighbors [game.NumCells][maxHexNeighbors]int

func init() {
	for cell := range hexNeighbors {
		for i := range hexNeighbors[cell] {
			hexNeighbors[cell][i] = noNeighbor
		}
	}
	for _, line := range game.Lines {
		for i, cell := range line.Cells {
			slot := 2 * int(line.Axis)
			if i > 0 {
				setNeighbor(cell, slot, line.Cells[i-1])
				setNeighbor(line.Cells[i-1], slot+1, cell)
			}
		}
	}
}

func setNeighbor(cell, slot, neighbor int) {
	for i, v := range hexNeighbors[cell] {
		if v == neighbor {
			return
		}
		if v == noNeighbor {
			slot = i
			break
		}
	}
	hexNeighbors[cell][slot] = neighbor
}

// numGridPositions is the 5x5 embedding grid's flat size, including the 6
// unused corner positions.
const numGridPositions = game.GridSize * game.GridSize

// gridReceptiveField[pos] lists the 4-connected grid neighbors (up, down,
// left, right) of flat grid position pos, used by CNNModel's local mixing
// blocks. Off-grid neighbors are noNeighbor; unused positions mix in zeros
// harmlessly.
var gridReceptiveField [numGridPositions][4]int

func init() {
	offsets := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for row := 0; row < game.GridSize; row++ {
		for col := 0; col < game.GridSize; col++ {
			pos := row*game.GridSize + col
			for i, off := range offsets {
				r, c := row+off[0], col+off[1]
				if r < 0 || r >= game.GridSize || c < 0 || c >= game.GridSize {
					gridReceptiveField[pos][i] = noNeighbor
					continue
				}
				gridReceptiveField[pos][i] = r*game.GridSize + c
			}
		}
	}
}
