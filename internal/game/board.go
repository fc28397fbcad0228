package game

import "github.com/pkg/errors"

// ErrNoLegalPositions is returned by callers that need at least one empty
// cell to act on a full board; Board.Place already rejects individual
// occupied cells, this covers "there is nothing left to choose among".
var ErrNoLegalPositions = errors.New("board is full: no legal positions")

// NumCells is the number of hex cells on the board.
const NumCells = 19

// NumLinesPerAxis is the number of straight lines running along each axis.
const NumLinesPerAxis = 5

// NumLines is the total number of scoring lines on the board.
const NumLines = NumAxes * NumLinesPerAxis

// Line is an ordered list of cell indices forming one maximal straight run
// on a given axis.
type Line struct {
	Axis  Axis
	Cells []int
}

// lineLayout enumerates, per axis, the 5 lines of lengths 3/4/5/4/3 as cell
// indices into the 19-cell board laid out row-major:
//
//	   0  1  2
//	 3  4  5  6
//	7  8  9 10 11
//	 12 13 14 15
//	  16 17 18
//
// Axis1 lines run top-to-bottom ("|"), Axis2 lines run bottom-left to
// top-right ("/"), Axis3 lines are the board's rows ("\" in hiveGo's hex
// convention, here the horizontal partition). Each list is a valid
// partition of the 19 cells: every cell belongs to exactly one line per
// axis, mirroring the hexagonal board's three-fold line structure.
var lineLayout = [NumAxes][NumLinesPerAxis][]int{
	Axis1: {
		{0, 3, 7},
		{1, 4, 8, 12},
		{2, 5, 9, 13, 16},
		{6, 10, 14, 17},
		{11, 15, 18},
	},
	Axis2: {
		{7, 12, 16},
		{3, 8, 13, 17},
		{0, 4, 9, 14, 18},
		{1, 5, 10, 15},
		{2, 6, 11},
	},
	Axis3: {
		{0, 1, 2},
		{3, 4, 5, 6},
		{7, 8, 9, 10, 11},
		{12, 13, 14, 15},
		{16, 17, 18},
	},
}

// Lines is the process-global, immutable table of all 15 scoring lines.
var Lines [NumLines]Line

// CellLines maps each cell index to the 3 lines (one per axis) it belongs to,
// as indices into Lines.
var CellLines [NumCells][NumAxes]int

func init() {
	idx := 0
	for axis := Axis(0); axis < NumAxes; axis++ {
		for _, cells := range lineLayout[axis] {
			Lines[idx] = Line{Axis: axis, Cells: cells}
			for _, cell := range cells {
				CellLines[cell][axis] = idx
			}
			idx++
		}
	}
}

// Board is an immutable-geometry, mutable-contents sequence of 19 cells.
type Board struct {
	cells [NumCells]Tile
}

// NewBoard returns a board with all cells empty.
func NewBoard() *Board {
	return &Board{}
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	clone := *b
	return &clone
}

// At returns the tile at the given cell index.
func (b *Board) At(cell int) Tile {
	return b.cells[cell]
}

// IsEmpty reports whether the given cell holds no tile.
func (b *Board) IsEmpty(cell int) bool {
	return b.cells[cell].IsEmpty()
}

// Place puts tile on the given cell. It requires the cell to currently be
// empty and the tile to be non-empty and well-formed; violations are
// InvalidInput (§7), surfaced to the caller.
func (b *Board) Place(cell int, t Tile) error {
	if cell < 0 || cell >= NumCells {
		return errors.Errorf("invalid cell index %d", cell)
	}
	if !b.cells[cell].IsEmpty() {
		return errors.Errorf("cell %d is already occupied by %s", cell, b.cells[cell])
	}
	if t.IsEmpty() {
		return errors.New("cannot place the empty tile")
	}
	if !t.IsValid() {
		return errors.Errorf("malformed tile %s", t)
	}
	b.cells[cell] = t
	return nil
}

// LegalPositions returns the indices of all empty cells, in increasing order.
func (b *Board) LegalPositions() []int {
	positions := make([]int, 0, NumCells)
	for cell := 0; cell < NumCells; cell++ {
		if b.cells[cell].IsEmpty() {
			positions = append(positions, cell)
		}
	}
	return positions
}

// IsFull reports whether every cell is occupied.
func (b *Board) IsFull() bool {
	for cell := 0; cell < NumCells; cell++ {
		if b.cells[cell].IsEmpty() {
			return false
		}
	}
	return true
}

// NumPlaced returns how many cells are occupied.
func (b *Board) NumPlaced() int {
	n := 0
	for cell := 0; cell < NumCells; cell++ {
		if !b.cells[cell].IsEmpty() {
			n++
		}
	}
	return n
}

// Score sums, over the 15 precomputed lines, length*value for every line
// whose cells are all occupied and share the same axis value; mixed or
// partially-filled lines contribute 0. Pure, deterministic, depends only on
// cell contents (§4.1).
func Score(b *Board) int {
	total := 0
	for _, line := range Lines {
		total += lineScore(b, line)
	}
	return total
}

func lineScore(b *Board, line Line) int {
	var common uint8
	for i, cell := range line.Cells {
		t := b.cells[cell]
		if t.IsEmpty() {
			return 0
		}
		v := t.Value(line.Axis)
		if i == 0 {
			common = v
		} else if v != common {
			return 0
		}
	}
	return len(line.Cells) * int(common)
}

// MaxPossibleScore is the theoretical maximum score: every line fully
// occupied at its axis' highest value.
func MaxPossibleScore() int {
	total := 0
	for _, line := range Lines {
		maxV := AxisValues[line.Axis][2]
		total += len(line.Cells) * int(maxV)
	}
	return total
}

// NumPermutations is the number of score-preserving symmetries this board
// layout admits for training-data augmentation (§4.7 / §8 equivariance):
// identity and the point symmetry Permute implements.
//
// A literal 120-degree cycle of the three axis directions was tried first
// and rejected: AxisValues pins each axis to its own disjoint 3-value
// domain ({1,5,9}, {2,6,7}, {3,4,8}), so cycling axis labels forces every
// tile's per-axis value through the same bijection regardless of cell, and
// a completed line of length L with common value v always rescales to
// L*f(v) for whatever f the cycle uses - a 3-cycle on a 3-element domain has
// no non-identity fixed point, so no choice of f leaves any completed
// line's contribution unchanged (confirmed by hand: tiles {9,2,3}/{9,6,4}/
// {9,7,8} on the axis-1 line {0,3,7} score 27, but either non-trivial axis
// cycle rescales the shared 9 to 1 or 5, giving 3 or 15).
const NumPermutations = 2

// PermuteCell returns the cell a tile at cell ends up at under Permute(k).
// k=0 is the identity; k=1 (or any odd k) is this layout's point symmetry,
// cell <-> NumCells-1-cell.
func PermuteCell(k, cell int) int {
	k = ((k % NumPermutations) + NumPermutations) % NumPermutations
	if k == 0 {
		return cell
	}
	return NumCells - 1 - cell
}

// Permute returns a new board under one of the two symmetries NumPermutations
// counts. k=0 is identity. k=1 reflects every cell through the board's
// center (cell <-> NumCells-1-cell) without touching any tile's values.
//
// This is the board's only non-trivial symmetry that respects the
// axis-pinned domains: lineLayout's three axes each have the same length
// profile (3,4,5,4,3), and the center reflection maps every axis-i line onto
// another axis-i line of the same length (the two length-3 lines swap, the
// two length-4 lines swap, the length-5 line maps to itself) - it never
// needs a line's axis to change, so no tile value ever has to cross into a
// different axis' domain. Because every line maps to another line of the
// same axis and length, and the tiles occupying it are carried along
// unchanged, Score sums exactly the same set of length*value terms, just
// reordered (§8 augmentation equivariance).
func (b *Board) Permute(k int) *Board {
	out := &Board{}
	for cell := 0; cell < NumCells; cell++ {
		out.cells[PermuteCell(k, cell)] = b.cells[cell]
	}
	return out
}
