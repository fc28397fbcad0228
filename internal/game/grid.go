package game

// GridSize is the side of the square grid the 19 hex cells are embedded in
// for tensor encoding (§4.3).
const GridSize = 5

// gridRow/gridCol map each of the 19 cell indices to its (row, col) position
// in a 5x5 grid; the six unused grid cells are left as the zero value and
// skipped by CellToGrid/GridToCell.
var gridRow = [NumCells]int{
	0, 0, 0,
	1, 1, 1, 1,
	2, 2, 2, 2, 2,
	3, 3, 3, 3,
	4, 4, 4,
}

var gridCol = [NumCells]int{
	1, 2, 3,
	0, 1, 2, 3,
	0, 1, 2, 3, 4,
	0, 1, 2, 3,
	1, 2, 3,
}

// cellAtGrid inverts gridRow/gridCol; -1 marks an unused grid cell.
var cellAtGrid [GridSize][GridSize]int

func init() {
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			cellAtGrid[r][c] = -1
		}
	}
	for cell := 0; cell < NumCells; cell++ {
		cellAtGrid[gridRow[cell]][gridCol[cell]] = cell
	}
}

// CellToGrid returns the (row, col) of the given cell in the 5x5 grid.
func CellToGrid(cell int) (row, col int) {
	return gridRow[cell], gridCol[cell]
}

// GridToCell returns the cell index at (row, col), or -1 if that grid
// position isn't one of the 19 occupied entries.
func GridToCell(row, col int) int {
	return cellAtGrid[row][col]
}
