// Package game implements the Take It Easy board: tile geometry, the fixed
// line table, scoring, and legal-move enumeration.
package game

import "fmt"

// Axis identifies one of the three directions a hex tile carries a value for.
type Axis uint8

const (
	// Axis1 runs along the board's vertical columns.
	Axis1 Axis = iota
	// Axis2 runs along the "/" diagonals.
	Axis2
	// Axis3 runs along the "\" diagonals.
	Axis3

	// NumAxes is the number of line directions on the board.
	NumAxes = 3
)

// AxisValues enumerates the three legal values a tile can carry on each axis.
var AxisValues = [NumAxes][3]uint8{
	Axis1: {1, 5, 9},
	Axis2: {2, 6, 7},
	Axis3: {3, 4, 8},
}

// Tile is a triple of values, one per axis. The zero Tile (0,0,0) is the
// sentinel for "empty cell".
type Tile struct {
	A, B, C uint8
}

// EmptyTile is the sentinel tile for an unoccupied cell.
var EmptyTile = Tile{}

// IsEmpty returns whether the tile is the empty sentinel.
func (t Tile) IsEmpty() bool {
	return t == EmptyTile
}

// Value returns the tile's value along the given axis.
func (t Tile) Value(axis Axis) uint8 {
	switch axis {
	case Axis1:
		return t.A
	case Axis2:
		return t.B
	default:
		return t.C
	}
}

// Equal reports whether two tiles carry the same three values.
func (t Tile) Equal(other Tile) bool {
	return t == other
}

// String renders the tile as "(a,b,c)".
func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.A, t.B, t.C)
}

// valueIndex returns the index (0,1,2) of v within AxisValues[axis], or -1 if
// v isn't a legal value for that axis.
func valueIndex(axis Axis, v uint8) int {
	for i, candidate := range AxisValues[axis] {
		if candidate == v {
			return i
		}
	}
	return -1
}

// IsValid reports whether the tile's three components are each a legal value
// for their axis (or the whole tile is the empty sentinel).
func (t Tile) IsValid() bool {
	if t.IsEmpty() {
		return true
	}
	return valueIndex(Axis1, t.A) >= 0 && valueIndex(Axis2, t.B) >= 0 && valueIndex(Axis3, t.C) >= 0
}

// AllTiles enumerates the 27 canonical tiles of the deck, in a fixed
// deterministic order (outer loop axis1, then axis2, then axis3).
func AllTiles() []Tile {
	tiles := make([]Tile, 0, 27)
	for _, a := range AxisValues[Axis1] {
		for _, b := range AxisValues[Axis2] {
			for _, c := range AxisValues[Axis3] {
				tiles = append(tiles, Tile{A: a, B: b, C: c})
			}
		}
	}
	return tiles
}
