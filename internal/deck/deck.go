// Package deck implements the multiset of remaining tiles, with O(1)
// removal and uniform sampling (§4.2).
package deck

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// Deck is a multiset over the 27 canonical tiles. The zero value is not
// usable; use New or NewFull.
type Deck struct {
	// tiles holds the currently-available tiles, in no particular order.
	// Removal swaps the removed tile with the last element and shrinks the
	// slice, giving O(1) remove at the cost of losing iteration order.
	tiles []game.Tile
	index map[game.Tile]int
}

// NewFull returns a deck holding all 27 canonical tiles.
func NewFull() *Deck {
	return New(game.AllTiles())
}

// New returns a deck holding exactly the given tiles.
func New(tiles []game.Tile) *Deck {
	d := &Deck{
		tiles: append([]game.Tile(nil), tiles...),
		index: make(map[game.Tile]int, len(tiles)),
	}
	for i, t := range d.tiles {
		d.index[t] = i
	}
	return d
}

// Clone returns an independent copy of the deck.
func (d *Deck) Clone() *Deck {
	clone := &Deck{
		tiles: append([]game.Tile(nil), d.tiles...),
		index: make(map[game.Tile]int, len(d.index)),
	}
	for t, i := range d.index {
		clone.index[t] = i
	}
	return clone
}

// Size returns the number of tiles currently available.
func (d *Deck) Size() int {
	return len(d.tiles)
}

// Available returns every remaining tile, in unspecified order. O(n).
func (d *Deck) Available() []game.Tile {
	return append([]game.Tile(nil), d.tiles...)
}

// Has reports whether tile is currently available.
func (d *Deck) Has(t game.Tile) bool {
	_, ok := d.index[t]
	return ok
}

// Remove takes tile out of the deck. It requires the tile to be present;
// removing from an empty deck or a tile not present is an InvalidInput-class
// error surfaced to the caller (§4.2, §7).
func (d *Deck) Remove(t game.Tile) error {
	if len(d.tiles) == 0 {
		return errors.New("DeckExhausted: cannot remove from an empty deck")
	}
	i, ok := d.index[t]
	if !ok {
		return errors.Errorf("TileNotPresent: tile %s is not in the deck", t)
	}
	last := len(d.tiles) - 1
	moved := d.tiles[last]
	d.tiles[i] = moved
	d.tiles = d.tiles[:last]
	delete(d.index, t)
	if i < len(d.tiles) {
		d.index[moved] = i
	}
	return nil
}

// SampleUniform selects a tile uniformly at random from the currently
// available tiles. It does not remove it.
func (d *Deck) SampleUniform(rng *rand.Rand) (game.Tile, error) {
	if len(d.tiles) == 0 {
		return game.Tile{}, errors.New("DeckExhausted: cannot sample from an empty deck")
	}
	var i int
	if rng != nil {
		i = rng.Intn(len(d.tiles))
	} else {
		i = rand.Intn(len(d.tiles))
	}
	return d.tiles[i], nil
}
