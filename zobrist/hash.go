// Package zobrist generates incremental hashes for solitaire board
// positions, for use in transposition tables.
// https://en.wikipedia.org/wiki/Zobrist_hashing
package zobrist

import (
	"lukechampine.com/frand"

	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/move"
)

const bignum = 1<<63 - 2

const NumCells = move.Rows * move.Cols

// Zobrist holds one random 64-bit key per (cell, card) pair. Gaps contribute
// nothing to the hash; since every card is always somewhere on the board, the
// card placement alone determines the gap set.
type Zobrist struct {
	posTable [NumCells][card.NumCards]uint64
}

func (z *Zobrist) Initialize() {
	for i := 0; i < NumCells; i++ {
		for j := 0; j < card.NumCards; j++ {
			z.posTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
}

// Hash computes a full hash from scratch. cells follows the board encoding:
// 0 for a gap, card+1 otherwise.
func (z *Zobrist) Hash(cells []uint8) uint64 {
	key := uint64(0)
	for i, cell := range cells {
		if cell == 0 {
			continue
		}
		key ^= z.posTable[i][cell-1]
	}
	return key
}

// AddMove incrementally rehashes after relocating a card. Applying the same
// move twice returns the original key.
func (z *Zobrist) AddMove(key uint64, m move.Move) uint64 {
	key ^= z.posTable[m.From][m.Card]
	key ^= z.posTable[m.To][m.Card]
	return key
}
