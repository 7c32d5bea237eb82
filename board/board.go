// Package board implements the Gaps solitaire board: a 4x13 grid holding the
// 48 cards and 4 gaps, plus the locked ascending runs at the head of each row.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/zobrist"
)

const (
	Rows     = move.Rows
	Cols     = move.Cols
	NumCells = Rows * Cols
	NumGaps  = 4
	// MaxLock is the longest possible locked run (2 through King); the last
	// column can never be part of a lock.
	MaxLock = Cols - 1
)

var ErrInvalidBoard = errors.New("invalid board")

// One shared hash table for the process. Transposition tables only live
// in-memory, so keys never need to be stable across runs.
var hashTable = func() *zobrist.Zobrist {
	z := &zobrist.Zobrist{}
	z.Initialize()
	return z
}()

// Cell is a board cell as supplied by the outside world: a card, or a gap.
type Cell struct {
	Card card.Card
	Gap  bool
}

// Board is a value type; Apply returns a modified copy, so search code can
// branch without undo bookkeeping. The zero Board is not valid; construct
// with FromCells or Parse.
type Board struct {
	// 0 means gap, otherwise card+1.
	cells [NumCells]uint8
	// where indexes every card's current cell for O(1) lookup during
	// move generation.
	where  [card.NumCards]move.Pos
	locked [Rows]uint8
	key    uint64
}

// FromCells builds a board from 52 cells, validating the card-count,
// duplicate and gap-count invariants.
func FromCells(cells []Cell) (*Board, error) {
	if len(cells) != NumCells {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidBoard, NumCells, len(cells))
	}
	b := &Board{}
	var seen [card.NumCards]bool
	gaps := 0
	for i, cell := range cells {
		if cell.Gap {
			gaps++
			continue
		}
		c := cell.Card
		if uint8(c) >= card.NumCards {
			return nil, fmt.Errorf("%w: card out of range at %s", ErrInvalidBoard, move.Pos(i))
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate card %s", ErrInvalidBoard, c)
		}
		seen[c] = true
		b.cells[i] = uint8(c) + 1
		b.where[c] = move.Pos(i)
	}
	if gaps != NumGaps {
		return nil, fmt.Errorf("%w: expected %d gaps, found %d", ErrInvalidBoard, NumGaps, gaps)
	}
	for r := 0; r < Rows; r++ {
		b.recomputeLock(r)
	}
	b.key = hashTable.Hash(b.cells[:])
	return b, nil
}

// Parse builds a board from 52 whitespace-separated tokens, where "--"
// denotes a gap and everything else is a card token like 7H.
func Parse(tokens []string) (*Board, error) {
	if len(tokens) != NumCells {
		return nil, fmt.Errorf("%w: expected %d tokens, got %d", ErrInvalidBoard, NumCells, len(tokens))
	}
	cells := make([]Cell, NumCells)
	for i, tok := range tokens {
		if tok == "--" || tok == "__" {
			cells[i] = Cell{Gap: true}
			continue
		}
		c, err := card.Parse(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %s at %s", ErrInvalidBoard, err, move.Pos(i))
		}
		cells[i] = Cell{Card: c}
	}
	return FromCells(cells)
}

func (b *Board) recomputeLock(row int) {
	n := 0
	var suit card.Suit
	for col := 0; col < MaxLock; col++ {
		cell := b.cells[row*Cols+col]
		if cell == 0 {
			break
		}
		c := card.Card(cell - 1)
		if col == 0 {
			if c.Rank() != card.Two {
				break
			}
			suit = c.Suit()
		} else if c.Suit() != suit || c.Rank() != card.Rank(col+2) {
			break
		}
		n++
	}
	b.locked[row] = uint8(n)
}

// CardAt returns the card at p, or ok=false for a gap.
func (b *Board) CardAt(p move.Pos) (card.Card, bool) {
	cell := b.cells[p]
	if cell == 0 {
		return 0, false
	}
	return card.Card(cell - 1), true
}

func (b *Board) IsGap(p move.Pos) bool {
	return b.cells[p] == 0
}

// Gaps returns the four gap positions in row-major order.
func (b *Board) Gaps() []move.Pos {
	gaps := make([]move.Pos, 0, NumGaps)
	for i := 0; i < NumCells; i++ {
		if b.cells[i] == 0 {
			gaps = append(gaps, move.Pos(i))
		}
	}
	return gaps
}

// PosOf returns the current cell of c. Every card is always on the board.
func (b *Board) PosOf(c card.Card) move.Pos {
	return b.where[c]
}

func (b *Board) LockedLength(row int) int {
	return int(b.locked[row])
}

// IsLocked reports whether p lies inside its row's locked prefix. Locked
// cells are never move sources or targets.
func (b *Board) IsLocked(p move.Pos) bool {
	return p.Col() < int(b.locked[p.Row()])
}

// Win is true when every row is locked 2 through King; the remaining cell
// of each row is then necessarily its gap.
func (b *Board) Win() bool {
	for r := 0; r < Rows; r++ {
		if b.locked[r] != MaxLock {
			return false
		}
	}
	return true
}

// Key is the position signature used for transposition lookups. It is
// maintained incrementally by Apply.
func (b *Board) Key() uint64 {
	return b.key
}

// Apply relocates the move's card into its gap and returns the new board.
// The move must be legal; use movegen to generate legal moves. Only the
// destination row's lock can change, and the full prefix is re-checked in
// case several correctly placed cards became contiguous.
func (b Board) Apply(m move.Move) Board {
	b.cells[m.From] = 0
	b.cells[m.To] = uint8(m.Card) + 1
	b.where[m.Card] = m.To
	b.recomputeLock(m.To.Row())
	b.key = hashTable.AddMove(b.key, m)
	return b
}

func (b *Board) Equal(o *Board) bool {
	return b.cells == o.cells
}

// ToDisplayText renders the board for the shell. Locked cells are marked
// with an asterisk.
func (b *Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for col := 1; col <= Cols; col++ {
		fmt.Fprintf(&sb, "%3d ", col)
	}
	sb.WriteByte('\n')
	for r := 0; r < Rows; r++ {
		fmt.Fprintf(&sb, "R%d ", r+1)
		for c := 0; c < Cols; c++ {
			p := move.MakePos(r, c)
			if b.IsGap(p) {
				sb.WriteString(" -- ")
				continue
			}
			cd, _ := b.CardAt(p)
			mark := " "
			if b.IsLocked(p) {
				mark = "*"
			}
			fmt.Fprintf(&sb, " %s%s", cd, mark)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Tokens returns the 52 cell tokens in row-major order, the inverse of
// Parse. Used by the game trace serializer.
func (b *Board) Tokens() []string {
	toks := make([]string, NumCells)
	for i := 0; i < NumCells; i++ {
		if b.cells[i] == 0 {
			toks[i] = "--"
		} else {
			toks[i] = card.Card(b.cells[i] - 1).String()
		}
	}
	return toks
}
