package optimizer

import (
	"fmt"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/game"
	"github.com/domino14/gapper/move"
)

// RecordedLayouts replays the deals of a finished game. The physical shuffle
// order of each reshuffle is recovered from the recorded layout (a row-major
// scan of its cards), so the same deal can be replayed against a different
// previous terminal: cards that are locked under the alternative terminal
// are skipped from the stream, and each row gets its gap directly after its
// locked prefix, the way the real redeal places them. When the previous
// terminal matches the recorded one this reproduces the recorded layout
// exactly.
type RecordedLayouts struct {
	starts     []board.Board
	prevFinals []board.Board
}

func RecordedFromGame(g *game.Game) *RecordedLayouts {
	r := &RecordedLayouts{}
	for i, ph := range g.History {
		r.starts = append(r.starts, ph.Start)
		if i > 0 {
			r.prevFinals = append(r.prevFinals, g.History[i-1].Final)
		}
	}
	return r
}

func (r *RecordedLayouts) NumPhases() int { return len(r.starts) }

func (r *RecordedLayouts) StartBoard(phase int, prev *board.Board) (*board.Board, error) {
	if phase < 0 || phase >= len(r.starts) {
		return nil, fmt.Errorf("no recorded layout for phase %d", phase+1)
	}
	if phase == 0 {
		b := r.starts[0]
		return &b, nil
	}
	if prev.Equal(&r.prevFinals[phase-1]) {
		b := r.starts[phase]
		return &b, nil
	}
	return redeal(dealOrder(&r.starts[phase]), prev)
}

// dealOrder recovers the shuffle order from a dealt layout.
func dealOrder(b *board.Board) []card.Card {
	order := make([]card.Card, 0, card.NumCards)
	for i := 0; i < board.NumCells; i++ {
		if c, ok := b.CardAt(move.Pos(i)); ok {
			order = append(order, c)
		}
	}
	return order
}

// redeal deals order against prev's locked prefixes: prefix cards stay, one
// gap follows each prefix, and the remaining cells fill row-major from the
// stream, skipping cards prev has locked.
func redeal(order []card.Card, prev *board.Board) (*board.Board, error) {
	var isLocked [card.NumCards]bool
	for r := 0; r < board.Rows; r++ {
		for col := 0; col < prev.LockedLength(r); col++ {
			c, _ := prev.CardAt(move.MakePos(r, col))
			isLocked[c] = true
		}
	}

	next := 0
	draw := func() (card.Card, error) {
		for next < len(order) {
			c := order[next]
			next++
			if !isLocked[c] {
				return c, nil
			}
		}
		return 0, fmt.Errorf("deal order ran out of cards")
	}

	cells := make([]board.Cell, 0, board.NumCells)
	for r := 0; r < board.Rows; r++ {
		n := prev.LockedLength(r)
		for col := 0; col < n; col++ {
			c, _ := prev.CardAt(move.MakePos(r, col))
			cells = append(cells, board.Cell{Card: c})
		}
		cells = append(cells, board.Cell{Gap: true})
		for col := n + 1; col < board.Cols; col++ {
			c, err := draw()
			if err != nil {
				return nil, err
			}
			cells = append(cells, board.Cell{Card: c})
		}
	}
	return board.FromCells(cells)
}
