// Package movegen derives the set of legal moves from a board position.
//
// Each of the four gaps admits at most one move: the successor of its left
// neighbor. Column-0 gaps instead accept a 2 of a suit that is not already
// rooted in column 0. Gaps behind a King or behind another gap are dead.
package movegen

import (
	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/move"
)

// GenAll returns the 0-4 legal moves in deterministic order: gaps in
// row-major order, and for column-0 gaps the candidate 2s in suit order.
// This ordering is part of the recommendation contract; ties in the search
// resolve to the earliest generated move. An empty result means the board
// is exhausted.
func GenAll(b *board.Board) []move.Move {
	moves := make([]move.Move, 0, board.NumGaps)
	for _, gap := range b.Gaps() {
		if m, ok := moveForGap(b, gap); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

// Count is GenAll without the allocation, for evaluation.
func Count(b *board.Board) int {
	n := 0
	for _, gap := range b.Gaps() {
		if _, ok := moveForGap(b, gap); ok {
			n++
		}
	}
	return n
}

// IsLegal reports whether m is one of the currently legal moves.
func IsLegal(b *board.Board, m move.Move) bool {
	for _, legal := range GenAll(b) {
		if legal.Equals(m) {
			return true
		}
	}
	return false
}

func moveForGap(b *board.Board, gap move.Pos) (move.Move, bool) {
	if gap.Col() == 0 {
		return twoForFirstColumn(b, gap)
	}
	left, ok := b.CardAt(gap - 1)
	if !ok {
		// gap behind a gap
		return move.Move{}, false
	}
	target, ok := left.Successor()
	if !ok {
		// gap behind a King is permanently dead
		return move.Move{}, false
	}
	from := b.PosOf(target)
	if b.IsLocked(from) {
		return move.Move{}, false
	}
	return move.Move{Card: target, From: from, To: gap}, true
}

// twoForFirstColumn finds a 2 to root a new run in an empty first cell. A 2
// already sitting in column 0 stays put; the lowest-suit available 2 is
// chosen, which keeps generation deterministic.
func twoForFirstColumn(b *board.Board, gap move.Pos) (move.Move, bool) {
	var rooted [card.NumSuits]bool
	for r := 0; r < board.Rows; r++ {
		if c, ok := b.CardAt(move.MakePos(r, 0)); ok && c.Rank() == card.Two {
			rooted[c.Suit()] = true
		}
	}
	for s := card.Suit(0); s < card.NumSuits; s++ {
		if rooted[s] {
			continue
		}
		two := card.New(card.Two, s)
		from := b.PosOf(two)
		if from.Col() == 0 || b.IsLocked(from) {
			continue
		}
		return move.Move{Card: two, From: from, To: gap}, true
	}
	return move.Move{}, false
}
