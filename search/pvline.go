package search

import (
	"fmt"

	"github.com/domino14/gapper/move"
)

// Credit: MIT-licensed https://github.com/algerbrex/blunder/blob/main/engine/search.go
type PVLine struct {
	Moves []move.Move
	score float32
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m move.Move, newPVLine PVLine, score float32) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// Get the best move from the principal variation line.
func (pvLine *PVLine) GetPVMove() move.Move {
	return pvLine.Moves[0]
}

func (pvLine PVLine) String() string {
	s := fmt.Sprintf("PV; val %f\n", pvLine.score)
	for i := 0; i < len(pvLine.Moves); i++ {
		s += fmt.Sprintf("%d: %s\n", i+1, pvLine.Moves[i].ShortDescription())
	}
	return s
}

func (pvLine PVLine) NLBString() string {
	// no line breaks
	s := fmt.Sprintf("PV; val %f; ", pvLine.score)
	for i := 0; i < len(pvLine.Moves); i++ {
		s += fmt.Sprintf("%d: %s; ", i+1, pvLine.Moves[i].ShortDescription())
	}
	return s
}
