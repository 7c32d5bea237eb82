// Package game holds the realized record of a session: up to four phases of
// play separated by reshuffles, each phase an ordered trace of boards and the
// moves actually made. The controller drives one phase at a time, surfacing
// engine recommendations and accepting the move the player actually made.
package game

import (
	"github.com/google/uuid"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/move"
)

// MaxPhases is the initial deal plus three reshuffles.
const MaxPhases = 4

type Outcome int

const (
	InProgress Outcome = iota
	Win
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Exhausted:
		return "exhausted"
	default:
		return "in progress"
	}
}

// Step records one realized move and the board it was played from.
type Step struct {
	Board board.Board
	Move  move.Move
}

// Phase is one contiguous span of play between reshuffles. Once finalized
// (Outcome != InProgress) it is never modified.
type Phase struct {
	Start   board.Board
	Steps   []Step
	Final   board.Board
	Outcome Outcome
}

// Game is the ordered list of finalized phases plus the terminal outcome.
type Game struct {
	ID      string
	History []Phase
	Outcome Outcome
}

func NewGame() *Game {
	return &Game{ID: uuid.New().String(), Outcome: InProgress}
}

// Phases returns how many phases have been finalized.
func (g *Game) Phases() int {
	return len(g.History)
}
