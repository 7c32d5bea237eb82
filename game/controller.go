package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/movegen"
	"github.com/domino14/gapper/search"
)

var (
	ErrNoActivePhase  = errors.New("no phase in progress")
	ErrPhaseActive    = errors.New("a phase is still in progress")
	ErrGameOver       = errors.New("game is over")
	ErrIllegalMove    = errors.New("illegal move")
	ErrReshufflesUsed = errors.New("all reshuffles used")
)

// Controller drives one phase at a time. The player performs moves against
// the physical game; the controller only advises and records. Move execution
// is confirmed back through Confirm, which is where the internal board
// advances.
type Controller struct {
	solver  *search.Solver
	game    *Game
	current board.Board
	phase   *Phase
}

func NewController(s *search.Solver) *Controller {
	return &Controller{solver: s}
}

// StartGame begins a new session with the initial deal.
func (c *Controller) StartGame(b *board.Board) error {
	if c.phase != nil {
		return ErrPhaseActive
	}
	c.game = NewGame()
	c.beginPhase(b)
	log.Info().Str("game-id", c.game.ID).Msg("game-started")
	return nil
}

func (c *Controller) beginPhase(b *board.Board) {
	c.current = *b
	c.phase = &Phase{Start: *b, Outcome: InProgress}
}

func (c *Controller) Game() *Game { return c.game }

// Snapshot returns a copy of the game for serialization. A live phase is
// included as a trailing in-progress phase, final board set to the live
// position, so a mid-phase save loses nothing; Restore reopens it.
func (c *Controller) Snapshot() *Game {
	if c.game == nil {
		return nil
	}
	g := *c.game
	g.History = append([]Phase(nil), c.game.History...)
	if c.phase != nil {
		live := *c.phase
		live.Steps = append([]Step(nil), c.phase.Steps...)
		live.Final = c.current
		live.Outcome = InProgress
		g.History = append(g.History, live)
	}
	return &g
}

// Board returns a copy of the live position.
func (c *Controller) Board() board.Board { return c.current }

func (c *Controller) PhaseInProgress() bool { return c.phase != nil }

// Recommend asks the engine for the best move from the live position.
func (c *Controller) Recommend(ctx context.Context, params search.Params) (*search.SearchResult, error) {
	if c.phase == nil {
		return nil, ErrNoActivePhase
	}
	return c.solver.RecommendMove(ctx, &c.current, params)
}

// Confirm records the move the player actually made, which need not be the
// recommended one, and advances the internal board. The returned outcome is
// the phase's: InProgress while moves remain, Win or Exhausted when the
// phase just ended.
func (c *Controller) Confirm(m move.Move) (Outcome, error) {
	if c.phase == nil {
		return InProgress, ErrNoActivePhase
	}
	if !movegen.IsLegal(&c.current, m) {
		return InProgress, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	c.phase.Steps = append(c.phase.Steps, Step{Board: c.current, Move: m})
	c.current = c.current.Apply(m)

	switch {
	case c.current.Win():
		c.finishPhase(Win)
		return Win, nil
	case movegen.Count(&c.current) == 0:
		c.finishPhase(Exhausted)
		return Exhausted, nil
	}
	return InProgress, nil
}

func (c *Controller) finishPhase(o Outcome) {
	c.phase.Final = c.current
	c.phase.Outcome = o
	c.game.History = append(c.game.History, *c.phase)
	c.phase = nil

	if o == Win {
		c.game.Outcome = Win
	} else if len(c.game.History) == MaxPhases {
		c.game.Outcome = Exhausted
	}
	log.Info().Int("phase", len(c.game.History)).Stringer("outcome", o).
		Int("moves", len(c.game.History[len(c.game.History)-1].Steps)).
		Msg("phase-finished")
}

// Restore adopts a previously recorded game. A trailing in-progress phase
// (a mid-phase save) is reopened for play; otherwise no phase is live and
// play resumes through SubmitReshuffle if the game is not over.
func (c *Controller) Restore(g *Game) {
	c.game = g
	c.phase = nil
	n := len(g.History)
	if n == 0 {
		return
	}
	last := g.History[n-1]
	c.current = last.Final
	if last.Outcome == InProgress {
		g.History = g.History[:n-1]
		c.phase = &last
	}
}

// SubmitReshuffle accepts the next phase's dealt layout after an exhaustion.
// Locked prefixes carry over between phases; a layout that disturbs one is
// rejected naming the offending row.
func (c *Controller) SubmitReshuffle(nb *board.Board) error {
	if c.game == nil || len(c.game.History) == 0 {
		return ErrNoActivePhase
	}
	if c.phase != nil {
		return ErrPhaseActive
	}
	if c.game.Outcome != InProgress {
		if c.game.Outcome == Win {
			return ErrGameOver
		}
		return ErrReshufflesUsed
	}
	prev := &c.game.History[len(c.game.History)-1].Final
	if err := validateReshuffle(prev, nb); err != nil {
		return err
	}
	c.beginPhase(nb)
	log.Info().Int("phase", len(c.game.History)+1).Msg("reshuffle-accepted")
	return nil
}

func validateReshuffle(prev, next *board.Board) error {
	for r := 0; r < board.Rows; r++ {
		n := prev.LockedLength(r)
		for col := 0; col < n; col++ {
			p := move.MakePos(r, col)
			pc, _ := prev.CardAt(p)
			nc, ok := next.CardAt(p)
			if !ok || nc != pc {
				return fmt.Errorf("%w: row %d locked prefix does not match prior phase",
					board.ErrInvalidBoard, r+1)
			}
		}
	}
	return nil
}

// RunPhase plays the live phase to completion, confirming every
// recommendation. Used by the auto-play mode and the optimizer passes.
func (c *Controller) RunPhase(ctx context.Context, params search.Params) (*Phase, error) {
	if c.phase == nil {
		return nil, ErrNoActivePhase
	}
	for {
		res, err := c.Recommend(ctx, params)
		if err != nil {
			return nil, err
		}
		if res.Move == nil {
			// already exhausted (possible only on the phase's first board,
			// since Confirm finalizes as soon as moves run out)
			if c.current.Win() {
				c.finishPhase(Win)
			} else {
				c.finishPhase(Exhausted)
			}
			break
		}
		outcome, err := c.Confirm(*res.Move)
		if err != nil {
			return nil, err
		}
		if outcome != InProgress {
			break
		}
	}
	return &c.game.History[len(c.game.History)-1], nil
}
