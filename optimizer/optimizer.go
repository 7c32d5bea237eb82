// Package optimizer runs a session across phases twice: blind, taking each
// reshuffle layout as it becomes available, and with perfect information,
// where every phase's layout is known upfront. The perfect pass works
// backward: it ranks the end states reachable in each phase by the best
// score achievable from the layout they lead to, not by their own static
// merit, so it can recommend a locally worse line that keeps a later phase's
// winning line alive.
package optimizer

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/game"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/search"
)

// LayoutProvider supplies phase-start boards. Phase 0 is the initial deal
// (prev is nil); later phases derive from the previous phase's terminal
// board, since locked prefixes carry over into the redeal.
type LayoutProvider interface {
	NumPhases() int
	StartBoard(phase int, prev *board.Board) (*board.Board, error)
}

var ErrNoLayouts = errors.New("layout provider has no phases")

// PhasePlan is one phase of a recommended strategy.
type PhasePlan struct {
	Start   board.Board
	Line    []move.Move
	Final   board.Board
	Outcome game.Outcome
	Score   float32
}

// Result is the perfect-information recommendation: a full per-phase plan
// and the best achievable terminal score.
type Result struct {
	Phases  []PhasePlan
	Outcome game.Outcome
	Score   float32
}

type Optimizer struct {
	solver         *search.Solver
	topK           int
	endStateBudget uint64
}

func New(s *search.Solver) *Optimizer {
	return &Optimizer{solver: s, topK: 8}
}

// SetTopK bounds how many ranked end states per phase the perfect pass
// considers.
func (o *Optimizer) SetTopK(k int) {
	if k > 0 {
		o.topK = k
	}
}

func (o *Optimizer) SetEndStateBudget(n uint64) { o.endStateBudget = n }

// Blind plays the game the way a live session does: each phase to
// completion, then the next layout, with no lookahead across reshuffles.
func (o *Optimizer) Blind(ctx context.Context, provider LayoutProvider, params search.Params) (*game.Game, error) {
	if provider.NumPhases() == 0 {
		return nil, ErrNoLayouts
	}
	start, err := provider.StartBoard(0, nil)
	if err != nil {
		return nil, err
	}
	c := game.NewController(o.solver)
	if err := c.StartGame(start); err != nil {
		return nil, err
	}
	for phase := 0; ; phase++ {
		ph, err := c.RunPhase(ctx, params)
		if err != nil {
			return nil, err
		}
		if ph.Outcome == game.Win || phase+1 >= provider.NumPhases() {
			break
		}
		next, err := provider.StartBoard(phase+1, &ph.Final)
		if err != nil {
			return nil, err
		}
		if err := c.SubmitReshuffle(next); err != nil {
			return nil, err
		}
	}
	g := c.Game()
	if g.Outcome == game.InProgress {
		// ran out of layouts rather than reshuffles
		g.Outcome = game.Exhausted
	}
	log.Info().Int("phases", g.Phases()).Stringer("outcome", g.Outcome).Msg("blind-pass-done")
	return g, nil
}

// Perfect computes the best cross-phase strategy by retrograde analysis over
// ranked end states.
func (o *Optimizer) Perfect(ctx context.Context, provider LayoutProvider, params search.Params) (*Result, error) {
	if provider.NumPhases() == 0 {
		return nil, ErrNoLayouts
	}
	start, err := provider.StartBoard(0, nil)
	if err != nil {
		return nil, err
	}
	score, plans, err := o.bestFrom(ctx, provider, 0, start)
	if err != nil {
		return nil, err
	}
	res := &Result{Phases: plans, Score: score, Outcome: game.Exhausted}
	if len(plans) > 0 && plans[len(plans)-1].Outcome == game.Win {
		res.Outcome = game.Win
	}
	log.Info().Int("phases", len(plans)).Float32("score", score).
		Stringer("outcome", res.Outcome).Msg("perfect-pass-done")
	return res, nil
}

// bestFrom values each end state of the current phase by the best score its
// successor layout can reach, recursively, and keeps the best plan. End
// states come ranked, and strict improvement keeps the ranking as the
// tie-break, so results are reproducible.
func (o *Optimizer) bestFrom(ctx context.Context, provider LayoutProvider, phase int, b *board.Board) (float32, []PhasePlan, error) {
	ends, err := o.solver.EndStates(ctx, b, o.topK, o.endStateBudget)
	if err != nil {
		return 0, nil, err
	}
	if len(ends) == 0 {
		// budget ran out before any terminal; score the start statically
		plan := PhasePlan{Start: *b, Final: *b, Outcome: game.Exhausted,
			Score: o.solver.Evaluator().Evaluate(b)}
		return plan.Score, []PhasePlan{plan}, nil
	}

	best := float32(-math.MaxFloat32)
	var bestPlans []PhasePlan
	for _, es := range ends {
		plan := PhasePlan{Start: *b, Line: es.Line, Final: es.Board, Score: es.Score}
		if es.Won {
			plan.Outcome = game.Win
		} else {
			plan.Outcome = game.Exhausted
		}

		var value float32
		var tail []PhasePlan
		if es.Won || phase+1 >= provider.NumPhases() {
			value = es.Score
		} else {
			next, err := provider.StartBoard(phase+1, &es.Board)
			if err != nil {
				return 0, nil, err
			}
			value, tail, err = o.bestFrom(ctx, provider, phase+1, next)
			if err != nil {
				return 0, nil, err
			}
		}
		if value > best {
			best = value
			bestPlans = append([]PhasePlan{plan}, tail...)
		}
	}
	return best, bestPlans, nil
}

func blindScore(e *eval.Evaluator, g *game.Game) float32 {
	if g.Outcome == game.Win {
		return eval.WinScore
	}
	if len(g.History) == 0 {
		return 0
	}
	final := g.History[len(g.History)-1].Final
	return e.Evaluate(&final)
}
