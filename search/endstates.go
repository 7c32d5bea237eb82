package search

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/movegen"
)

// EndState is a terminal board reachable from some start position, together
// with the move line that reaches it. Terminal means won or out of moves.
type EndState struct {
	Board board.Board
	Line  []move.Move
	Score float32
	Won   bool
}

// EndStates enumerates terminal positions reachable from b and returns the
// best k of them, ranked won-first, then by score, then by shortest line.
// Positions are deduplicated by board signature, so only the first line
// found to each terminal is kept; with the deterministic generation order
// that is also the canonical one. A node budget of 0 means unlimited; when
// the budget runs out the partial ranking found so far is returned.
func (s *Solver) EndStates(ctx context.Context, b *board.Board, k int, nodeBudget uint64) ([]EndState, error) {
	if k <= 0 {
		k = 1
	}
	e := &endStateEnum{
		solver:     s,
		seen:       make(map[uint64]struct{}),
		terminals:  make(map[uint64]EndState),
		nodeBudget: nodeBudget,
	}
	line := make([]move.Move, 0, 64)
	err := e.dfs(ctx, *b, line)
	if err != nil && !errIsBudget(err) {
		return nil, err
	}

	out := make([]EndState, 0, len(e.terminals))
	for _, es := range e.terminals {
		out = append(out, es)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Won != out[j].Won {
			return out[i].Won
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if len(out[i].Line) != len(out[j].Line) {
			return len(out[i].Line) < len(out[j].Line)
		}
		return out[i].Board.Key() < out[j].Board.Key()
	})
	if len(out) > k {
		out = out[:k]
	}
	log.Debug().Int("terminals", len(e.terminals)).
		Uint64("nodes", e.nodes).
		Int("returned", len(out)).
		Bool("truncated", err != nil).
		Msg("end-state-enumeration")
	return out, nil
}

type endStateEnum struct {
	solver     *Solver
	seen       map[uint64]struct{}
	terminals  map[uint64]EndState
	nodes      uint64
	nodeBudget uint64
}

func (e *endStateEnum) dfs(ctx context.Context, b board.Board, line []move.Move) error {
	e.nodes++
	if e.nodeBudget > 0 && e.nodes > e.nodeBudget {
		return errBudgetExceeded
	}
	if e.nodes&1023 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	key := b.Key()
	if _, ok := e.seen[key]; ok {
		return nil
	}
	e.seen[key] = struct{}{}

	if b.Win() {
		e.record(key, b, line, eval.WinScore, true)
		return nil
	}
	moves := movegen.GenAll(&b)
	if len(moves) == 0 {
		e.record(key, b, line, e.solver.evaluator.Evaluate(&b), false)
		return nil
	}
	for _, m := range moves {
		child := b.Apply(m)
		if err := e.dfs(ctx, child, append(line, m)); err != nil {
			return err
		}
	}
	return nil
}

func (e *endStateEnum) record(key uint64, b board.Board, line []move.Move, score float32, won bool) {
	if _, ok := e.terminals[key]; ok {
		return
	}
	e.terminals[key] = EndState{
		Board: b,
		Line:  append([]move.Move{}, line...),
		Score: score,
		Won:   won,
	}
}

func errIsBudget(err error) bool {
	return err == errBudgetExceeded
}
