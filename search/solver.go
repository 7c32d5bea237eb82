// Package search implements the move-recommendation engine: iterative
// deepening over an alpha-beta-pruned single-agent game tree, with a
// transposition table, history-based move ordering, late-move reduction and
// futility pruning. There is no adversary in this game, so the min side of
// classical minimax collapses; pruning only skips branches already dominated
// by a known alternative.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/movegen"
)

const HugeNumber = float32(1e7)

const (
	HashMoveOffset   = 6000
	LockExtendOffset = 5000
	rootTwoOffset    = 30
	kingUncoverMalus = 20
)

// futilityMargin per remaining ply; a move whose parent's static score plus
// this margin cannot reach alpha is skipped at shallow depth.
const futilityMargin = float32(500)

var errBudgetExceeded = errors.New("search budget exceeded")

// Params bounds one recommendMove invocation. Zero values pick defaults;
// NodeBudget 0 means unlimited.
type Params struct {
	MaxDepth   int
	TimeBudget time.Duration
	NodeBudget uint64
}

func DefaultParams() Params {
	return Params{MaxDepth: 20, TimeBudget: 2 * time.Second}
}

// SearchResult is the anytime answer: the best line found within budget.
// Move is nil when the root has no legal moves (phase exhaustion, not an
// error).
type SearchResult struct {
	Move  *move.Move
	Score float32
	PV    []move.Move
	Nodes uint64
	Depth int
}

type rootMove struct {
	m   move.Move
	est float32
}

type Solver struct {
	evaluator *eval.Evaluator
	ttable    *TranspositionTable

	iterativeDeepeningOptim bool
	transpositionTableOptim bool
	lateMoveReductionOptim  bool
	futilityPruningOptim    bool
	lazySMPOptim            bool

	threads    int
	ttFraction float64

	// per-thread state; helper threads share only the transposition table
	rootMoves       [][]rootMove
	history         [][]uint32
	currentIDDepths []int

	nodeBudget uint64
	nodes      atomic.Uint64

	principalVariation PVLine
	bestPVValue        float32

	logStream io.Writer
}

func NewSolver(e *eval.Evaluator) *Solver {
	s := &Solver{
		evaluator:  e,
		ttable:     &TranspositionTable{},
		threads:    1,
		ttFraction: 0.05,
	}
	s.iterativeDeepeningOptim = true
	s.transpositionTableOptim = true
	s.lateMoveReductionOptim = true
	s.futilityPruningOptim = true
	s.ttable.SetSingleThreadedMode()
	return s
}

// SetThreads enables lazy-SMP helper threads. Helpers only deepen the shared
// transposition table; recommendations are only guaranteed reproducible with
// one thread, which is the default.
func (s *Solver) SetThreads(threads int) {
	switch {
	case threads < 2:
		s.threads = 1
		s.lazySMPOptim = false
	case threads >= 2:
		s.threads = threads
		s.lazySMPOptim = true
	}
}

func (s *Solver) SetIterativeDeepening(id bool)      { s.iterativeDeepeningOptim = id }
func (s *Solver) SetTranspositionTableOptim(tt bool) { s.transpositionTableOptim = tt }
func (s *Solver) SetLateMoveReduction(lmr bool)      { s.lateMoveReductionOptim = lmr }
func (s *Solver) SetFutilityPruning(fp bool)         { s.futilityPruningOptim = fp }
func (s *Solver) SetTTFraction(f float64)            { s.ttFraction = f }
func (s *Solver) SetLogStream(w io.Writer)           { s.logStream = w }

func (s *Solver) Evaluator() *eval.Evaluator { return s.evaluator }

// configSignature folds the evaluator weights and the pruning configuration
// into one value; cached scores are meaningless across configurations.
func (s *Solver) configSignature() uint64 {
	sig := s.evaluator.Weights().Signature()
	for _, b := range []bool{s.lateMoveReductionOptim, s.futilityPruningOptim} {
		sig *= 31
		if b {
			sig++
		}
	}
	return sig
}

func (s *Solver) resetTable() {
	sig := s.configSignature()
	if s.ttable.cfgSignature != sig {
		log.Debug().Uint64("cfg-signature", sig).Msg("search-config-changed")
	}
	s.ttable.Reset(s.ttFraction)
	s.ttable.cfgSignature = sig
}

// RecommendMove runs an iterative-deepening search from b and returns the
// best move found within the time and node budgets. A root with no legal
// moves returns a nil Move and the static evaluation.
func (s *Solver) RecommendMove(ctx context.Context, b *board.Board, params Params) (*SearchResult, error) {
	if params.MaxDepth <= 0 {
		params.MaxDepth = DefaultParams().MaxDepth
	}
	if params.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeBudget)
		defer cancel()
	}
	s.nodeBudget = params.NodeBudget
	s.nodes.Store(0)

	legal := movegen.GenAll(b)
	if len(legal) == 0 {
		return &SearchResult{Score: s.evaluator.Evaluate(b)}, nil
	}

	tstart := time.Now()
	if s.transpositionTableOptim {
		if s.lazySMPOptim {
			s.ttable.SetMultiThreadedMode()
		} else {
			s.ttable.SetSingleThreadedMode()
		}
		s.resetTable()
	}

	nthreads := 1
	if s.lazySMPOptim {
		nthreads = s.threads
	}
	s.currentIDDepths = make([]int, nthreads)
	s.history = make([][]uint32, nthreads)
	for t := 0; t < nthreads; t++ {
		s.history[t] = make([]uint32, board.NumCells*board.NumCells)
	}

	rms := make([]rootMove, len(legal))
	for i, m := range legal {
		rms[i] = rootMove{m: m, est: s.estimate(b, m, move.InvalidTinyMove, 0)}
	}
	sort.SliceStable(rms, func(i, j int) bool { return rms[i].est > rms[j].est })
	s.rootMoves = make([][]rootMove, nthreads)
	for t := 0; t < nthreads; t++ {
		s.rootMoves[t] = make([]rootMove, len(rms))
		copy(s.rootMoves[t], rms)
	}

	s.principalVariation = PVLine{}
	s.bestPVValue = -HugeNumber
	completedDepth := 0

	start := 1
	if !s.iterativeDeepeningOptim {
		start = params.MaxDepth
	}
	for p := start; p <= params.MaxDepth; p++ {
		if ctx.Err() != nil {
			break
		}
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- depth: %d\n", p)
		}
		var cancels []context.CancelFunc
		var g *errgroup.Group
		if s.lazySMPOptim && nthreads > 1 {
			g = &errgroup.Group{}
			cancels = make([]context.CancelFunc, nthreads-1)
			for t := 1; t < nthreads; t++ {
				t := t
				helperCtx, cancel := context.WithCancel(ctx)
				cancels[t-1] = cancel
				g.Go(func() error {
					// helpers search deeper plies to build up the table;
					// their own results are discarded.
					var helperPV PVLine
					_, err := s.searchRoot(helperCtx, *b, p+t%3, &helperPV, t)
					if err != nil && !errors.Is(err, context.Canceled) &&
						!errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errBudgetExceeded) {
						log.Err(err).Int("thread", t).Msg("helper-thread-error")
					}
					return nil
				})
			}
		}

		pv := PVLine{}
		val, err := s.searchRoot(ctx, *b, p, &pv, 0)
		for _, cancel := range cancels {
			cancel()
		}
		if g != nil {
			g.Wait()
		}
		if err != nil {
			// budget exhausted mid-iteration; keep the last completed depth
			break
		}
		s.principalVariation = pv
		s.bestPVValue = val
		completedDepth = p
		log.Debug().Int("depth", p).Float32("value", val).Str("pv", pv.NLBString()).Msg("deepening-iteratively")
		if val >= eval.WinScore {
			break
		}
	}

	res := &SearchResult{Nodes: s.nodes.Load(), Depth: completedDepth}
	if completedDepth == 0 {
		// not even depth 1 finished; recommend the statically best move
		m := s.rootMoves[0][0].m
		res.Move = &m
		res.Score = s.evaluator.Evaluate(b)
		res.PV = []move.Move{m}
	} else {
		m := s.principalVariation.GetPVMove()
		res.Move = &m
		res.Score = s.bestPVValue
		res.PV = append([]move.Move{}, s.principalVariation.Moves...)
	}
	log.Debug().
		Uint64("ttable-created", s.ttable.created.Load()).
		Uint64("ttable-lookups", s.ttable.lookups.Load()).
		Uint64("ttable-hits", s.ttable.hits.Load()).
		Uint64("ttable-t2collisions", s.ttable.t2collisions.Load()).
		Uint64("nodes", res.Nodes).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("recommend-returning")
	return res, nil
}

func (s *Solver) searchRoot(ctx context.Context, b board.Board, depth int, pv *PVLine, thread int) (float32, error) {
	s.currentIDDepths[thread] = depth
	α := -HugeNumber
	β := HugeNumber
	best := -HugeNumber
	childPV := PVLine{}
	rms := s.rootMoves[thread]
	for i := range rms {
		child := b.Apply(rms[i].m)
		value, err := s.alphabeta(ctx, child, depth-1, α, β, &childPV, thread)
		if err != nil {
			return 0, err
		}
		rms[i].est = value
		if value > best {
			best = value
			pv.Update(rms[i].m, childPV, value)
		}
		if best > α {
			α = best
		}
		childPV.Clear()
	}
	// order root moves by value for the next iteration; the stable sort
	// keeps generation order on ties, which is the documented tie-break.
	sort.SliceStable(rms, func(i, j int) bool { return rms[i].est > rms[j].est })
	return best, nil
}

func (s *Solver) alphabeta(ctx context.Context, b board.Board, depth int, α, β float32, pv *PVLine, thread int) (float32, error) {
	if err := s.checkBudget(ctx); err != nil {
		return 0, err
	}
	if b.Win() {
		return eval.WinScore, nil
	}

	alphaOrig := α
	ttMove := move.InvalidTinyMove
	nodeKey := b.Key()
	if s.transpositionTableOptim {
		entry := s.ttable.lookup(nodeKey)
		if entry.valid() && int(entry.depth()) >= depth {
			score := entry.score
			switch entry.flag() {
			case TTExact:
				return score, nil
			case TTLower:
				α = max32(α, score)
			case TTUpper:
				β = min32(β, score)
			}
			if α >= β {
				return score, nil
			}
			ttMove = entry.move()
		}
	}

	moves := movegen.GenAll(&b)
	if depth == 0 || len(moves) == 0 {
		// an empty move set ends the phase here; score it statically
		return s.evaluator.Evaluate(&b), nil
	}
	s.orderMoves(&b, moves, ttMove, thread)

	var static float32
	staticKnown := false
	best := -HugeNumber
	bestMove := move.InvalidTinyMove
	childPV := PVLine{}
	for i, m := range moves {
		// futility: at shallow depth, skip moves that cannot lift the
		// static score past alpha. Never skip the first-ordered move or
		// a lock extension (the only irreversible progress).
		if s.futilityPruningOptim && i > 0 && depth <= 2 && !extendsLock(&b, m) {
			if !staticKnown {
				static = s.evaluator.Evaluate(&b)
				staticKnown = true
			}
			if static+futilityMargin*float32(depth) <= α {
				continue
			}
		}

		child := b.Apply(m)
		var value float32
		var err error
		if s.lateMoveReductionOptim && i >= 2 && depth >= 3 {
			// late moves get a reduced-depth look first and a full
			// re-search only if they beat alpha
			value, err = s.alphabeta(ctx, child, depth-2, α, β, &childPV, thread)
			if err != nil {
				return 0, err
			}
			if value > α {
				childPV.Clear()
				value, err = s.alphabeta(ctx, child, depth-1, α, β, &childPV, thread)
			}
		} else {
			value, err = s.alphabeta(ctx, child, depth-1, α, β, &childPV, thread)
		}
		if err != nil {
			return 0, err
		}
		if value > best {
			best = value
			bestMove = m.Tiny()
			pv.Update(m, childPV, value)
		}
		α = max32(α, best)
		if best >= β {
			s.history[thread][histIdx(m)] += uint32(depth * depth)
			break
		}
		childPV.Clear()
	}

	if s.transpositionTableOptim && bestMove.Valid() {
		var flag uint8
		switch {
		case best <= alphaOrig:
			flag = TTUpper
		case best >= β:
			flag = TTLower
		default:
			flag = TTExact
		}
		// depth shares a byte with the flag
		d := depth
		if d > depthMask {
			d = depthMask
		}
		s.ttable.store(nodeKey, TableEntry{
			score:        best,
			play:         bestMove,
			flagAndDepth: flag<<6 + uint8(d),
		})
	}
	return best, nil
}

func (s *Solver) checkBudget(ctx context.Context) error {
	n := s.nodes.Add(1)
	if s.nodeBudget > 0 && n > s.nodeBudget {
		return errBudgetExceeded
	}
	if n&1023 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) orderMoves(b *board.Board, moves []move.Move, ttMove move.TinyMove, thread int) {
	ests := make([]float32, len(moves))
	for i, m := range moves {
		ests[i] = s.estimate(b, m, ttMove, thread)
	}
	sort.Stable(&moveSorter{ests: ests, moves: moves})
}

type moveSorter struct {
	ests  []float32
	moves []move.Move
}

func (ms *moveSorter) Len() int { return len(ms.moves) }
func (ms *moveSorter) Swap(i, j int) {
	ms.ests[i], ms.ests[j] = ms.ests[j], ms.ests[i]
	ms.moves[i], ms.moves[j] = ms.moves[j], ms.moves[i]
}
func (ms *moveSorter) Less(i, j int) bool {
	return ms.ests[j] < ms.ests[i]
}

// estimate orders candidate moves: hash move first, then lock extensions,
// then gap-quality improvements and the history heuristic.
func (s *Solver) estimate(b *board.Board, m move.Move, ttMove move.TinyMove, thread int) float32 {
	est := float32(s.history[thread][histIdx(m)])
	if ttMove.Valid() {
		from, to := ttMove.FromTo()
		if m.From == from && m.To == to {
			est += HashMoveOffset
		}
	}
	if extendsLock(b, m) {
		est += LockExtendOffset
	}
	if m.To.Col() > 0 {
		est += 2 * float32(runLengthEndingAt(b, m.To-1))
	} else {
		est += rootTwoOffset
	}
	if m.From.Col() > 0 {
		if left, ok := b.CardAt(m.From - 1); ok && left.Rank() == card.King {
			// the vacated cell becomes a dead gap behind a King
			est -= kingUncoverMalus
		}
	}
	return est
}

// extendsLock is true when the move drops its card directly onto the end of
// the destination row's locked prefix.
func extendsLock(b *board.Board, m move.Move) bool {
	return m.To.Col() == b.LockedLength(m.To.Row())
}

func runLengthEndingAt(b *board.Board, p move.Pos) int {
	c, ok := b.CardAt(p)
	if !ok {
		return 0
	}
	n := 1
	for col := p.Col() - 1; col >= 0; col-- {
		prev, ok := b.CardAt(move.MakePos(p.Row(), col))
		if !ok || prev.Suit() != c.Suit() || prev.Rank() != c.Rank()-card.Rank(n) {
			break
		}
		n++
	}
	return n
}

func histIdx(m move.Move) int {
	return int(m.From)*board.NumCells + int(m.To)
}

func max32(x, y float32) float32 {
	if x < y {
		return y
	}
	return x
}

func min32(x, y float32) float32 {
	if x < y {
		return x
	}
	return y
}
