package optimizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/game"
	"github.com/domino14/gapper/search"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func mustParse(t *testing.T, layout string) *board.Board {
	t.Helper()
	b, err := board.Parse(strings.Fields(layout))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testOptimizer() *Optimizer {
	s := search.NewSolver(eval.New(eval.DefaultWeights()))
	s.SetTTFraction(0.001)
	return New(s)
}

func testParams() search.Params {
	return search.Params{MaxDepth: 8, TimeBudget: 10 * time.Second}
}

// forkLayout has exactly two reachable terminals. Playing 5H into row 0
// immediately (the one-move line) strands 6H and kills the other gap;
// playing 6H first keeps a longer line alive that finishes with spade
// progress instead.
const forkLayout = `
	2H 3H 4H -- 7H 8H 9H TH JH QH KH 5S 6H
	KS 5H -- 2S 3S 4S 6S 7S 8S 9S TS JS QS
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --`

// a fully winnable second deal preserving the fork terminals' locked
// prefixes (2H..5H in row 1, clubs and diamonds complete).
const winNextLayout = `
	2H 3H 4H 5H -- 6H 7H 8H 9H TH JH QH KH
	-- 2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --`

// same prefixes preserved, but every gap is dead on arrival.
const deadNextLayout = `
	2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH --
	KS -- 2S 3S 4S 5S 6S 7S 8S 9S TS JS QS
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --`

// stubLayouts deals the winnable second phase only from one specific
// phase-1 terminal.
type stubLayouts struct {
	first  *board.Board
	winKey uint64
	win    *board.Board
	dead   *board.Board
}

func (s *stubLayouts) NumPhases() int { return 2 }

func (s *stubLayouts) StartBoard(phase int, prev *board.Board) (*board.Board, error) {
	if phase == 0 {
		return s.first, nil
	}
	if prev.Key() == s.winKey {
		return s.win, nil
	}
	return s.dead, nil
}

func TestPerfectPassBeatsBlind(t *testing.T) {
	is := is.New(t)
	o := testOptimizer()
	ctx := context.Background()
	fork := mustParse(t, forkLayout)

	ends, err := o.solver.EndStates(ctx, fork, 5, 0)
	is.NoErr(err)
	is.Equal(len(ends), 2)

	// the win hides behind the terminal the blind pass will not choose
	stub := &stubLayouts{
		first:  fork,
		winKey: ends[1].Board.Key(),
		win:    mustParse(t, winNextLayout),
		dead:   mustParse(t, deadNextLayout),
	}

	blind, err := o.Blind(ctx, stub, testParams())
	is.NoErr(err)
	is.Equal(blind.Outcome, game.Exhausted)
	is.Equal(blind.Phases(), 2)
	// blind greedily realizes the top-ranked phase-1 terminal
	is.Equal(blind.History[0].Final.Key(), ends[0].Board.Key())

	o.SetTopK(5)
	perfect, err := o.Perfect(ctx, stub, testParams())
	is.NoErr(err)
	is.Equal(perfect.Outcome, game.Win)
	is.Equal(perfect.Score, eval.WinScore)
	is.Equal(len(perfect.Phases), 2)
	// the revised strategy takes the locally worse phase-1 line
	is.Equal(perfect.Phases[0].Final.Key(), ends[1].Board.Key())
	is.Equal(perfect.Phases[1].Outcome, game.Win)

	summary := o.Compare(blind, perfect)
	is.Equal(summary.DivergePhase, 1)
	is.True(summary.Improved)
	is.True(summary.PerfectScore > summary.BlindScore)
}

func TestPerfectAgreesOnSinglePhaseWin(t *testing.T) {
	is := is.New(t)
	o := testOptimizer()
	ctx := context.Background()
	stub := &stubLayouts{first: mustParse(t, winNextLayout)}

	blind, err := o.Blind(ctx, &singlePhase{stub.first}, testParams())
	is.NoErr(err)
	is.Equal(blind.Outcome, game.Win)

	perfect, err := o.Perfect(ctx, &singlePhase{stub.first}, testParams())
	is.NoErr(err)
	is.Equal(perfect.Outcome, game.Win)

	summary := o.Compare(blind, perfect)
	is.True(!summary.Improved)
	is.Equal(summary.BlindScore, summary.PerfectScore)
}

type singlePhase struct {
	b *board.Board
}

func (s *singlePhase) NumPhases() int { return 1 }
func (s *singlePhase) StartBoard(phase int, prev *board.Board) (*board.Board, error) {
	return s.b, nil
}

const exhaustedPhaseLayout = `
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	3D 4D 5D 6D 7D 8D 9D TD JD QD 2D KD --
	3H 4H 5H 6H 7H 8H 9H TH JH QH 2H KH --
	3S 4S 5S 6S 7S 8S 9S TS JS QS 2S KS --`

const recordedRedealLayout = `
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	-- 2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD
	-- 2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH
	-- 2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS`

func recordedGame(t *testing.T) *game.Game {
	prev := mustParse(t, exhaustedPhaseLayout)
	start2 := mustParse(t, recordedRedealLayout)
	return &game.Game{
		ID: "recorded",
		History: []game.Phase{
			{Start: *prev, Final: *prev, Outcome: game.Exhausted},
			{Start: *start2, Final: *start2, Outcome: game.Exhausted},
		},
		Outcome: game.Exhausted,
	}
}

func TestRecordedLayoutsReproduce(t *testing.T) {
	is := is.New(t)
	rl := RecordedFromGame(recordedGame(t))
	is.Equal(rl.NumPhases(), 2)

	prev := mustParse(t, exhaustedPhaseLayout)
	got, err := rl.StartBoard(1, prev)
	is.NoErr(err)
	is.True(got.Equal(mustParse(t, recordedRedealLayout)))
}

func TestRecordedLayoutsRedealAgainstAlternateTerminal(t *testing.T) {
	rl := RecordedFromGame(recordedGame(t))

	// same dead position except row 2 locked 2D 3D; the recorded deal
	// order must replay around the extra locked cards
	altPrev := mustParse(t, `
		2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
		2D 3D 5D 6D 7D 8D 9D TD JD QD 4D KD --
		3H 4H 5H 6H 7H 8H 9H TH JH QH 2H KH --
		3S 4S 5S 6S 7S 8S 9S TS JS QS 2S KS --`)
	got, err := rl.StartBoard(1, altPrev)
	assert.NoError(t, err)

	want := mustParse(t, `
		2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
		2D 3D -- 4D 5D 6D 7D 8D 9D TD JD QD KD
		-- 2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH
		-- 2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS`)
	assert.True(t, got.Equal(want), "got:\n%s", got.ToDisplayText())
}
