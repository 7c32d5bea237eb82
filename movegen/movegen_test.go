package movegen

import (
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/move"
)

func mustParse(t *testing.T, layout string) *board.Board {
	t.Helper()
	b, err := board.Parse(strings.Fields(layout))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

const midgameLayout = `
	2H 3H 4H 5H 6H 7H 8H 9H -- JH KH QH TS
	2S 3S 4S 5S 6S 7S 8S 9S TH JS QS KS --
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --`

// every gap sits immediately behind a King
const deadLayout = `
	3C 4C 5C 6C 7C 8C 9C TC JC QC 2C KC --
	3D 4D 5D 6D 7D 8D 9D TD JD QD 2D KD --
	3H 4H 5H 6H 7H 8H 9H TH JH QH 2H KH --
	3S 4S 5S 6S 7S 8S 9S TS JS QS 2S KS --`

const firstColumnLayout = `
	-- 3C 4C 5C 6C 7C 8C 9C TC JC QC KC 2D
	2C 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --
	2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH --
	2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS --`

const gapBehindGapLayout = `
	2C 3C 4C 5C 6C 7C 8C 9C TC JC -- -- QC
	KC 2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD
	2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH --
	2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS --`

func TestSingleSuccessorMove(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, midgameLayout)
	moves := GenAll(b)
	is.Equal(len(moves), 1)
	is.Equal(moves[0], move.Move{
		Card: card.New(card.Ten, card.Hearts),
		From: move.MakePos(1, 8),
		To:   move.MakePos(0, 8),
	})
	is.Equal(Count(b), 1)
}

func TestGapBehindKingIsDead(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, deadLayout)
	is.Equal(len(GenAll(b)), 0)
	is.Equal(Count(b), 0)
}

func TestFirstColumnTakesATwo(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, firstColumnLayout)
	moves := GenAll(b)
	is.Equal(len(moves), 1)
	// clubs are already rooted at R2C1; the lowest unrooted suit with a
	// movable 2 is diamonds
	is.Equal(moves[0], move.Move{
		Card: card.New(card.Two, card.Diamonds),
		From: move.MakePos(0, 12),
		To:   move.MakePos(0, 0),
	})

	nb := b.Apply(moves[0])
	is.Equal(nb.LockedLength(0), 1)
	is.Equal(len(GenAll(&nb)), 0) // the freed gap sits behind KC
}

func TestGapBehindGap(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, gapBehindGapLayout)
	moves := GenAll(b)
	is.Equal(len(moves), 1)
	is.Equal(moves[0].Card, card.New(card.Queen, card.Clubs))
	is.Equal(moves[0].To, move.MakePos(0, 10))

	nb := b.Apply(moves[0])
	is.Equal(nb.LockedLength(0), 11)
}

func TestLockedCardNeverASource(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, midgameLayout)
	for _, m := range GenAll(b) {
		is.True(!b.IsLocked(m.From))
		is.True(!b.IsLocked(m.To))
	}
}

func TestAppliedMovesPreserveInvariants(t *testing.T) {
	is := is.New(t)
	for _, layout := range []string{midgameLayout, firstColumnLayout, gapBehindGapLayout} {
		b := mustParse(t, layout)
		moves := GenAll(b)
		is.True(len(moves) <= board.NumGaps)
		for _, m := range moves {
			nb := b.Apply(m)
			// reconstructing from tokens revalidates the 48-card and
			// 4-gap invariants
			again, err := board.Parse(nb.Tokens())
			is.NoErr(err)
			is.True(nb.Equal(again))
		}
	}
}

func TestIsLegal(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, midgameLayout)
	legal := GenAll(b)[0]
	is.True(IsLegal(b, legal))
	bogus := move.Move{Card: card.New(card.Five, card.Clubs), From: move.MakePos(2, 3), To: move.MakePos(0, 8)}
	is.True(!IsLegal(b, bogus))
}
