package eval

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

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

const winLayout = `
	2C 3C 4C 5C 6C 7C 8C 9C TC JC QC KC --
	2D 3D 4D 5D 6D 7D 8D 9D TD JD QD KD --
	2H 3H 4H 5H 6H 7H 8H 9H TH JH QH KH --
	2S 3S 4S 5S 6S 7S 8S 9S TS JS QS KS --`

func TestWinScore(t *testing.T) {
	is := is.New(t)
	e := New(DefaultWeights())
	is.Equal(e.Evaluate(mustParse(t, winLayout)), WinScore)
}

func TestLockExtensionRaisesScore(t *testing.T) {
	is := is.New(t)
	e := New(DefaultWeights())
	b := mustParse(t, midgameLayout)
	before := e.Evaluate(b)

	th := card.New(card.Ten, card.Hearts)
	nb := b.Apply(move.Move{Card: th, From: b.PosOf(th), To: move.MakePos(0, 8)})
	after := e.Evaluate(&nb)
	is.True(after > before)
}

func TestEvaluateIsPure(t *testing.T) {
	is := is.New(t)
	e := New(DefaultWeights())
	b := mustParse(t, midgameLayout)
	is.Equal(e.Evaluate(b), e.Evaluate(b))
}

func TestKingTrapPenalty(t *testing.T) {
	// midgame has three gaps directly behind Kings; removing the king-trap
	// penalty must raise the score.
	b := mustParse(t, midgameLayout)
	withPenalty := New(DefaultWeights()).Evaluate(b)
	w := DefaultWeights()
	w.KingTrapPenalty = 0
	withoutPenalty := New(w).Evaluate(b)
	assert.Greater(t, withoutPenalty, withPenalty)
}

func TestWeightsSignature(t *testing.T) {
	is := is.New(t)
	a := DefaultWeights()
	b := DefaultWeights()
	is.Equal(a.Signature(), b.Signature())
	b.GapQuality = 51
	is.True(a.Signature() != b.Signature())
}

func TestLoadWeights(t *testing.T) {
	is := is.New(t)
	w, err := LoadWeights(strings.NewReader("gap_quality: 75\nrow_balance: 5\n"))
	is.NoErr(err)
	is.Equal(w.GapQuality, 75.0)
	is.Equal(w.RowBalance, 5.0)
	// untouched fields keep defaults
	is.Equal(w.SequenceProgress, 100.0)
}
