package gameio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/game"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/search"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

const fourMoveLayout = `
	2H 3H 4H -- 6H 7H 8H 9H TH JH QH KH 5D
	2S 3S 4S -- 6S 7S 8S 9S TS JS QS KS 5H
	2C 3C 4C -- 6C 7C 8C 9C TC JC QC KC 5S
	2D 3D 4D -- 6D 7D 8D 9D TD JD QD KD 5C`

func playedGame(t *testing.T) *game.Game {
	t.Helper()
	b, err := board.Parse(strings.Fields(fourMoveLayout))
	if err != nil {
		t.Fatal(err)
	}
	s := search.NewSolver(eval.New(eval.DefaultWeights()))
	s.SetTTFraction(0.001)
	c := game.NewController(s)
	if err := c.StartGame(b); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RunPhase(context.Background(), search.Params{MaxDepth: 6, TimeBudget: 10 * time.Second}); err != nil {
		t.Fatal(err)
	}
	return c.Game()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	is := is.New(t)
	g := playedGame(t)

	var buf bytes.Buffer
	is.NoErr(Save(&buf, g))

	loaded, err := Load(&buf)
	is.NoErr(err)
	is.Equal(loaded.ID, g.ID)
	is.Equal(loaded.Outcome, game.Win)
	is.Equal(len(loaded.History), 1)
	is.Equal(len(loaded.History[0].Steps), 4)
	is.True(loaded.History[0].Final.Equal(&g.History[0].Final))
	is.True(loaded.History[0].Final.Win())
}

func TestSaveLoadMidPhase(t *testing.T) {
	is := is.New(t)
	b, err := board.Parse(strings.Fields(fourMoveLayout))
	is.NoErr(err)
	s := search.NewSolver(eval.New(eval.DefaultWeights()))
	s.SetTTFraction(0.001)
	c := game.NewController(s)
	is.NoErr(c.StartGame(b))
	m, err := move.ParseMove("5D R1C13>R1C4")
	is.NoErr(err)
	_, err = c.Confirm(m)
	is.NoErr(err)
	want := c.Board()

	var buf bytes.Buffer
	is.NoErr(Save(&buf, c.Snapshot()))
	is.True(strings.Contains(buf.String(), "outcome: in progress"))

	loaded, err := Load(&buf)
	is.NoErr(err)
	c2 := game.NewController(s)
	c2.Restore(loaded)
	is.True(c2.PhaseInProgress())
	got := c2.Board()
	is.True(got.Equal(&want))

	// the reopened phase keeps its recorded step and plays out to the win
	ph, err := c2.RunPhase(context.Background(), search.Params{MaxDepth: 6, TimeBudget: 10 * time.Second})
	is.NoErr(err)
	is.Equal(ph.Outcome, game.Win)
	is.Equal(len(ph.Steps), 4)
	is.Equal(c2.Game().Outcome, game.Win)
	is.Equal(len(c2.Game().History), 1)
}

func TestLoadRejectsEarlyInProgressPhase(t *testing.T) {
	// only the last phase may be unfinished
	tokens := strings.Fields(fourMoveLayout)
	rec := gameRecord{ID: "x", Outcome: "in progress", Phases: []phaseRecord{
		{Start: tokens, Outcome: "in progress"},
		{Start: tokens, Outcome: "in progress"},
	}}
	out, err := yaml.Marshal(&rec)
	assert.NoError(t, err)
	_, err = Load(bytes.NewReader(out))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "in progress but not the last phase")
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestSaveReportsWriteError(t *testing.T) {
	g := playedGame(t)
	err := Save(failWriter{}, g)
	assert.Error(t, err)
}

func TestLoadRejectsIllegalMove(t *testing.T) {
	g := playedGame(t)
	var buf bytes.Buffer
	assert.NoError(t, Save(&buf, g))

	// replace the first recorded move with a locked-card move
	doctored := strings.Replace(buf.String(), "5D R1C13>R1C4", "2H R1C1>R1C4", 1)
	_, err := Load(strings.NewReader(doctored))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "phase 1")
}

func TestLoadRejectsWrongOutcome(t *testing.T) {
	yml := `
id: x
outcome: win
phases:
  - start: [2C, 3C, 4C, 5C, 6C, 7C, 8C, 9C, TC, JC, QC, KC, "--",
            2D, 3D, 4D, 5D, 6D, 7D, 8D, 9D, TD, JD, QD, KD, "--",
            2H, 3H, 4H, 5H, 6H, 7H, 8H, 9H, TH, JH, QH, KH, "--",
            2S, 3S, 4S, 5S, 6S, 7S, 8S, 9S, TS, JS, QS, KS, "--"]
    outcome: exhausted
`
	// the layout is a won board; "exhausted" contradicts it only if moves
	// remained, and none do, so this loads fine
	g, err := Load(strings.NewReader(yml))
	assert.NoError(t, err)
	assert.True(t, g.History[0].Final.Win())

	_, err = Load(strings.NewReader(strings.Replace(yml, "outcome: exhausted", "outcome: victory", 1)))
	assert.Error(t, err)
}
