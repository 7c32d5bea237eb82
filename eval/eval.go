// Package eval scores board positions with a weighted multi-factor
// heuristic. The evaluator is a pure function of the board, so scores can be
// cached by position signature; the weight set carries a signature of its
// own so caches can be invalidated when coefficients change.
package eval

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cespare/xxhash"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/card"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/movegen"
)

// WinScore is returned for a won board and dominates any heuristic score.
const WinScore float32 = 1e6

// Weights is the tunable coefficient set. Sequence progress is weighted to
// dominate: locking is the only irreversible, goal-relevant progress.
type Weights struct {
	SequenceProgress   float64 `yaml:"sequence_progress"`
	GapQuality         float64 `yaml:"gap_quality"`
	KingTrapPenalty    float64 `yaml:"king_trap_penalty"`
	RowBalance         float64 `yaml:"row_balance"`
	ReshufflePotential float64 `yaml:"reshuffle_potential"`
	MoveAvailability   float64 `yaml:"move_availability"`
}

func DefaultWeights() Weights {
	return Weights{
		SequenceProgress:   100,
		GapQuality:         50,
		KingTrapPenalty:    -200,
		RowBalance:         25,
		ReshufflePotential: 10,
		MoveAvailability:   20,
	}
}

// LoadWeights reads a YAML weight file; absent fields keep their defaults.
func LoadWeights(r io.Reader) (Weights, error) {
	w := DefaultWeights()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Signature identifies this weight set for cache invalidation.
func (w Weights) Signature() uint64 {
	buf := make([]byte, 0, 6*8)
	for _, f := range []float64{
		w.SequenceProgress, w.GapQuality, w.KingTrapPenalty,
		w.RowBalance, w.ReshufflePotential, w.MoveAvailability,
	} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return xxhash.Sum64(buf)
}

type Evaluator struct {
	weights Weights
}

func New(w Weights) *Evaluator {
	return &Evaluator{weights: w}
}

func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Evaluate returns the weighted score for b. Won boards return WinScore.
func (e *Evaluator) Evaluate(b *board.Board) float32 {
	if b.Win() {
		return WinScore
	}
	w := e.weights
	total := w.SequenceProgress*sequenceProgress(b) +
		w.GapQuality*gapQuality(b) +
		w.KingTrapPenalty*kingTraps(b) +
		w.RowBalance*rowBalance(b) +
		w.ReshufflePotential*reshufflePotential(b) +
		w.MoveAvailability*moveAvailability(b)
	return float32(total)
}

// sequenceProgress rewards locked runs superlinearly (the nth locked card in
// a row is worth n^1.5), plus a flat bonus per rooted 2.
func sequenceProgress(b *board.Board) float64 {
	score := 0.0
	for r := 0; r < board.Rows; r++ {
		n := b.LockedLength(r)
		for i := 1; i <= n; i++ {
			score += math.Pow(float64(i), 1.5)
		}
		if n > 0 {
			score += 20
		}
	}
	return score
}

// gapQuality rewards gaps that can extend runs and penalizes dead ones.
func gapQuality(b *board.Board) float64 {
	score := 0.0
	for _, gap := range b.Gaps() {
		if gap.Col() == 0 {
			// room to root a new run
			score += 15
			continue
		}
		left, ok := b.CardAt(gap - 1)
		switch {
		case !ok:
			score -= 10
		case left.Rank() == card.King:
			score -= 25
		default:
			score += 5 + 2*float64(runLengthEndingAt(b, gap-1))
		}
	}
	return score
}

// runLengthEndingAt counts the ascending same-suit run that ends at p,
// locked or not.
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

func kingTraps(b *board.Board) float64 {
	traps := 0.0
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols-1; c++ {
			cd, ok := b.CardAt(move.MakePos(r, c))
			if ok && cd.Rank() == card.King && b.IsGap(move.MakePos(r, c+1)) {
				traps++
			}
		}
	}
	return traps
}

// rowBalance favors even lock progress across rows; uneven progress burns
// reshuffle flexibility.
func rowBalance(b *board.Board) float64 {
	lengths := make([]float64, board.Rows)
	for r := 0; r < board.Rows; r++ {
		lengths[r] = float64(b.LockedLength(r))
	}
	variance := stat.Variance(lengths, nil)
	return math.Max(0, 20-variance)
}

// reshufflePotential counts the cards still in play for future reshuffles
// and rewards a balanced suit distribution among them.
func reshufflePotential(b *board.Board) float64 {
	var suitCounts [card.NumSuits]float64
	unlocked := 0.0
	for i := 0; i < board.NumCells; i++ {
		p := move.Pos(i)
		if b.IsLocked(p) {
			continue
		}
		if c, ok := b.CardAt(p); ok {
			unlocked++
			suitCounts[c.Suit()]++
		}
	}
	score := unlocked * 0.5
	lo, hi := suitCounts[0], suitCounts[0]
	for _, n := range suitCounts[1:] {
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}
	if hi > 0 {
		score += lo / hi * 10
	}
	return score
}

func moveAvailability(b *board.Board) float64 {
	n := movegen.Count(b)
	if n == 0 {
		return -50
	}
	return math.Min(float64(n)*5, 20)
}
