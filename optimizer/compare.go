package optimizer

import (
	"fmt"
	"strings"

	"github.com/domino14/gapper/game"
)

// Summary contrasts the blind pass with the perfect-information pass. The
// perfect pass is advice for next time, not a correction of the live game,
// so the summary reports where the two first diverge and what the better
// play would have achieved.
type Summary struct {
	BlindOutcome   game.Outcome
	PerfectOutcome game.Outcome
	BlindScore     float32
	PerfectScore   float32
	// DivergePhase is 1-based; 0 means the passes agree everywhere.
	DivergePhase int
	Improved     bool
}

func (o *Optimizer) Compare(g *game.Game, r *Result) Summary {
	s := Summary{
		BlindOutcome:   g.Outcome,
		PerfectOutcome: r.Outcome,
		BlindScore:     blindScore(o.solver.Evaluator(), g),
		PerfectScore:   r.Score,
	}
	s.Improved = s.PerfectScore > s.BlindScore

	for i := 0; i < len(g.History) && i < len(r.Phases); i++ {
		if !sameLine(&g.History[i], &r.Phases[i]) {
			s.DivergePhase = i + 1
			break
		}
	}
	return s
}

func sameLine(ph *game.Phase, plan *PhasePlan) bool {
	if len(ph.Steps) != len(plan.Line) {
		return false
	}
	for i, st := range ph.Steps {
		if !st.Move.Equals(plan.Line[i]) {
			return false
		}
	}
	return true
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "blind:   %s (score %.1f)\n", s.BlindOutcome, s.BlindScore)
	fmt.Fprintf(&sb, "perfect: %s (score %.1f)\n", s.PerfectOutcome, s.PerfectScore)
	switch {
	case s.DivergePhase == 0:
		sb.WriteString("the perfect-information pass agrees with how you played\n")
	case s.Improved:
		fmt.Fprintf(&sb, "play diverges in phase %d; the revised line does strictly better\n",
			s.DivergePhase)
	default:
		fmt.Fprintf(&sb, "play diverges in phase %d with no score improvement\n", s.DivergePhase)
	}
	return sb.String()
}
