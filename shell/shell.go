// Package shell is the interactive advisor. The player mirrors their
// physical game into the shell, asks for recommendations, and confirms the
// moves actually made; the engine never executes moves on its own.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gapper/board"
	"github.com/domino14/gapper/config"
	"github.com/domino14/gapper/eval"
	"github.com/domino14/gapper/game"
	"github.com/domino14/gapper/gameio"
	"github.com/domino14/gapper/move"
	"github.com/domino14/gapper/movegen"
	"github.com/domino14/gapper/optimizer"
	"github.com/domino14/gapper/search"
)

type ShellController struct {
	l   *readline.Instance
	cfg *config.Config

	solver     *search.Solver
	controller *game.Controller
	optim      *optimizer.Optimizer
	params     search.Params

	lastRec *search.SearchResult
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewShellController(cfg *config.Config) *ShellController {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mgapper>\033[0m ",
		HistoryFile:     "/tmp/readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}

	weights := eval.DefaultWeights()
	if cfg.WeightsPath != "" {
		f, err := os.Open(cfg.WeightsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("opening weights file")
		}
		weights, err = eval.LoadWeights(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("parsing weights file")
		}
	}
	solver := search.NewSolver(eval.New(weights))
	solver.SetThreads(cfg.Threads)
	solver.SetTTFraction(cfg.TTFraction)

	optim := optimizer.New(solver)
	optim.SetTopK(cfg.TopK)
	optim.SetEndStateBudget(uint64(cfg.EndStateBudget))

	return &ShellController{
		l:          l,
		cfg:        cfg,
		solver:     solver,
		controller: game.NewController(solver),
		optim:      optim,
		params: search.Params{
			MaxDepth:   cfg.MaxDepth,
			TimeBudget: cfg.TimeBudget,
			NodeBudget: uint64(cfg.NodeBudget),
		},
	}
}

func (sc *ShellController) showMessage(msg string) {
	io.WriteString(sc.l.Stderr(), msg)
	io.WriteString(sc.l.Stderr(), "\n")
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := sc.dispatch(line, sig); quit {
			break
		}
	}
	log.Debug().Msg("exiting readline loop")
}

func (sc *ShellController) dispatch(line string, sig chan os.Signal) bool {
	fields, err := shellquote.Split(line)
	if err != nil {
		sc.showError(err)
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "bye", "exit", "quit":
		sig <- syscall.SIGINT
		return true
	case "help":
		usage(sc.l.Stderr())
	case "setboard":
		err = sc.setBoard(args)
	case "show", "s":
		err = sc.show()
	case "moves":
		err = sc.moves()
	case "best":
		err = sc.best(args)
	case "play":
		err = sc.play(args)
	case "auto":
		err = sc.auto()
	case "reshuffle":
		err = sc.reshuffle(args)
	case "perfect":
		err = sc.perfect()
	case "save":
		err = sc.save(args)
	case "load":
		err = sc.load(args)
	case "set":
		err = sc.set(args)
	default:
		sc.showMessage("unknown command; try `help`")
	}
	if err != nil {
		sc.showError(err)
	}
	return false
}

func (sc *ShellController) liveBoard() (board.Board, error) {
	if !sc.controller.PhaseInProgress() {
		return board.Board{}, errors.New("no board; use `setboard` or `load` first")
	}
	return sc.controller.Board(), nil
}

func (sc *ShellController) setBoard(args []string) error {
	b, err := board.Parse(args)
	if err != nil {
		return err
	}
	if err := sc.controller.StartGame(b); err != nil {
		return err
	}
	sc.lastRec = nil
	sc.showMessage(b.ToDisplayText())
	return nil
}

func (sc *ShellController) show() error {
	b, err := sc.liveBoard()
	if err != nil {
		return err
	}
	sc.showMessage(b.ToDisplayText())
	return nil
}

func (sc *ShellController) moves() error {
	b, err := sc.liveBoard()
	if err != nil {
		return err
	}
	legal := movegen.GenAll(&b)
	if len(legal) == 0 {
		sc.showMessage("no legal moves; the phase is exhausted")
		return nil
	}
	for i, m := range legal {
		sc.showMessage(fmt.Sprintf("%d: %s", i+1, m))
	}
	return nil
}

func (sc *ShellController) best(args []string) error {
	if _, err := sc.liveBoard(); err != nil {
		return err
	}
	params := sc.params
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad depth %q", args[0])
		}
		params.MaxDepth = d
	}
	res, err := sc.controller.Recommend(context.Background(), params)
	if err != nil {
		return err
	}
	sc.lastRec = res
	if res.Move == nil {
		sc.showMessage("no legal moves; the phase is exhausted")
		return nil
	}
	sc.showMessage(fmt.Sprintf("best: %s (value %.1f, depth %d, %d nodes)",
		res.Move.ShortDescription(), res.Score, res.Depth, res.Nodes))
	for i, m := range res.PV {
		sc.showMessage(fmt.Sprintf("  %d: %s", i+1, m.ShortDescription()))
	}
	return nil
}

// play confirms a move: an index from `moves`, a move string, or nothing to
// accept the last recommendation.
func (sc *ShellController) play(args []string) error {
	b, err := sc.liveBoard()
	if err != nil {
		return err
	}
	var m move.Move
	switch {
	case len(args) == 0:
		if sc.lastRec == nil || sc.lastRec.Move == nil {
			return errors.New("nothing recommended yet; run `best` first")
		}
		m = *sc.lastRec.Move
	case len(args) == 1:
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad move index %q", args[0])
		}
		legal := movegen.GenAll(&b)
		if idx < 1 || idx > len(legal) {
			return fmt.Errorf("move index %d out of range", idx)
		}
		m = legal[idx-1]
	default:
		m, err = move.ParseMove(strings.Join(args, " "))
		if err != nil {
			return err
		}
	}
	outcome, err := sc.controller.Confirm(m)
	if err != nil {
		return err
	}
	sc.lastRec = nil
	sc.afterAdvance(outcome)
	return nil
}

func (sc *ShellController) afterAdvance(outcome game.Outcome) {
	switch outcome {
	case game.Win:
		sc.showMessage("you won!")
	case game.Exhausted:
		g := sc.controller.Game()
		if g.Outcome == game.Exhausted {
			sc.showMessage("no moves left and no reshuffles remain; run `perfect` for the post-mortem")
		} else {
			sc.showMessage("phase exhausted; deal the reshuffle and enter it with `reshuffle`")
		}
	default:
		b := sc.controller.Board()
		sc.showMessage(b.ToDisplayText())
	}
}

func (sc *ShellController) auto() error {
	if _, err := sc.liveBoard(); err != nil {
		return err
	}
	phase, err := sc.controller.RunPhase(context.Background(), sc.params)
	if err != nil {
		return err
	}
	for i, st := range phase.Steps {
		sc.showMessage(fmt.Sprintf("%d: %s", i+1, st.Move.ShortDescription()))
	}
	sc.showMessage(phase.Final.ToDisplayText())
	sc.showMessage("phase " + phase.Outcome.String())
	return nil
}

func (sc *ShellController) reshuffle(args []string) error {
	b, err := board.Parse(args)
	if err != nil {
		return err
	}
	if err := sc.controller.SubmitReshuffle(b); err != nil {
		return err
	}
	sc.lastRec = nil
	sc.showMessage(b.ToDisplayText())
	return nil
}

func (sc *ShellController) perfect() error {
	g := sc.controller.Game()
	if g == nil || g.Phases() == 0 {
		return errors.New("no finished phases to analyze")
	}
	layouts := optimizer.RecordedFromGame(g)
	res, err := sc.optim.Perfect(context.Background(), layouts, sc.params)
	if err != nil {
		return err
	}
	for i, ph := range res.Phases {
		sc.showMessage(fmt.Sprintf("phase %d (%s, value %.1f):", i+1, ph.Outcome, ph.Score))
		for j, m := range ph.Line {
			sc.showMessage(fmt.Sprintf("  %d: %s", j+1, m.ShortDescription()))
		}
	}
	sc.showMessage(sc.optim.Compare(g, res).String())
	return nil
}

func (sc *ShellController) save(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: save <path>")
	}
	g := sc.controller.Snapshot()
	if g == nil {
		return errors.New("nothing to save")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return gameio.Save(f, g)
}

// load restores a saved record for analysis (`perfect`), or to resume play
// if the record's last phase left moves on the table.
func (sc *ShellController) load(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <path>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	g, err := gameio.Load(f)
	if err != nil {
		return err
	}
	sc.controller = game.NewController(sc.solver)
	sc.controller.Restore(g)
	sc.lastRec = nil
	sc.showMessage(fmt.Sprintf("loaded game %s: %d phase(s), %s", g.ID, g.Phases(), g.Outcome))
	return nil
}

func (sc *ShellController) set(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set <option> <value>")
	}
	name, val := args[0], args[1]
	switch name {
	case "depth":
		d, err := strconv.Atoi(val)
		if err != nil || d < 1 {
			return fmt.Errorf("bad depth %q", val)
		}
		sc.params.MaxDepth = d
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("bad thread count %q", val)
		}
		sc.solver.SetThreads(n)
	case "topk":
		k, err := strconv.Atoi(val)
		if err != nil || k < 1 {
			return fmt.Errorf("bad top-k %q", val)
		}
		sc.optim.SetTopK(k)
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	sc.showMessage(fmt.Sprintf("set %s to %s", name, val))
	return nil
}
