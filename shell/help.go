package shell

import "io"

const usageText = `commands:
setboard <52 tokens> - start a game from a dealt layout; -- marks a gap,
    cards are rank then suit (7H, TD, KS), row by row
show (s) - display the current board
moves - list the legal moves
best [depth] - recommend a move
play [n | move] - confirm the move you made: a number from moves, a full
    move string, or nothing to accept the last recommendation
auto - play the rest of the phase, confirming every recommendation
reshuffle <52 tokens> - enter the layout after a physical reshuffle
perfect - run the perfect-information pass over the recorded game
save <path> / load <path> - persist or restore the game record
set <depth|threads|topk> <value>
exit
`

func usage(w io.Writer) {
	io.WriteString(w, usageText)
}
