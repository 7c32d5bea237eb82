// Package move holds the move representation shared by the move generator,
// the search engine, and the game record.
package move

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/domino14/gapper/card"
)

const (
	Rows = 4
	Cols = 13
)

// Pos is a row-major cell index on the 4x13 board (0..51).
type Pos uint8

func MakePos(row, col int) Pos {
	return Pos(row*Cols + col)
}

func (p Pos) Row() int { return int(p) / Cols }
func (p Pos) Col() int { return int(p) % Cols }

// String renders a position the way the shell displays it, 1-indexed,
// e.g. R2C5.
func (p Pos) String() string {
	return fmt.Sprintf("R%dC%d", p.Row()+1, p.Col()+1)
}

// ParsePos reads a position token of the form R2C5.
func ParsePos(tok string) (Pos, error) {
	t := strings.ToUpper(tok)
	if len(t) < 4 || t[0] != 'R' {
		return 0, fmt.Errorf("bad position %q", tok)
	}
	ci := strings.IndexByte(t, 'C')
	if ci < 2 {
		return 0, fmt.Errorf("bad position %q", tok)
	}
	row, err := strconv.Atoi(t[1:ci])
	if err != nil {
		return 0, fmt.Errorf("bad position %q", tok)
	}
	col, err := strconv.Atoi(t[ci+1:])
	if err != nil {
		return 0, fmt.Errorf("bad position %q", tok)
	}
	if row < 1 || row > Rows || col < 1 || col > Cols {
		return 0, fmt.Errorf("position %q off the board", tok)
	}
	return MakePos(row-1, col-1), nil
}

// Move relocates a card from its current cell into a gap.
type Move struct {
	Card card.Card
	From Pos
	To   Pos
}

func (m Move) String() string {
	return fmt.Sprintf("%s %s>%s", m.Card, m.From, m.To)
}

// ShortDescription is the compact form shown in recommendations.
func (m Move) ShortDescription() string {
	return fmt.Sprintf("%s -> %s", m.Card, m.To)
}

// ParseMove reads the String form, e.g. "TH R2C9>R1C9".
func ParseMove(s string) (Move, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	c, err := card.Parse(parts[0])
	if err != nil {
		return Move{}, err
	}
	fromTo := strings.Split(parts[1], ">")
	if len(fromTo) != 2 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	from, err := ParsePos(fromTo[0])
	if err != nil {
		return Move{}, err
	}
	to, err := ParsePos(fromTo[1])
	if err != nil {
		return Move{}, err
	}
	return Move{Card: c, From: from, To: to}, nil
}

func (m Move) Equals(o Move) bool {
	return m.Card == o.Card && m.From == o.From && m.To == o.To
}

// TinyMove is a 16-bit packed move, made to be as small as possible to fit
// in a transposition table entry. The card is recoverable from the source
// cell, so only the two cell indices are stored.
//
// Schema: bits 0-5 destination, bits 6-11 source, bit 15 set = invalid.
type TinyMove uint16

const InvalidTinyMove TinyMove = 1 << 15

const posBits = 6
const posMask = (1 << posBits) - 1

func (m Move) Tiny() TinyMove {
	return TinyMove(uint16(m.To)&posMask | (uint16(m.From)&posMask)<<posBits)
}

func (t TinyMove) Valid() bool {
	return t&InvalidTinyMove == 0
}

// FromTo unpacks the cell indices. Only meaningful if t.Valid().
func (t TinyMove) FromTo() (Pos, Pos) {
	return Pos(t >> posBits & posMask), Pos(t & posMask)
}
