// Package card defines the playing cards used in Gaps solitaire. Aces are
// removed before the deal, so the deck holds 48 cards, ranks 2 through King.
package card

import (
	"errors"
	"fmt"
)

type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const NumSuits = 4

var suitRunes = [NumSuits]byte{'C', 'D', 'H', 'S'}

func (s Suit) String() string {
	if s >= NumSuits {
		return "?"
	}
	return string(suitRunes[s])
}

type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

const NumRanks = 12

var rankRunes = [NumRanks]byte{'2', '3', '4', '5', '6', '7', '8', '9', 'T', 'J', 'Q', 'K'}

func (r Rank) String() string {
	if r < Two || r > King {
		return "?"
	}
	return string(rankRunes[r-Two])
}

// Card is a compact card value; the zero value is the 2 of clubs.
// The encoding is suit-major so that c/NumRanks is the suit and
// c%NumRanks+2 is the rank.
type Card uint8

const NumCards = NumSuits * NumRanks // 48; aces are out of play

var ErrBadCard = errors.New("bad card")

func New(r Rank, s Suit) Card {
	return Card(uint8(s)*NumRanks + uint8(r) - 2)
}

func (c Card) Rank() Rank {
	return Rank(uint8(c)%NumRanks + 2)
}

func (c Card) Suit() Suit {
	return Suit(uint8(c) / NumRanks)
}

// Successor returns the next card of the same suit, e.g. 7H -> 8H.
// ok is false for Kings.
func (c Card) Successor() (Card, bool) {
	if c.Rank() == King {
		return 0, false
	}
	return c + 1, true
}

func (c Card) String() string {
	return c.Rank().String() + c.Suit().String()
}

// Parse reads a two-character card token such as 7H, TD or KS.
func Parse(tok string) (Card, error) {
	if len(tok) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadCard, tok)
	}
	var rank Rank
	switch tok[0] {
	case 'T', 't':
		rank = Ten
	case 'J', 'j':
		rank = Jack
	case 'Q', 'q':
		rank = Queen
	case 'K', 'k':
		rank = King
	default:
		if tok[0] < '2' || tok[0] > '9' {
			return 0, fmt.Errorf("%w: rank in %q", ErrBadCard, tok)
		}
		rank = Rank(tok[0] - '0')
	}
	var suit Suit
	switch tok[1] {
	case 'C', 'c':
		suit = Clubs
	case 'D', 'd':
		suit = Diamonds
	case 'H', 'h':
		suit = Hearts
	case 'S', 's':
		suit = Spades
	default:
		return 0, fmt.Errorf("%w: suit in %q", ErrBadCard, tok)
	}
	return New(rank, suit), nil
}

// Deck returns all 48 cards in encoding order.
func Deck() []Card {
	d := make([]Card, NumCards)
	for i := range d {
		d[i] = Card(i)
	}
	return d
}
