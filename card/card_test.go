package card

import (
	"testing"

	"github.com/matryer/is"
)

func TestEncoding(t *testing.T) {
	is := is.New(t)
	for _, c := range Deck() {
		is.Equal(New(c.Rank(), c.Suit()), c)
	}
	is.Equal(len(Deck()), 48)
}

func TestParse(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		tok  string
		rank Rank
		suit Suit
	}{
		{"2C", Two, Clubs},
		{"7h", Seven, Hearts},
		{"TD", Ten, Diamonds},
		{"JS", Jack, Spades},
		{"QC", Queen, Clubs},
		{"kd", King, Diamonds},
	}
	for _, tc := range cases {
		c, err := Parse(tc.tok)
		is.NoErr(err)
		is.Equal(c.Rank(), tc.rank)
		is.Equal(c.Suit(), tc.suit)
	}
	for _, bad := range []string{"", "7", "1H", "AH", "7X", "10H"} {
		_, err := Parse(bad)
		is.True(err != nil)
	}
}

func TestSuccessor(t *testing.T) {
	is := is.New(t)
	c, ok := New(Seven, Hearts).Successor()
	is.True(ok)
	is.Equal(c, New(Eight, Hearts))

	_, ok = New(King, Spades).Successor()
	is.True(!ok)
}

func TestString(t *testing.T) {
	is := is.New(t)
	is.Equal(New(Ten, Diamonds).String(), "TD")
	is.Equal(New(Two, Clubs).String(), "2C")
	is.Equal(New(King, Spades).String(), "KS")
}
