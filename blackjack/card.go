package blackjack

import (
	"fmt"
)

// Suit of a playing card.
type Suit uint8

// Suit constants, in canonical deck order
const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades"}
var suitSymbols = [...]string{"♥", "♦", "♣", "♠"}

// String returns the suit name, e.g. "Spades"
func (s Suit) String() string {
	if int(s) >= len(suitNames) {
		return "?"
	}
	return suitNames[s]
}

// Symbol returns the unicode suit glyph
func (s Suit) Symbol() string {
	if int(s) >= len(suitSymbols) {
		return "?"
	}
	return suitSymbols[s]
}

// IsRed reports whether the suit is printed in red
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank of a playing card (Two through Ace)
type Rank uint8

// Rank constants
const (
	Two Rank = iota
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
	Ace
)

var rankNames = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// String returns the rank token, e.g. "10" or "K"
func (r Rank) String() string {
	if int(r) >= len(rankNames) {
		return "?"
	}
	return rankNames[r]
}

// Suits and Ranks list every suit and rank in canonical order.
var (
	Suits = []Suit{Hearts, Diamonds, Clubs, Spades}
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

// Card is an immutable playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a card from rank and suit
func NewCard(rank Rank, suit Suit) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value returns the nominal blackjack value of the card.
// Aces count 11 here; Hand.Value reduces them when needed.
func (c Card) Value() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Ten:
		return 10
	default:
		return int(c.Rank) + 2
	}
}

// IsAce reports whether the card is an ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// String returns the long form, e.g. "A of Spades"
func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Short returns the compact form, e.g. "A♠"
func (c Card) Short() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// ParseSuit parses a suit name such as "Hearts"
func ParseSuit(s string) (Suit, error) {
	for i, name := range suitNames {
		if name == s {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("invalid suit: %q", s)
}

// ParseRank parses a rank token such as "10" or "Q"
func ParseRank(s string) (Rank, error) {
	for i, name := range rankNames {
		if name == s {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("invalid rank: %q", s)
}
