package blackjack

import "strings"

// Blackjack is the target total
const Blackjack = 21

// Hand is the ordered set of cards held by the player or the dealer for one round.
type Hand struct {
	cards []Card
}

// NewHand creates a hand from the given cards
func NewHand(cards ...Card) Hand {
	h := Hand{cards: make([]Card, 0, len(cards)+2)}
	h.cards = append(h.cards, cards...)
	return h
}

// HandFromSnapshot rebuilds a hand from stored cards
func HandFromSnapshot(data []CardData) (Hand, error) {
	cards, err := cardsFromData(data)
	if err != nil {
		return Hand{}, err
	}
	return Hand{cards: cards}, nil
}

// AddCard appends a card to the hand
func (h *Hand) AddCard(c Card) {
	h.cards = append(h.cards, c)
}

// Cards returns a copy of the cards in deal order
func (h Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards in the hand
func (h Hand) Len() int {
	return len(h.cards)
}

// Value returns the best total for the hand. Aces are reduced from 11 to 1
// one at a time, only while the total is over 21.
func (h Hand) Value() int {
	value, _ := h.evaluate()
	return value
}

// IsSoft reports whether an ace is still being counted as 11
func (h Hand) IsSoft() bool {
	_, softAces := h.evaluate()
	return softAces > 0
}

func (h Hand) evaluate() (value, softAces int) {
	for _, c := range h.cards {
		value += c.Value()
		if c.IsAce() {
			softAces++
		}
	}
	for value > Blackjack && softAces > 0 {
		value -= 10
		softAces--
	}
	return value, softAces
}

// IsBust reports whether the hand is over 21
func (h Hand) IsBust() bool {
	return h.Value() > Blackjack
}

// IsBlackjack reports a two-card 21
func (h Hand) IsBlackjack() bool {
	return len(h.cards) == 2 && h.Value() == Blackjack
}

// Snapshot returns the storage form of the hand
func (h Hand) Snapshot() []CardData {
	return cardsToData(h.cards)
}

// String returns the cards in short form separated by spaces
func (h Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, c := range h.cards {
		parts[i] = c.Short()
	}
	return strings.Join(parts, " ")
}
