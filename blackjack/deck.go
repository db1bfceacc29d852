package blackjack

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when dealing from an empty deck.
var ErrDeckExhausted = errors.New("blackjack: deck exhausted")

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// Deck is an ordered stack of unique cards. Cards are dealt from the end.
type Deck struct {
	cards []Card
	rng   *rand.Rand // Random source for deterministic shuffling
}

// NewDeck creates a full 52-card deck in canonical order (not shuffled)
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, DeckSize),
		rng:   rng,
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	return d
}

// NewShuffledDeck creates a full deck and shuffles it
func NewShuffledDeck(rng *rand.Rand) *Deck {
	d := NewDeck(rng)
	d.Shuffle()
	return d
}

// DeckFromSnapshot rebuilds a deck from stored cards, preserving deal order.
func DeckFromSnapshot(data []CardData, rng *rand.Rand) (*Deck, error) {
	cards, err := cardsFromData(data)
	if err != nil {
		return nil, err
	}
	return &Deck{cards: cards, rng: rng}, nil
}

// Shuffle shuffles the remaining cards using Fisher-Yates
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card (the last in storage order)
func (d *Deck) Deal() (Card, error) {
	n := len(d.cards)
	if n == 0 {
		return Card{}, ErrDeckExhausted
	}
	card := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in storage order
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Snapshot returns the storage form of the remaining cards
func (d *Deck) Snapshot() []CardData {
	return cardsToData(d.cards)
}
