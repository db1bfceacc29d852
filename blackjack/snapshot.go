package blackjack

import "fmt"

// CardData is the wire/storage form of a card.
type CardData struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// Data converts the card to its storage form
func (c Card) Data() CardData {
	return CardData{Suit: c.Suit.String(), Rank: c.Rank.String()}
}

// Card converts stored data back into a Card
func (d CardData) Card() (Card, error) {
	suit, err := ParseSuit(d.Suit)
	if err != nil {
		return Card{}, err
	}
	rank, err := ParseRank(d.Rank)
	if err != nil {
		return Card{}, err
	}
	return NewCard(rank, suit), nil
}

func cardsToData(cards []Card) []CardData {
	out := make([]CardData, len(cards))
	for i, c := range cards {
		out[i] = c.Data()
	}
	return out
}

func cardsFromData(data []CardData) ([]Card, error) {
	cards := make([]Card, len(data))
	seen := make(map[Card]bool, len(data))
	for i, d := range data {
		c, err := d.Card()
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		if seen[c] {
			return nil, fmt.Errorf("card %d: duplicate %s", i, c)
		}
		seen[c] = true
		cards[i] = c
	}
	return cards, nil
}
