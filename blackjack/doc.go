// Package blackjack provides the card model for the game: cards, a 52-card
// deck and the hand evaluator.
//
// # Basic Usage
//
//	deck := blackjack.NewShuffledDeck(randutil.New(42))
//	var hand blackjack.Hand
//	card, err := deck.Deal()
//	if err != nil {
//	    // deck exhausted
//	}
//	hand.AddCard(card)
//	total := hand.Value()
//
// # Deal Order
//
// Cards are dealt from the end of the deck's storage order. Snapshot and
// DeckFromSnapshot preserve that order, so a deck restored from a snapshot
// deals the same next card it would have dealt before it was saved.
//
// # Ace Reduction
//
// Hand.Value counts every ace as 11 and then reduces aces to 1 one at a time
// while the total exceeds 21, so A+A+9 is 21 rather than 31 or 11.
package blackjack
