package game

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/blackjack/blackjack"
)

// DealerStandsOn is the total at which the dealer stops drawing. Soft and
// hard totals are treated alike.
const DealerStandsOn = 17

// State of a round
type State string

const (
	StateBetting    State = "betting"
	StateDealt      State = "dealt"
	StatePlayerTurn State = "player_turn"
	StateDealerTurn State = "dealer_turn"
	StateSettled    State = "settled"
	StateSaved      State = "saved"
)

// engine carries the collaborators shared by every round.
type engine struct {
	store   Store
	clock   quartz.Clock
	newDeck func() *blackjack.Deck
	sink    EventSink
	logger  *log.Logger
}

// Round runs one bet, deal, player turn, dealer turn and settle cycle.
//
// A Round must be discarded after any persistence error; the stored snapshot
// still reflects the last committed suspend point.
type Round struct {
	eng      *engine
	session  *Session
	settings Settings
	number   int
	state    State
	bet      int64
	deck     *blackjack.Deck
	player   blackjack.Hand
	dealer   blackjack.Hand
	outcome  *RoundRecord
	logger   *log.Logger
}

func (e *engine) newRound(s *Session, settings Settings) *Round {
	r := &Round{
		eng:      e,
		session:  s,
		settings: settings,
		number:   s.NextRound(),
		state:    StateBetting,
	}
	r.logger = e.logger.With("session", s.ID, "round", r.number)
	return r
}

// start announces the round as open for betting
func (r *Round) start() {
	r.eng.sink.Publish(RoundStartedEvent{
		SessionID:   r.session.ID,
		RoundNumber: r.number,
		Money:       r.session.CurrentMoney,
		timestamp:   r.eng.clock.Now(),
	})
}

// resumeRound rebuilds a round suspended during the player's turn.
func (e *engine) resumeRound(s *Session, settings Settings, gs *GameState) (*Round, error) {
	if gs.Phase != PhasePlayerTurn {
		return nil, fmt.Errorf("resume: snapshot phase is %s", gs.Phase)
	}
	if gs.RoundNumber != s.NextRound() {
		return nil, fmt.Errorf("resume: snapshot is round %d but session is on round %d", gs.RoundNumber, s.NextRound())
	}

	player, err := blackjack.HandFromSnapshot(gs.PlayerHand)
	if err != nil {
		return nil, fmt.Errorf("resume player hand: %w", err)
	}
	dealer, err := blackjack.HandFromSnapshot(gs.DealerHand)
	if err != nil {
		return nil, fmt.Errorf("resume dealer hand: %w", err)
	}
	deck, err := blackjack.DeckFromSnapshot(gs.Deck, nil)
	if err != nil {
		return nil, fmt.Errorf("resume deck: %w", err)
	}
	if err := checkDisjoint(player, dealer, deck); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}

	r := &Round{
		eng:      e,
		session:  s,
		settings: settings,
		number:   gs.RoundNumber,
		state:    StatePlayerTurn,
		bet:      gs.Bet,
		deck:     deck,
		player:   player,
		dealer:   dealer,
	}
	r.logger = e.logger.With("session", s.ID, "round", r.number)
	r.logger.Debug("Resumed round", "player", player.String(), "remaining", deck.Remaining())
	return r, nil
}

func checkDisjoint(player, dealer blackjack.Hand, deck *blackjack.Deck) error {
	seen := make(map[blackjack.Card]bool, blackjack.DeckSize)
	all := append(append(player.Cards(), dealer.Cards()...), deck.Cards()...)
	for _, c := range all {
		if seen[c] {
			return fmt.Errorf("card %s appears twice", c)
		}
		seen[c] = true
	}
	return nil
}

// State returns the current state of the round
func (r *Round) State() State { return r.state }

// Number returns the round number within the session
func (r *Round) Number() int { return r.number }

// Outcome returns the settled record, or nil before settlement
func (r *Round) Outcome() *RoundRecord { return r.outcome }

// PlaceBet validates the bet, deals a fresh shuffled deck and persists the
// player-turn snapshot. A two-card 21 settles immediately.
func (r *Round) PlaceBet(ctx context.Context, bet int64) error {
	if err := r.require(StateBetting); err != nil {
		return err
	}
	if err := r.validateBet(bet); err != nil {
		return err
	}

	deck := r.eng.newDeck()
	var player, dealer blackjack.Hand
	for i := range 4 {
		c, err := deck.Deal()
		if err != nil {
			return fmt.Errorf("deal: %w", err)
		}
		if i%2 == 0 {
			player.AddCard(c)
		} else {
			dealer.AddCard(c)
		}
	}

	r.bet, r.deck, r.player, r.dealer = bet, deck, player, dealer
	r.state = StateDealt
	if err := r.persist(ctx, PhasePlayerTurn); err != nil {
		return err
	}

	r.logger.Debug("Dealt", "bet", bet, "player", r.player.String(), "upcard", r.dealer.Cards()[0].Short())
	r.eng.sink.Publish(CardsDealtEvent{View: r.View(), timestamp: r.eng.clock.Now()})

	if r.player.IsBlackjack() {
		return r.settle(ctx, ResultBlackjack, r.settings.BlackjackWinnings(r.bet))
	}
	r.state = StatePlayerTurn
	return nil
}

func (r *Round) validateBet(bet int64) error {
	money := r.session.CurrentMoney
	minBet := min(r.settings.MinBet, money)
	switch {
	case bet <= 0:
		return invalidf(ErrInvalidBet, "bet must be positive, got %d", bet)
	case bet > money:
		return invalidf(ErrInvalidBet, "bet %d exceeds balance %d", bet, money)
	case bet < minBet:
		return invalidf(ErrInvalidBet, "minimum bet is %d", minBet)
	}
	return nil
}

// Hit deals one card to the player. A bust settles the round and a total of
// 21 moves straight to the dealer's turn.
func (r *Round) Hit(ctx context.Context) error {
	if err := r.require(StatePlayerTurn); err != nil {
		return err
	}

	c, err := r.deck.Deal()
	if err != nil {
		return fmt.Errorf("hit: %w", err)
	}
	r.player.AddCard(c)
	if err := r.persist(ctx, PhasePlayerTurn); err != nil {
		return err
	}
	r.eng.sink.Publish(PlayerHitEvent{Card: c.Data(), View: r.View(), timestamp: r.eng.clock.Now()})

	switch v := r.player.Value(); {
	case v > blackjack.Blackjack:
		return r.settle(ctx, ResultBust, -r.bet)
	case v == blackjack.Blackjack:
		return r.dealerTurn(ctx)
	}
	return nil
}

// Stand ends the player's turn
func (r *Round) Stand(ctx context.Context) error {
	if err := r.require(StatePlayerTurn); err != nil {
		return err
	}
	return r.dealerTurn(ctx)
}

// Save writes the round's snapshot and closes it. From betting the snapshot
// carries no bet and no cards.
func (r *Round) Save(ctx context.Context) error {
	var phase Phase
	switch r.state {
	case StateBetting:
		phase = PhaseBetting
		gs := &GameState{
			SessionID:   r.session.ID,
			RoundNumber: r.number,
			PlayerHand:  []blackjack.CardData{},
			DealerHand:  []blackjack.CardData{},
			Deck:        blackjack.NewDeck(nil).Snapshot(),
			Phase:       PhaseBetting,
			SavedAt:     r.eng.clock.Now().UTC(),
		}
		if err := r.eng.store.SaveGameState(ctx, gs); err != nil {
			return fmt.Errorf("save game state: %w", err)
		}
	case StatePlayerTurn:
		phase = PhasePlayerTurn
		if err := r.persist(ctx, PhasePlayerTurn); err != nil {
			return err
		}
	default:
		return r.require(StatePlayerTurn)
	}

	r.state = StateSaved
	r.logger.Info("Round saved", "phase", phase)
	r.eng.sink.Publish(RoundSavedEvent{
		SessionID:   r.session.ID,
		RoundNumber: r.number,
		Phase:       phase,
		timestamp:   r.eng.clock.Now(),
	})
	return nil
}

// finishInterrupted completes a resumed round whose snapshot was written just
// before an automatic transition.
func (r *Round) finishInterrupted(ctx context.Context) error {
	switch {
	case r.player.IsBlackjack():
		return r.settle(ctx, ResultBlackjack, r.settings.BlackjackWinnings(r.bet))
	case r.player.IsBust():
		return r.settle(ctx, ResultBust, -r.bet)
	case r.player.Value() == blackjack.Blackjack:
		return r.dealerTurn(ctx)
	}
	return nil
}

func (r *Round) dealerTurn(ctx context.Context) error {
	r.state = StateDealerTurn
	for r.dealer.Value() < DealerStandsOn {
		c, err := r.deck.Deal()
		if err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
		r.dealer.AddCard(c)
		r.eng.sink.Publish(DealerDrewEvent{Card: c.Data(), View: r.View(), timestamp: r.eng.clock.Now()})
	}

	player, dealer := r.player.Value(), r.dealer.Value()
	switch {
	case dealer > blackjack.Blackjack:
		return r.settle(ctx, ResultWin, r.bet)
	case player > dealer:
		return r.settle(ctx, ResultWin, r.bet)
	case player < dealer:
		return r.settle(ctx, ResultLoss, -r.bet)
	default:
		return r.settle(ctx, ResultPush, 0)
	}
}

// settle appends the round record, clears the save slot and updates the
// session totals in one atomic unit.
func (r *Round) settle(ctx context.Context, result Result, winnings int64) error {
	rec := &RoundRecord{
		ID:           uuid.NewString(),
		SessionID:    r.session.ID,
		RoundNumber:  r.number,
		Bet:          r.bet,
		PlayerHand:   r.player.Snapshot(),
		DealerHand:   r.dealer.Snapshot(),
		PlayerScore:  r.player.Value(),
		DealerScore:  r.dealer.Value(),
		Result:       result,
		Winnings:     winnings,
		BalanceAfter: r.session.CurrentMoney + winnings,
		PlayedAt:     r.eng.clock.Now().UTC(),
	}
	rounds := r.session.RoundsCompleted + 1

	err := r.eng.store.Atomic(ctx, func(tx Store) error {
		if err := tx.SaveRoundResult(ctx, rec); err != nil {
			return fmt.Errorf("save round result: %w", err)
		}
		if err := tx.DeleteGameState(ctx, r.session.ID); err != nil {
			return fmt.Errorf("delete game state: %w", err)
		}
		if err := tx.UpdateSession(ctx, r.session.ID, rec.BalanceAfter, rounds); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("settle round %d: %w", r.number, err)
	}

	r.session.CurrentMoney = rec.BalanceAfter
	r.session.RoundsCompleted = rounds
	r.state = StateSettled
	r.outcome = rec

	r.logger.Info("Round settled", "result", result, "winnings", winnings, "balance", rec.BalanceAfter)
	r.eng.sink.Publish(RoundSettledEvent{Outcome: *rec, timestamp: r.eng.clock.Now()})
	return nil
}

func (r *Round) persist(ctx context.Context, phase Phase) error {
	gs := &GameState{
		SessionID:   r.session.ID,
		RoundNumber: r.number,
		PlayerHand:  r.player.Snapshot(),
		DealerHand:  r.dealer.Snapshot(),
		Deck:        r.deck.Snapshot(),
		Bet:         r.bet,
		Phase:       phase,
		SavedAt:     r.eng.clock.Now().UTC(),
	}
	if err := r.eng.store.SaveGameState(ctx, gs); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

func (r *Round) require(want State) error {
	switch r.state {
	case want:
		return nil
	case StateSettled:
		return ErrRoundSettled
	case StateSaved:
		return ErrRoundClosed
	default:
		return invalidf(ErrInvalidAction, "round is in %s, not %s", r.state, want)
	}
}

// View returns the round as the player sees it
func (r *Round) View() RoundView {
	v := RoundView{
		SessionID:   r.session.ID,
		RoundNumber: r.number,
		State:       r.state,
		Bet:         r.bet,
		Money:       r.session.CurrentMoney,
		PlayerCards: r.player.Snapshot(),
		PlayerValue: r.player.Value(),
		PlayerSoft:  r.player.IsSoft(),
		DealerCards: r.dealer.Snapshot(),
		DealerValue: r.dealer.Value(),
	}
	if r.deck != nil {
		v.DeckRemaining = r.deck.Remaining()
	}

	switch r.state {
	case StateDealt, StatePlayerTurn, StateSaved:
		if r.dealer.Len() > 1 {
			up := r.dealer.Cards()[0]
			v.DealerCards = []blackjack.CardData{up.Data()}
			v.DealerValue = up.Value()
			v.DealerHidden = true
		}
	}
	return v
}
