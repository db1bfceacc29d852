package game

import (
	"context"
	"errors"
)

// PromptKind identifies which answer a prompt expects
type PromptKind string

const (
	PromptBet      PromptKind = "bet"
	PromptAction   PromptKind = "action"
	PromptContinue PromptKind = "continue"
)

// Prompt is one suspension point in interactive play.
type Prompt struct {
	Kind    PromptKind
	Session Session
	Round   *RoundView // nil at the continue prompt
	MinBet  int64
	Err     error // why the previous answer was rejected
}

// Prompter asks the player for input. Implementations return ErrInterrupted
// when input is closed.
type Prompter interface {
	Prompt(ctx context.Context, p Prompt) (string, error)
}

// PlayResult is how an interactive run ended: paused with a save, or with the
// session complete.
type PlayResult struct {
	Session    Session
	Paused     bool
	Completion *Completion
}

// Play drives the session interactively until it is saved or completes. A
// suspended round is picked up where it left off. Cancelling ctx or closing
// input at a prompt saves before returning.
func (s *Service) Play(ctx context.Context, userID, sessionID string, p Prompter) (*PlayResult, error) {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	sess, err := s.Session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, ErrSessionCompleted
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.pendingRound(ctx, sess, settings)
	if err != nil {
		return nil, err
	}
	if r == nil {
		if res, err := s.completeIfDone(ctx, sess); err != nil || res != nil {
			return res, err
		}
	}

	for {
		if r == nil {
			if settings, err = s.Settings(ctx); err != nil {
				return nil, err
			}
			r = s.eng.newRound(sess, settings)
			r.start()
			paused, err := s.takeBet(ctx, r, p)
			if err != nil {
				return nil, err
			}
			if paused {
				return &PlayResult{Session: *sess, Paused: true}, nil
			}
		}

		if r.State() == StatePlayerTurn {
			paused, err := s.playerTurn(ctx, r, p)
			if err != nil {
				return nil, err
			}
			if paused {
				return &PlayResult{Session: *sess, Paused: true}, nil
			}
		}

		if res, err := s.completeIfDone(ctx, sess); err != nil || res != nil {
			return res, err
		}
		r = nil

		if sess.Mode != ModeFreeplay {
			continue
		}
		again, err := s.askContinue(ctx, sess, p)
		if err != nil {
			if !interrupted(ctx, err) {
				return nil, err
			}
			// keep the session resumable from the next bet prompt
			if err := s.eng.newRound(sess, settings).Save(context.WithoutCancel(ctx)); err != nil {
				return nil, err
			}
			return &PlayResult{Session: *sess, Paused: true}, nil
		}
		if !again {
			c, err := s.finish(ctx, sess, ReasonQuit, true)
			if err != nil {
				return nil, err
			}
			return &PlayResult{Session: *sess, Completion: c}, nil
		}
	}
}

// completeIfDone finishes sess when it has reached a terminal state.
func (s *Service) completeIfDone(ctx context.Context, sess *Session) (*PlayResult, error) {
	c, err := s.terminal(ctx, sess)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return &PlayResult{Session: *sess, Completion: c}, nil
}

func (s *Service) takeBet(ctx context.Context, r *Round, p Prompter) (bool, error) {
	var lastErr error
	for {
		v := r.View()
		in, err := p.Prompt(ctx, Prompt{
			Kind:    PromptBet,
			Session: *r.session,
			Round:   &v,
			MinBet:  min(r.settings.MinBet, r.session.CurrentMoney),
			Err:     lastErr,
		})
		if err != nil {
			return s.pauseOn(ctx, r, err)
		}
		if IsSave(in) {
			return true, r.Save(ctx)
		}

		bet, err := ParseBet(in)
		if err == nil {
			err = r.PlaceBet(ctx, bet)
		}
		if err != nil && Classify(err) == KindValidation {
			lastErr = err
			continue
		}
		return false, err
	}
}

func (s *Service) playerTurn(ctx context.Context, r *Round, p Prompter) (bool, error) {
	var lastErr error
	for r.State() == StatePlayerTurn {
		v := r.View()
		in, err := p.Prompt(ctx, Prompt{Kind: PromptAction, Session: *r.session, Round: &v, Err: lastErr})
		if err != nil {
			return s.pauseOn(ctx, r, err)
		}

		action, err := ParseAction(in)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil

		switch action {
		case ActionHit:
			err = r.Hit(ctx)
		case ActionStand:
			err = r.Stand(ctx)
		case ActionSave:
			return true, r.Save(ctx)
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *Service) askContinue(ctx context.Context, sess *Session, p Prompter) (bool, error) {
	var lastErr error
	for {
		in, err := p.Prompt(ctx, Prompt{Kind: PromptContinue, Session: *sess, Err: lastErr})
		if err != nil {
			return false, err
		}
		again, err := ParseYesNo(in)
		if err != nil {
			lastErr = err
			continue
		}
		return again, nil
	}
}

// pauseOn saves r when a prompt was interrupted and otherwise returns err.
func (s *Service) pauseOn(ctx context.Context, r *Round, err error) (bool, error) {
	if !interrupted(ctx, err) {
		return false, err
	}
	s.logger.Info("Play interrupted, saving", "session", r.session.ID, "round", r.number)
	return true, r.Save(context.WithoutCancel(ctx))
}

func interrupted(ctx context.Context, err error) bool {
	return errors.Is(err, ErrInterrupted) || ctx.Err() != nil
}
