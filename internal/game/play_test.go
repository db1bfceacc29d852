package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayRepromptsOnInvalidInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	store.d.settings[SettingTournamentRounds] = "1"
	svc, _ := newTestService(t, store, stackedDecks(t, winningDeck()))

	sess, err := svc.StartTournament(ctx, "alice")
	require.NoError(t, err)

	p := &scriptPrompter{answers: []string{"lots", "5000", "$100", "double", "s"}}
	res, err := svc.Play(ctx, "alice", sess.ID, p)
	require.NoError(t, err)

	require.Len(t, p.prompts, 5)
	assert.Equal(t, PromptBet, p.prompts[0].Kind)
	assert.NoError(t, p.prompts[0].Err)
	assert.ErrorIs(t, p.prompts[1].Err, ErrInvalidBet)
	assert.ErrorIs(t, p.prompts[2].Err, ErrInvalidBet)
	assert.Equal(t, PromptAction, p.prompts[3].Kind)
	assert.ErrorIs(t, p.prompts[4].Err, ErrInvalidAction)
	assert.True(t, p.prompts[3].Round.DealerHidden)

	assert.False(t, res.Paused)
	require.NotNil(t, res.Completion)
	assert.Equal(t, ReasonRoundsComplete, res.Completion.Reason)
	assert.Equal(t, int64(1100), res.Session.CurrentMoney)
}

func TestPlaySaveAtPlayerTurnThenResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, stackedDecks(t,
		cards(card(Ten, Hearts), card(Six, Clubs), card(Two, Diamonds), card(Ten, Clubs), card(Five, Spades), card(Nine, Diamonds)),
	))

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	first := &scriptPrompter{answers: []string{"100", "save"}}
	res, err := svc.Play(ctx, "alice", sess.ID, first)
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.Equal(t, 0, res.Session.RoundsCompleted)
	assert.Equal(t, PhasePlayerTurn, store.snapshot().states[sess.ID].Phase)
	savedView := first.prompts[1].Round

	second := &scriptPrompter{answers: []string{"h", "s", "n"}}
	res, err = svc.Play(ctx, "alice", sess.ID, second)
	require.NoError(t, err)

	require.Equal(t, PromptAction, second.prompts[0].Kind, "resume must skip the bet prompt")
	assert.Equal(t, savedView.PlayerCards, second.prompts[0].Round.PlayerCards)
	assert.Equal(t, savedView.DealerCards, second.prompts[0].Round.DealerCards)
	assert.Equal(t, PromptContinue, second.prompts[2].Kind)

	require.NotNil(t, res.Completion)
	assert.Equal(t, ReasonQuit, res.Completion.Reason)
	require.NotNil(t, res.Completion.Entry)
	assert.Equal(t, int64(1100), res.Completion.Entry.FinalMoney)
	assert.Equal(t, 1, res.Completion.Entry.RoundsCompleted)
}

func TestPlaySaveAtBetPrompt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, nil)

	sess, err := svc.StartTournament(ctx, "alice")
	require.NoError(t, err)

	res, err := svc.Play(ctx, "alice", sess.ID, &scriptPrompter{answers: []string{"SAVE"}})
	require.NoError(t, err)
	assert.True(t, res.Paused)

	gs := store.snapshot().states[sess.ID]
	assert.Equal(t, PhaseBetting, gs.Phase)
	assert.Equal(t, 1, gs.RoundNumber)
	assert.Equal(t, int64(1000), store.snapshot().sessions[sess.ID].CurrentMoney)
}

func TestPlayInterruptedSaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, stackedDecks(t, winningDeck()))

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	// the script runs out at the action prompt
	res, err := svc.Play(ctx, "alice", sess.ID, &scriptPrompter{answers: []string{"100"}})
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.Equal(t, PhasePlayerTurn, store.snapshot().states[sess.ID].Phase)
}

func TestPlayInterruptedAtContinueStaysResumable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, stackedDecks(t, winningDeck()))

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	res, err := svc.Play(ctx, "alice", sess.ID, &scriptPrompter{answers: []string{"100", "stand"}})
	require.NoError(t, err)
	assert.True(t, res.Paused)

	gs := store.snapshot().states[sess.ID]
	assert.Equal(t, PhaseBetting, gs.Phase)
	assert.Equal(t, 2, gs.RoundNumber)

	_, err = svc.ResumeActiveSession(ctx, "alice")
	require.NoError(t, err)
}

func TestPlayBrokeFreeplayEndsWithoutPrompting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, stackedDecks(t, losingDeck()))

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	p := &scriptPrompter{answers: []string{"1000", "s"}}
	res, err := svc.Play(ctx, "alice", sess.ID, p)
	require.NoError(t, err)
	assert.Len(t, p.prompts, 2)
	require.NotNil(t, res.Completion)
	assert.Equal(t, ReasonBroke, res.Completion.Reason)
	assert.Nil(t, res.Completion.Entry)
}

type failingPrompter struct{ err error }

func (f failingPrompter) Prompt(context.Context, Prompt) (string, error) { return "", f.err }

func TestPlayPropagatesPrompterFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(t, store, nil)

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	broken := errors.New("terminal gone")
	_, err = svc.Play(ctx, "alice", sess.ID, failingPrompter{err: broken})
	assert.ErrorIs(t, err, broken)
	assert.Empty(t, store.snapshot().states)
}

func TestPlayCancelledContextSaves(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc, _ := newTestService(t, store, nil)

	sess, err := svc.StartFreeplay(context.Background(), "alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Play(ctx, "alice", sess.ID, failingPrompter{err: context.Canceled})
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.Equal(t, PhaseBetting, store.snapshot().states[sess.ID].Phase)
}
