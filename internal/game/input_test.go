package game

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lox/blackjack/blackjack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  Action
		ok    bool
	}{
		{"h", ActionHit, true},
		{" HIT ", ActionHit, true},
		{"s", ActionStand, true},
		{"Stand", ActionStand, true},
		{"save", ActionSave, true},
		{"double", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBet(t *testing.T) {
	t.Parallel()
	bet, err := ParseBet(" $250 ")
	require.NoError(t, err)
	assert.Equal(t, int64(250), bet)

	for _, bad := range []string{"", "ten", "12.5", "$"} {
		_, err := ParseBet(bad)
		assert.ErrorIs(t, err, ErrInvalidBet, "input %q", bad)
	}

	assert.True(t, IsSave(" Save"))
	assert.False(t, IsSave("100"))
}

func TestParseYesNo(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]bool{"y": true, "YES": true, "n": false, "No": false} {
		got, err := ParseYesNo(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseYesNo("maybe")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want Kind
	}{
		{invalidf(ErrInvalidBet, "too big"), KindValidation},
		{ErrInvalidAction, KindValidation},
		{ErrNothingToResume, KindNotFound},
		{fmt.Errorf("get: %w", ErrSessionNotFound), KindNotFound},
		{ErrNoRoundInFlight, KindNotFound},
		{ErrRoundSettled, KindConflict},
		{ErrRoundClosed, KindConflict},
		{fmt.Errorf("%w: s1", ErrActiveSession), KindConflict},
		{ErrSessionCompleted, KindConflict},
		{fmt.Errorf("deal: %w", blackjack.ErrDeckExhausted), KindInternal},
		{errors.New("database is locked"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()

	s, err := LoadSettings(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings().StartingMoney, s.StartingMoney)
	assert.Equal(t, 10, s.TournamentRounds)
	assert.Equal(t, "1.5", s.Get(SettingBlackjackPayout))

	store.d.settings[SettingBlackjackPayout] = "2"
	store.d.settings[SettingMinBet] = "5"
	s, err = LoadSettings(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, int64(200), s.BlackjackWinnings(100))
	assert.Equal(t, int64(5), s.MinBet)

	store.d.settings[SettingStartingMoney] = "lots"
	_, err = LoadSettings(ctx, store)
	assert.ErrorContains(t, err, SettingStartingMoney)
}

func TestValidateSetting(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key, value string
		ok         bool
	}{
		{SettingStartingMoney, "2500", true},
		{SettingStartingMoney, "0", false},
		{SettingTournamentRounds, "-1", false},
		{SettingTournamentRounds, "5", true},
		{SettingBlackjackPayout, "1.2", true},
		{SettingBlackjackPayout, "0.5", false},
		{SettingMinBet, "abc", false},
		{"house_edge", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidateSetting(tt.key, tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMinimumBetSetting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	store.d.settings[SettingMinBet] = "50"
	svc, _ := newTestService(t, store, stackedDecks(t, winningDeck()))

	sess, err := svc.StartFreeplay(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.PlaceBet(ctx, "alice", sess.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidBet)
	_, err = svc.PlaceBet(ctx, "alice", sess.ID, 50)
	assert.NoError(t, err)
}
