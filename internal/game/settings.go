package game

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Game setting keys stored in the settings table.
const (
	SettingStartingMoney    = "starting_money"
	SettingTournamentRounds = "tournament_rounds"
	SettingBlackjackPayout  = "blackjack_payout"
	SettingMinBet           = "min_bet"
)

// SettingKeys lists every recognised setting in display order
var SettingKeys = []string{
	SettingStartingMoney,
	SettingTournamentRounds,
	SettingBlackjackPayout,
	SettingMinBet,
}

// Settings are the tunables read at session start and at every round.
type Settings struct {
	StartingMoney    int64
	TournamentRounds int
	BlackjackPayout  decimal.Decimal
	MinBet           int64
}

// DefaultSettings returns the values used when a key is not stored
func DefaultSettings() Settings {
	return Settings{
		StartingMoney:    1000,
		TournamentRounds: 10,
		BlackjackPayout:  decimal.RequireFromString("1.5"),
		MinBet:           1,
	}
}

// Get returns the string form of the value for key
func (s Settings) Get(key string) string {
	switch key {
	case SettingStartingMoney:
		return strconv.FormatInt(s.StartingMoney, 10)
	case SettingTournamentRounds:
		return strconv.Itoa(s.TournamentRounds)
	case SettingBlackjackPayout:
		return s.BlackjackPayout.String()
	case SettingMinBet:
		return strconv.FormatInt(s.MinBet, 10)
	}
	return ""
}

// BlackjackWinnings returns floor(bet × payout)
func (s Settings) BlackjackWinnings(bet int64) int64 {
	return decimal.NewFromInt(bet).Mul(s.BlackjackPayout).Floor().IntPart()
}

// SettingsReader is the slice of the store needed to read settings.
type SettingsReader interface {
	GetGameSetting(ctx context.Context, key string) (string, bool, error)
}

// LoadSettings reads every setting, falling back to defaults for missing keys.
func LoadSettings(ctx context.Context, r SettingsReader) (Settings, error) {
	s := DefaultSettings()
	for _, key := range SettingKeys {
		raw, ok, err := r.GetGameSetting(ctx, key)
		if err != nil {
			return Settings{}, fmt.Errorf("read setting %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := s.apply(key, raw); err != nil {
			return Settings{}, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return s, nil
}

// ValidateSetting checks a value before it is written.
func ValidateSetting(key, value string) error {
	s := DefaultSettings()
	return s.apply(key, value)
}

func (s *Settings) apply(key, raw string) error {
	switch key {
	case SettingStartingMoney, SettingMinBet:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("%q must be a positive integer", raw)
		}
		if key == SettingMinBet {
			s.MinBet = v
		} else {
			s.StartingMoney = v
		}
	case SettingTournamentRounds:
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return fmt.Errorf("%q must be a positive integer", raw)
		}
		s.TournamentRounds = v
	case SettingBlackjackPayout:
		v, err := decimal.NewFromString(raw)
		if err != nil || v.LessThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%q must be a decimal of at least 1", raw)
		}
		s.BlackjackPayout = v
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
