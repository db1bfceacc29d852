package game

import (
	"strconv"
	"strings"
)

// Action is a player-turn choice
type Action string

const (
	ActionHit   Action = "hit"
	ActionStand Action = "stand"
	ActionSave  Action = "save"
)

// ParseAction accepts h/hit, s/stand and save in any case
func ParseAction(input string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "h", "hit":
		return ActionHit, nil
	case "s", "stand":
		return ActionStand, nil
	case "save":
		return ActionSave, nil
	default:
		return "", invalidf(ErrInvalidAction, "enter h, s or save, not %q", input)
	}
}

// IsSave reports whether input asks to save instead of betting
func IsSave(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "save")
}

// ParseBet parses a whole-dollar amount such as "200" or "$200". Range
// checks happen when the bet is placed.
func ParseBet(input string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(input), "$")
	bet, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidf(ErrInvalidBet, "%q is not a whole number", input)
	}
	return bet, nil
}

// ParseYesNo accepts y/yes and n/no
func ParseYesNo(input string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, invalidf(ErrInvalidAction, "enter y or n, not %q", input)
	}
}
