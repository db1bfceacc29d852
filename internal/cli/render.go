package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/store/sqlite"
)

const rule = "============================================================"

// FormatCard renders a card such as "A♠", colored by suit
func FormatCard(d blackjack.CardData) string {
	c, err := d.Card()
	if err != nil {
		return ErrorStyle.Render("??")
	}
	if c.Suit.IsRed() {
		return RedCardStyle.Render(c.Short())
	}
	return BlackCardStyle.Render(c.Short())
}

// FormatCards renders a hand, with a placeholder for a hidden hole card
func FormatCards(cards []blackjack.CardData, hidden bool) string {
	parts := make([]string, 0, len(cards)+1)
	for _, c := range cards {
		parts = append(parts, FormatCard(c))
	}
	if hidden {
		parts = append(parts, HiddenCardStyle.Render("??"))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Money formats a signed dollar amount
func Money(v int64) string {
	if v < 0 {
		return "-$" + strconv.FormatInt(-v, 10)
	}
	return "$" + strconv.FormatInt(v, 10)
}

func signedMoney(v int64) string {
	if v > 0 {
		return "+" + Money(v)
	}
	return Money(v)
}

// Banner renders a title between rules
func Banner(title string) string {
	return rule + "\n" + HeaderStyle.Render(title) + "\n" + rule
}

// RoundTitle names the round, with the tournament length when known
func RoundTitle(sess game.Session, round int) string {
	if sess.MaxRounds > 0 {
		return fmt.Sprintf("ROUND %d/%d", round, sess.MaxRounds)
	}
	return fmt.Sprintf("ROUND %d", round)
}

// RenderTable shows both hands of a round in progress
func RenderTable(v *game.RoundView) string {
	var b strings.Builder
	dealer := fmt.Sprintf("Dealer: %s", FormatCards(v.DealerCards, v.DealerHidden))
	if !v.DealerHidden {
		dealer += fmt.Sprintf("  Score: %d", v.DealerValue)
	}
	b.WriteString(dealer)
	b.WriteString("\n")

	soft := ""
	if v.PlayerSoft {
		soft = " (soft)"
	}
	b.WriteString(HandInfoStyle.Render(fmt.Sprintf("You:    %s  Score: %d%s",
		FormatCards(v.PlayerCards, false), v.PlayerValue, soft)))
	if v.Bet > 0 {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("  Bet: %s", Money(v.Bet))))
	}
	return b.String()
}

var resultLines = map[game.Result]string{
	game.ResultBlackjack: "Blackjack! You win %s!",
	game.ResultWin:       "You win %s!",
	game.ResultLoss:      "Dealer wins! You lose %s!",
	game.ResultBust:      "Bust! You lose %s!",
	game.ResultPush:      "It's a tie! Bet returned.",
}

// RenderOutcome shows the final hands and result of a settled round
func RenderOutcome(r *game.RoundRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dealer: %s  Score: %d\n", FormatCards(r.DealerHand, false), r.DealerScore)
	fmt.Fprintf(&b, "You:    %s  Score: %d\n", FormatCards(r.PlayerHand, false), r.PlayerScore)

	line := resultLines[r.Result]
	if strings.Contains(line, "%s") {
		amount := r.Winnings
		if amount < 0 {
			amount = -amount
		}
		line = fmt.Sprintf(line, Money(amount))
	}
	if r.Result == game.ResultWin && r.DealerScore > 21 {
		line = "Dealer busts! " + line
	}

	switch r.Result {
	case game.ResultBlackjack, game.ResultWin:
		b.WriteString(SuccessStyle.Render(line))
	case game.ResultPush:
		b.WriteString(WarningStyle.Render(line))
	default:
		b.WriteString(ErrorStyle.Render(line))
	}
	fmt.Fprintf(&b, "\nCurrent money: %s", Money(r.BalanceAfter))
	return b.String()
}

// RenderCompletion summarises a finished session
func RenderCompletion(sess game.Session, c *game.Completion) string {
	var b strings.Builder
	switch c.Reason {
	case game.ReasonBroke:
		b.WriteString(Banner("GAME OVER - BROKE!"))
		fmt.Fprintf(&b, "\nYou completed %d rounds", sess.RoundsCompleted)
	case game.ReasonRoundsComplete:
		b.WriteString(Banner("TOURNAMENT COMPLETE!"))
	case game.ReasonQuit:
		b.WriteString(Banner("SESSION OVER"))
		fmt.Fprintf(&b, "\nYou ended with %s. Thanks for playing!", Money(sess.CurrentMoney))
	case game.ReasonAbandoned:
		b.WriteString(Banner("SESSION ABANDONED"))
	}

	if c.Reason != game.ReasonAbandoned {
		fmt.Fprintf(&b, "\nFinal money: %s", Money(sess.CurrentMoney))
		switch p := sess.Profit(); {
		case p > 0:
			fmt.Fprintf(&b, "\nTotal profit: %s", signedMoney(p))
		case p < 0:
			fmt.Fprintf(&b, "\nTotal loss: %s", Money(p))
		default:
			b.WriteString("\nBreak even!")
		}
	}
	if c.Entry != nil {
		b.WriteString("\n" + SuccessStyle.Render("Score saved to leaderboard!"))
	}
	return b.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

// RenderLeaderboard renders the top sessions as a table
func RenderLeaderboard(entries []game.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No scores recorded. Play some games to create a leaderboard!"
	}
	t := newTable("#", "Player", "Final", "Profit", "Rounds")
	for i, e := range entries {
		t.Row(
			strconv.Itoa(i+1),
			e.Username,
			Money(e.FinalMoney),
			signedMoney(e.Profit),
			strconv.Itoa(e.RoundsCompleted),
		)
	}
	return Banner(fmt.Sprintf("LEADERBOARD - Top %d Players", len(entries))) + "\n" + t.Render()
}

// RenderStats renders a user's aggregate statistics
func RenderStats(username string, st *game.UserStatistics) string {
	t := newTable("Statistic", "Value")
	rows := [][]string{
		{"Games played", strconv.Itoa(st.GamesPlayed)},
		{"Rounds played", strconv.Itoa(st.RoundsPlayed)},
		{"Wins / losses / pushes", fmt.Sprintf("%d / %d / %d", st.Wins, st.Losses, st.Pushes)},
		{"Blackjacks", strconv.Itoa(st.Blackjacks)},
		{"Busts", strconv.Itoa(st.Busts)},
		{"Total winnings", Money(st.TotalWinnings)},
		{"Total losses", Money(st.TotalLosses)},
		{"Net profit/loss", signedMoney(st.TotalWinnings - st.TotalLosses)},
		{"Highest balance", Money(st.HighestBalance)},
		{"Mean per round", fmt.Sprintf("%.2f", st.MeanWinnings)},
		{"Median per round", fmt.Sprintf("%.2f", st.MedianWinnings)},
		{"Std dev per round", fmt.Sprintf("%.2f", st.StdDevWinnings)},
	}
	for _, r := range rows {
		t.Row(r...)
	}
	return Banner("PLAYER STATISTICS - "+username) + "\n" + t.Render()
}

// RenderSettings renders the game settings table
func RenderSettings(settings []sqlite.Setting) string {
	t := newTable("Key", "Value", "Updated", "By")
	for _, s := range settings {
		updated := "-"
		if s.UpdatedAt != nil {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		by := s.UpdatedBy
		if by == "" {
			by = "-"
		}
		t.Row(s.Key, s.Value, updated, by)
	}
	return t.Render()
}

// RenderEvent formats a game event as log lines. Events that the prompt
// already shows render as "".
func RenderEvent(e game.Event) string {
	switch e := e.(type) {
	case game.PlayerHitEvent:
		return fmt.Sprintf("You draw %s", FormatCard(e.Card))
	case game.DealerDrewEvent:
		return fmt.Sprintf("Dealer hits: %s", FormatCard(e.Card))
	case game.RoundSettledEvent:
		return RenderOutcome(&e.Outcome)
	case game.RoundSavedEvent:
		return SuccessStyle.Render("[SAVED] Game saved! You can resume later.")
	default:
		return ""
	}
}
