package cli

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestModel(t *testing.T) (*Model, chan answer) {
	t.Helper()
	answers := make(chan answer, 1)
	return NewModel(testLogger(), answers), answers
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModelAnswersPrompt(t *testing.T) {
	t.Parallel()
	m, answers := newTestModel(t)

	sess := game.Session{Mode: game.ModeFreeplay, CurrentMoney: 750}
	m.Update(askMsg{label: "bet?", prompt: &game.Prompt{Kind: game.PromptBet, Session: sess, MinBet: 1}})
	assert.True(t, m.asking)
	assert.Equal(t, "bet $1 to $750, or save", m.input.Placeholder)

	typeText(m, "120")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, answers, 1)
	a := <-answers
	assert.NoError(t, a.err)
	assert.Equal(t, "120", a.text)
	assert.False(t, m.asking)

	lines := strings.Join(m.Lines(), "\n")
	assert.Contains(t, lines, "ROUND 1")
	assert.Contains(t, lines, "120")
}

func TestModelMasksSecrets(t *testing.T) {
	t.Parallel()
	m, answers := newTestModel(t)

	m.Update(askMsg{label: "Password:", secret: true})
	typeText(m, "hunter22")
	assert.NotContains(t, m.input.View(), "hunter22")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a := <-answers
	assert.Equal(t, "hunter22", a.text)
	assert.NotContains(t, strings.Join(m.Lines(), "\n"), "hunter22")
	assert.Contains(t, strings.Join(m.Lines(), "\n"), "********")
}

func TestModelEnterWithoutPromptIsIgnored(t *testing.T) {
	t.Parallel()
	m, answers := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, answers)
}

func TestModelCtrlCInterrupts(t *testing.T) {
	t.Parallel()
	m, answers := newTestModel(t)
	m.Update(askMsg{label: "(h)it?", prompt: &game.Prompt{Kind: game.PromptAction}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	a := <-answers
	assert.ErrorIs(t, a.err, game.ErrInterrupted)
	assert.Empty(t, m.View())
}

func TestModelTracksRoundFromEvents(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	sess := game.Session{Mode: game.ModeTournament, CurrentMoney: 1000, MaxRounds: 5}
	m.Update(askMsg{label: "bet?", prompt: &game.Prompt{Kind: game.PromptBet, Session: sess}})
	m.Update(eventMsg{event: game.CardsDealtEvent{View: game.RoundView{
		PlayerCards:  []blackjack.CardData{blackjack.NewCard(blackjack.Nine, blackjack.Clubs).Data()},
		DealerCards:  []blackjack.CardData{blackjack.NewCard(blackjack.Queen, blackjack.Hearts).Data()},
		DealerHidden: true,
	}}})
	require.NotNil(t, m.round)
	assert.Contains(t, m.View(), "Q♥")

	m.Update(eventMsg{event: game.RoundSettledEvent{Outcome: game.RoundRecord{
		RoundNumber:  1,
		Result:       game.ResultLoss,
		Winnings:     -100,
		BalanceAfter: 900,
	}}})
	assert.Nil(t, m.round)
	assert.Equal(t, int64(900), m.session.CurrentMoney)
	assert.Contains(t, m.View(), "Rounds: 1/5")
	assert.Contains(t, strings.Join(m.Lines(), "\n"), "You lose $100")
}

func TestModelViewBeforeResize(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t)
	assert.Equal(t, "Loading...", m.View())
	m.Update(printMsg("hello"))
	assert.Equal(t, []string{"hello"}, m.Lines())
}
