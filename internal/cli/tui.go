package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
)

type answer struct {
	text string
	err  error
}

type askMsg struct {
	label  string
	secret bool
	prompt *game.Prompt
}

type eventMsg struct{ event game.Event }

type printMsg string

// Model is the Bubble Tea model for the full-screen table
type Model struct {
	logger *log.Logger

	logViewport viewport.Model
	input       textinput.Model

	lines   []string
	answers chan<- answer

	asking bool
	label  string
	secret bool

	session *game.Session
	round   *game.RoundView

	width    int
	height   int
	quitting bool
}

// NewModel creates the table model. Answers are delivered on answers, which
// should be buffered.
func NewModel(logger *log.Logger, answers chan<- answer) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 60
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "
	ti.Focus()

	return &Model{
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		answers:     answers,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case askMsg:
		m.ask(msg)

	case eventMsg:
		m.apply(msg.event)

	case printMsg:
		m.AddLogEntry(string(msg))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.reply(answer{err: game.ErrInterrupted})
			return m, tea.Quit
		case "enter":
			if m.asking {
				text := strings.TrimSpace(m.input.Value())
				echo := text
				if m.secret {
					echo = strings.Repeat("*", len(text))
				}
				m.AddLogEntry(InfoStyle.Render(m.label) + " " + echo)
				m.asking = false
				m.input.SetValue("")
				m.reply(answer{text: text})
			}
			return m, nil
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	if m.asking {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) reply(a answer) {
	select {
	case m.answers <- a:
	default:
		m.logger.Debug("Dropped answer, none pending")
	}
}

func (m *Model) ask(msg askMsg) {
	m.asking = true
	m.label = msg.label
	m.secret = msg.secret
	m.input.SetValue("")
	if msg.secret {
		m.input.EchoMode = textinput.EchoPassword
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
	m.input.Focus()

	p := msg.prompt
	if p == nil {
		m.input.Placeholder = ""
		return
	}
	sess := p.Session
	m.session = &sess
	if p.Round != nil && p.Kind == game.PromptAction {
		round := *p.Round
		m.round = &round
	}
	if p.Kind == game.PromptBet {
		m.round = nil
		m.AddLogEntry(HeaderStyle.Render(RoundTitle(sess, sess.NextRound())))
	}
	if p.Err != nil {
		m.AddLogEntry(ErrorStyle.Render(promptError(p.Err)))
	}
	switch p.Kind {
	case game.PromptBet:
		m.input.Placeholder = fmt.Sprintf("bet %s to %s, or save", Money(p.MinBet), Money(sess.CurrentMoney))
	case game.PromptAction:
		m.input.Placeholder = "h, s or save"
	case game.PromptContinue:
		m.input.Placeholder = "y or n"
	}
}

// apply logs an event and refreshes the sidebar
func (m *Model) apply(e game.Event) {
	switch e := e.(type) {
	case game.CardsDealtEvent:
		v := e.View
		m.round = &v
	case game.PlayerHitEvent:
		v := e.View
		m.round = &v
	case game.DealerDrewEvent:
		v := e.View
		m.round = &v
	case game.RoundSettledEvent:
		m.round = nil
		if m.session != nil {
			m.session.CurrentMoney = e.Outcome.BalanceAfter
			m.session.RoundsCompleted = e.Outcome.RoundNumber
		}
	case game.SessionCompletedEvent:
		final := e.Final
		m.session = &final
	}
	if s := RenderEvent(e); s != "" {
		m.AddLogEntry(s)
	}
}

// AddLogEntry appends to the log and scrolls to the bottom
func (m *Model) AddLogEntry(entry string) {
	m.lines = append(m.lines, strings.Split(entry, "\n")...)
	m.logViewport.SetContent(strings.Join(m.lines, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Lines returns a copy of the log
func (m *Model) Lines() []string {
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebar()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-actionHeight-4, 1)
	sidebar := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight).
		Render(m.logViewport.View())

	top := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebar)
	return lipgloss.JoinVertical(lipgloss.Top, top, actionPane)
}

func (m *Model) renderSidebar() string {
	if m.session == nil {
		return InfoStyle.Render("No session")
	}
	var b strings.Builder
	b.WriteString(WarningStyle.Render(strings.ToUpper(string(m.session.Mode))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Money:  %s\n", Money(m.session.CurrentMoney))
	if m.session.MaxRounds > 0 {
		fmt.Fprintf(&b, "Rounds: %d/%d\n", m.session.RoundsCompleted, m.session.MaxRounds)
	} else {
		fmt.Fprintf(&b, "Rounds: %d\n", m.session.RoundsCompleted)
	}
	if m.round != nil {
		b.WriteString("\n")
		b.WriteString(RenderTable(m.round))
	}
	return b.String()
}

func (m *Model) renderActionPane() string {
	var b strings.Builder
	if m.asking {
		b.WriteString(PromptStyle.Render(m.label))
	} else {
		b.WriteString(HandInfoStyle.Render("Waiting..."))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("Enter to submit • PgUp/PgDn scroll • Ctrl+C to save and quit"))
	return b.String()
}

// TUI is a full-screen Terminal driven by a Bubble Tea program
type TUI struct {
	program *tea.Program
	model   *Model
	answers chan answer
	done    chan struct{}
	err     error
}

var _ Terminal = (*TUI)(nil)

// NewTUI creates the full-screen terminal. Start must be called before use.
func NewTUI(logger *log.Logger, opts ...tea.ProgramOption) *TUI {
	answers := make(chan answer, 1)
	model := NewModel(logger, answers)
	return &TUI{
		program: tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...),
		model:   model,
		answers: answers,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background
func (t *TUI) Start() {
	go func() {
		defer close(t.done)
		_, t.err = t.program.Run()
	}()
}

// Stop quits the program and waits for the terminal to be restored
func (t *TUI) Stop() error {
	t.program.Quit()
	<-t.done
	return t.err
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case <-t.done:
		return
	default:
	}
	t.program.Send(msg)
}

func (t *TUI) wait(ctx context.Context) (string, error) {
	select {
	case a := <-t.answers:
		return a.text, a.err
	case <-ctx.Done():
		return "", game.ErrInterrupted
	case <-t.done:
		return "", game.ErrInterrupted
	}
}

func (t *TUI) Ask(ctx context.Context, label string, secret bool) (string, error) {
	t.send(askMsg{label: label, secret: secret})
	return t.wait(ctx)
}

func (t *TUI) Prompt(ctx context.Context, p game.Prompt) (string, error) {
	t.send(askMsg{label: promptLabel(p), prompt: &p})
	return t.wait(ctx)
}

func (t *TUI) Publish(e game.Event) {
	t.send(eventMsg{event: e})
}

func (t *TUI) Print(text string) {
	t.send(printMsg(text))
}

func promptLabel(p game.Prompt) string {
	switch p.Kind {
	case game.PromptBet:
		return "Enter your bet (or 'save' to save and quit):"
	case game.PromptAction:
		return "(h)it, (s)tand, or (save) and quit?"
	case game.PromptContinue:
		return "Continue playing? (y/n):"
	default:
		return string(p.Kind) + ":"
	}
}
