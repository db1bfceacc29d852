package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lox/blackjack/internal/game"
)

// Terminal is where the player is asked for input and shown what happens.
// It renders game events and answers game prompts.
type Terminal interface {
	game.Prompter
	game.EventSink
	// Ask reads one free-form answer. secret masks the input where the
	// terminal can.
	Ask(ctx context.Context, label string, secret bool) (string, error)
	Print(text string)
}

// LineTerminal is a line-oriented Terminal over plain reader and writer
type LineTerminal struct {
	out   io.Writer
	lines chan string
	mu    sync.Mutex
}

var _ Terminal = (*LineTerminal)(nil)

// NewLineTerminal reads answers line by line from in
func NewLineTerminal(in io.Reader, out io.Writer) *LineTerminal {
	t := &LineTerminal{out: out, lines: make(chan string)}
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
	}()
	return t
}

func (t *LineTerminal) Print(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, text)
}

func (t *LineTerminal) Publish(e game.Event) {
	if s := RenderEvent(e); s != "" {
		t.Print("\n" + s)
	}
}

func (t *LineTerminal) Ask(ctx context.Context, label string, _ bool) (string, error) {
	t.mu.Lock()
	_, _ = fmt.Fprint(t.out, PromptStyle.Render(label)+" ")
	t.mu.Unlock()
	return t.readLine(ctx)
}

func (t *LineTerminal) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", game.ErrInterrupted
	case line, ok := <-t.lines:
		if !ok {
			return "", game.ErrInterrupted
		}
		return strings.TrimSpace(line), nil
	}
}

// Prompt implements game.Prompter
func (t *LineTerminal) Prompt(ctx context.Context, p game.Prompt) (string, error) {
	if p.Err != nil {
		t.Print(ErrorStyle.Render(promptError(p.Err)))
	}
	return t.Ask(ctx, describePrompt(p), false)
}

// describePrompt renders what the player needs to see to answer p
func describePrompt(p game.Prompt) string {
	switch p.Kind {
	case game.PromptBet:
		round := p.Session.NextRound()
		if p.Round != nil {
			round = p.Round.RoundNumber
		}
		return fmt.Sprintf("\n%s\nYour money: %s\nEnter your bet (min %s, or 'save' to save and quit):",
			Banner(RoundTitle(p.Session, round)), Money(p.Session.CurrentMoney), Money(p.MinBet))
	case game.PromptAction:
		table := ""
		if p.Round != nil {
			table = "\n" + RenderTable(p.Round) + "\n"
		}
		return table + "(h)it, (s)tand, or (save) and quit?"
	case game.PromptContinue:
		return fmt.Sprintf("\nCurrent money: %s\nContinue playing? (y/n):", Money(p.Session.CurrentMoney))
	default:
		return string(p.Kind) + ":"
	}
}

// promptError strips the package prefix from a validation error
func promptError(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}
