package chat

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/relay"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/ui/components"
	"github.com/abhisek/campus/internal/ui/layout"
	"github.com/abhisek/campus/internal/ui/theme"
)

const maxInput = 4000

type replyMsg struct {
	Action relay.Action
	Resp   relay.Response
	Err    error
}

type turn struct {
	role string // "you", "assistant" or "history"
	text string
}

// ChatScreen is a conversation with the study assistant through the relay.
type ChatScreen struct {
	deps      screens.Deps
	input     components.TextInput
	turns     []turn
	sessionID string
	errMsg    string
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)

// New creates a ChatScreen. deps.Relay must be set.
func New(deps screens.Deps) *ChatScreen {
	return &ChatScreen{
		deps:  deps,
		input: components.NewTextInput("Ask about your course...", maxInput, 60),
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *ChatScreen) Title() string {
	return "Assistant"
}

func (s *ChatScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Ctrl+N", Description: "New conversation"},
	}
	if s.sessionID != "" {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Reload conversation"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		s.input.SetBusy(false)
		if msg.Err != nil {
			s.errMsg = describe(msg.Err)
			s.deps.Logger().Warn("chat failed", "user", s.deps.UserID, "error", msg.Err)
			return s, nil
		}
		s.errMsg = ""
		if msg.Resp.SessionID != "" {
			s.sessionID = msg.Resp.SessionID
		}
		role := "assistant"
		if msg.Action == relay.ActionLoadPreviousSession {
			role = "history"
		}
		s.turns = append(s.turns, turn{role: role, text: msg.Resp.Response})
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "enter":
			return s, s.send()
		case "ctrl+n":
			if s.input.Busy() {
				return s, nil
			}
			s.sessionID = ""
			s.turns = nil
			s.errMsg = ""
			return s, nil
		case "ctrl+r":
			return s, s.reload()
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ChatScreen) send() tea.Cmd {
	text := s.input.Value()
	if text == "" || s.input.Busy() {
		return nil
	}
	s.turns = append(s.turns, turn{role: "you", text: text})
	s.input.Reset()
	return s.call(relay.Request{
		SessionID: s.sessionID,
		Action:    relay.ActionSendMessage,
		ChatInput: text,
		UserID:    s.deps.UserID,
	})
}

func (s *ChatScreen) reload() tea.Cmd {
	if s.sessionID == "" || s.input.Busy() {
		return nil
	}
	return s.call(relay.Request{
		SessionID: s.sessionID,
		Action:    relay.ActionLoadPreviousSession,
		UserID:    s.deps.UserID,
	})
}

func (s *ChatScreen) call(req relay.Request) tea.Cmd {
	s.input.SetBusy(true)
	rl := s.deps.Relay
	return func() tea.Msg {
		resp, err := rl.Chat(context.Background(), req)
		return replyMsg{Action: req.Action, Resp: resp, Err: err}
	}
}

// describe turns relay errors into something a learner can act on.
func describe(err error) string {
	var upErr *relay.UpstreamError
	if errors.As(err, &upErr) {
		msg := upErr.Message()
		if upErr.Retryable() {
			msg += " Try again in a moment."
		}
		return msg
	}
	return err.Error()
}

func (s *ChatScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	youStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	botStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(theme.Text).Width(cw - 2)

	var lines []string
	for _, t := range s.turns {
		label := botStyle.Render(t.role)
		if t.role == "you" {
			label = youStyle.Render(t.role)
		}
		lines = append(lines, label, textStyle.Render(t.text), "")
	}
	if len(lines) == 0 {
		lines = append(lines, theme.Hint.Render("Ask a question about your lessons or quizzes."), "")
	}

	transcript := strings.Join(lines, "\n")
	// Keep the newest turns visible.
	avail := height - 6
	if tl := strings.Split(transcript, "\n"); avail > 0 && len(tl) > avail {
		transcript = strings.Join(tl[len(tl)-avail:], "\n")
	}

	var b strings.Builder
	b.WriteString(transcript)
	b.WriteString("\n")
	if s.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Width(cw).Render(s.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(components.Card(s.input.View(), cw))

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}
