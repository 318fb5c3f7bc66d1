package activity

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/store"
	"github.com/abhisek/campus/internal/ui/layout"
	"github.com/abhisek/campus/internal/ui/theme"
)

const pageSize = 50

type eventsLoadedMsg struct {
	Events []store.EventRecord
	Err    error
}

// ActivityScreen lists recent chat, ingestion and LLM calls, newest first.
type ActivityScreen struct {
	eventRepo store.EventRepo
	events    []store.EventRecord
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*ActivityScreen)(nil)
var _ screen.KeyHintProvider = (*ActivityScreen)(nil)

// New creates a new ActivityScreen.
func New(eventRepo store.EventRepo) *ActivityScreen {
	return &ActivityScreen{
		eventRepo: eventRepo,
		expanded:  make(map[int]bool),
	}
}

func (s *ActivityScreen) Init() tea.Cmd {
	return func() tea.Msg {
		events, err := s.eventRepo.QueryEvents(context.Background(), store.QueryOpts{Limit: pageSize})
		if err != nil {
			return eventsLoadedMsg{Err: err}
		}
		slices.Reverse(events)
		return eventsLoadedMsg{Events: events}
	}
}

func (s *ActivityScreen) Title() string {
	return "Activity"
}

func (s *ActivityScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ActivityScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.events = msg.Events
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.events)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		}
	}
	return s, nil
}

func (s *ActivityScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading activity...")
	}
	if len(s.events) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  Nothing yet. Chat with the assistant or ingest a document.")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, ev := range s.events {
		status := theme.Correct.Render("ok")
		if !ev.Success {
			status = theme.Incorrect.Render("failed")
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %-8s %-28s %5dms  ",
			prefix, ev.Timestamp.Local().Format("Jan 02 15:04"), ev.Kind, ev.Name, ev.LatencyMs)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)+status))
		b.WriteString("\n")

		if s.expanded[i] {
			for _, d := range details(ev) {
				b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
					lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("    "+d)))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func details(ev store.EventRecord) []string {
	out := []string{ev.Detail}
	if ev.Kind == "llm" {
		if c := llm.LookupCost(ev.Model); c != nil {
			out = append(out, fmt.Sprintf("est. cost $%.4f", c.Cost(ev.InputTokens, ev.OutputTokens)))
		}
	}
	if ev.Error != "" {
		out = append(out, "error: "+ev.Error)
	}
	return out
}
