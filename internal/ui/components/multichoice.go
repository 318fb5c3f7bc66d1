package components

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/ui/theme"
)

// Choice is one selectable option.
type Choice struct {
	ID   string
	Text string
}

// ChoiceMadeMsg is emitted when the learner presses enter on an option.
type ChoiceMadeMsg struct {
	ID string
}

// MultiChoice is a multiple-choice selector. Correctness is not known to the
// component; the caller reveals it with Reveal after a choice is made.
// Selection stays possible after a reveal so a learner can explore other
// options.
type MultiChoice struct {
	Question string
	Options  []Choice
	Selected int

	chosen   string
	correct  map[string]bool
	revealed bool
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(question string, options []Choice) MultiChoice {
	return MultiChoice{
		Question: question,
		Options:  options,
	}
}

// Init returns nil.
func (m MultiChoice) Init() tea.Cmd {
	return nil
}

// Update handles keyboard navigation and selection.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.Options) == 0 {
		return m, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		id := m.Options[m.Selected].ID
		return m, func() tea.Msg { return ChoiceMadeMsg{ID: id} }
	}

	return m, nil
}

// Reveal marks the chosen option and the correct ones.
func (m *MultiChoice) Reveal(chosen string, correctIDs []string) {
	m.chosen = chosen
	m.correct = make(map[string]bool, len(correctIDs))
	for _, id := range correctIDs {
		m.correct[id] = true
	}
	m.revealed = true
}

// Revealed reports whether feedback is showing.
func (m MultiChoice) Revealed() bool { return m.revealed }

// Chosen returns the last revealed choice.
func (m MultiChoice) Chosen() string { return m.chosen }

// View renders the multiple-choice component.
func (m MultiChoice) View() string {
	questionStyle := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	s := questionStyle.Render(m.Question) + "\n\n"

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, optionLabel(i), opt.Text)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case m.revealed && m.correct[opt.ID]:
			style = theme.Correct
		case m.revealed && opt.ID == m.chosen:
			style = theme.Incorrect
		case m.revealed:
			style = style.Foreground(theme.TextDim)
		}
		if i == m.Selected && !m.revealed {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		s += style.Render(line) + "\n"
	}

	return s
}

// optionLabel returns A, B, ... Z, then AA-style labels beyond that.
func optionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return optionLabel(i/26-1) + string(rune('A'+i%26))
}
