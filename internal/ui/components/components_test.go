package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func TestMenuSkipsDisabledItems(t *testing.T) {
	pressed := ""
	m := NewMenu([]MenuItem{
		{Label: "Header", Disabled: true},
		{Label: "First", Action: func() tea.Cmd { pressed = "first"; return nil }},
		{Label: "Gap", Disabled: true},
		{Label: "Second", Action: func() tea.Cmd { pressed = "second"; return nil }},
	})
	if m.Selected != 1 {
		t.Fatalf("expected first enabled item selected, got %d", m.Selected)
	}

	m, _ = m.Update(key(tea.KeyDown))
	if m.Selected != 3 {
		t.Fatalf("expected down to skip disabled item, got %d", m.Selected)
	}
	m, _ = m.Update(key(tea.KeyEnter))
	if pressed != "second" {
		t.Errorf("expected second action, got %q", pressed)
	}

	m, _ = m.Update(key(tea.KeyUp))
	if m.Selected != 1 {
		t.Errorf("expected up to skip disabled item, got %d", m.Selected)
	}
}

func TestMultiChoiceEmitsChoice(t *testing.T) {
	m := NewMultiChoice("Pick", []Choice{{ID: "a", Text: "Alpha"}, {ID: "b", Text: "Beta"}})
	m, _ = m.Update(key(tea.KeyDown))
	_, cmd := m.Update(key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command on enter")
	}
	msg, ok := cmd().(ChoiceMadeMsg)
	if !ok {
		t.Fatalf("expected ChoiceMadeMsg, got %T", cmd())
	}
	if msg.ID != "b" {
		t.Errorf("expected b, got %q", msg.ID)
	}
}

func TestMultiChoiceReveal(t *testing.T) {
	m := NewMultiChoice("Pick", []Choice{{ID: "a", Text: "Alpha"}, {ID: "b", Text: "Beta"}})
	if m.Revealed() {
		t.Fatal("should not start revealed")
	}
	m.Reveal("a", []string{"b"})
	if !m.Revealed() || m.Chosen() != "a" {
		t.Errorf("unexpected reveal state: revealed=%v chosen=%q", m.Revealed(), m.Chosen())
	}
	view := m.View()
	if !strings.Contains(view, "A)  Alpha") || !strings.Contains(view, "B)  Beta") {
		t.Errorf("view missing labelled options:\n%s", view)
	}
}

func TestOptionLabel(t *testing.T) {
	tests := map[int]string{0: "A", 3: "D", 25: "Z", 26: "AA", 27: "AB"}
	for i, want := range tests {
		if got := optionLabel(i); got != want {
			t.Errorf("optionLabel(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestProgressBarClampsPercent(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "0.0%"},
		{52.5, "52.5%"},
		{100, "100.0%"},
		{140, "100.0%"},
		{-3, "0.0%"},
	}
	for _, tt := range tests {
		view := NewProgressBar("", tt.pct, true, 40).View()
		if !strings.Contains(view, tt.want) {
			t.Errorf("percent %v: expected %q in %q", tt.pct, tt.want, view)
		}
	}
}

func TestButtonRowMovesFocus(t *testing.T) {
	pressed := ""
	row := NewButtonRow(
		NewButton("Retake", false, func() tea.Cmd { pressed = "retake"; return nil }),
		NewButton("Back", false, func() tea.Cmd { pressed = "back"; return nil }),
	)
	if !row.Buttons[0].Active || row.Buttons[1].Active {
		t.Fatal("expected first button focused")
	}
	row, _ = row.Update(key(tea.KeyRight))
	if row.Focus != 1 || !row.Buttons[1].Active {
		t.Fatalf("expected focus on second button, got %d", row.Focus)
	}
	row, _ = row.Update(key(tea.KeyRight))
	if row.Focus != 1 {
		t.Errorf("focus should stay on the last button, got %d", row.Focus)
	}
	row.Update(key(tea.KeyEnter))
	if pressed != "back" {
		t.Errorf("expected back pressed, got %q", pressed)
	}
}

func TestTextInputBusyIgnoresKeys(t *testing.T) {
	in := NewTextInput("Ask", 100, 40)
	in, _ = in.Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	in, _ = in.Update(tea.KeyPressMsg{Code: 'i', Text: "i"})
	if in.Value() != "hi" {
		t.Fatalf("expected hi, got %q", in.Value())
	}
	in.SetBusy(true)
	in, _ = in.Update(tea.KeyPressMsg{Code: '!', Text: "!"})
	if in.Value() != "hi" {
		t.Errorf("busy input changed to %q", in.Value())
	}
	in.SetBusy(false)
	in.Reset()
	if in.Value() != "" {
		t.Errorf("expected empty after reset, got %q", in.Value())
	}
}
