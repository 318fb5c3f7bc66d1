package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/screens/home"
	"github.com/abhisek/campus/internal/screens/placeholder"
	"github.com/abhisek/campus/internal/screens/welcome"
)

func TestStartsAtWelcome(t *testing.T) {
	m := newAppModel(screens.Deps{UserID: "ada"}, Options{})
	if _, ok := m.router.Active().(*welcome.WelcomeScreen); !ok {
		t.Errorf("expected welcome screen, got %T", m.router.Active())
	}
}

func TestSkipWelcome(t *testing.T) {
	m := newAppModel(screens.Deps{UserID: "ada"}, Options{SkipWelcome: true})
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Errorf("expected home screen, got %T", m.router.Active())
	}
}

func TestEscPopsScreensWithoutOwnHints(t *testing.T) {
	m := newAppModel(screens.Deps{UserID: "ada"}, Options{SkipWelcome: true})
	m.router.Push(placeholder.New("Assistant", ""))

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}

func TestFooterUsesScreenHints(t *testing.T) {
	m := newAppModel(screens.Deps{UserID: "ada"}, Options{SkipWelcome: true})
	p, ok := m.router.Active().(screen.KeyHintProvider)
	if !ok {
		t.Fatal("home should provide key hints")
	}
	got, want := m.footerHints(), p.KeyHints()
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("footer hints %v, want %v", got, want)
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newAppModel(screens.Deps{UserID: "ada"}, Options{SkipWelcome: true})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
