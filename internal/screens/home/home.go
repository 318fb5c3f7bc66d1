package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/screens/activity"
	"github.com/abhisek/campus/internal/screens/chat"
	"github.com/abhisek/campus/internal/screens/formation"
	"github.com/abhisek/campus/internal/screens/placeholder"
	"github.com/abhisek/campus/internal/store"
	"github.com/abhisek/campus/internal/ui/components"
	"github.com/abhisek/campus/internal/ui/layout"
	"github.com/abhisek/campus/internal/ui/theme"
)

type homeLoadedMsg struct {
	Enrollments []store.FormationEnrollment
	Catalog     []store.FormationSummary
	Err         error
}

type enrolledMsg struct {
	FormationID string
	Err         error
}

// HomeScreen lists the learner's formations and the rest of the catalog.
type HomeScreen struct {
	deps    screens.Deps
	menu    components.Menu
	loaded  bool
	errMsg  string
	enrolls []store.FormationEnrollment
	catalog []store.FormationSummary
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps screens.Deps) *HomeScreen {
	h := &HomeScreen{deps: deps}
	h.menu = components.NewMenu(h.items())
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Resume reloads progress after a formation screen closes.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	deps := h.deps
	return func() tea.Msg {
		ctx := context.Background()
		enrolls, err := deps.Repo.ListFormationEnrollments(ctx, deps.UserID)
		if err != nil {
			return homeLoadedMsg{Err: err}
		}
		catalog, err := deps.Repo.ListFormations(ctx)
		if err != nil {
			return homeLoadedMsg{Err: err}
		}
		return homeLoadedMsg{Enrollments: enrolls, Catalog: catalog}
	}
}

func (h *HomeScreen) enroll(formationID string) tea.Cmd {
	deps := h.deps
	return func() tea.Msg {
		_, err := deps.Writer.Enroll(context.Background(), deps.UserID, formationID)
		return enrolledMsg{FormationID: formationID, Err: err}
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case homeLoadedMsg:
		h.loaded = true
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.errMsg = ""
		h.enrolls = msg.Enrollments
		h.catalog = msg.Catalog
		selected := h.menu.Selected
		h.menu = components.NewMenu(h.items())
		if selected < len(h.menu.Items) && !h.menu.Items[selected].Disabled {
			h.menu.Selected = selected
		}
		return h, nil

	case enrolledMsg:
		if msg.Err != nil {
			h.errMsg = fmt.Sprintf("enroll in %s: %v", msg.FormationID, msg.Err)
			return h, nil
		}
		return h, h.load()
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) items() []components.MenuItem {
	titles := make(map[string]string, len(h.catalog))
	for _, f := range h.catalog {
		titles[f.ID] = f.Title
	}
	enrolled := make(map[string]bool, len(h.enrolls))

	var items []components.MenuItem
	if len(h.enrolls) > 0 {
		items = append(items, components.MenuItem{Label: "MY FORMATIONS", Disabled: true})
	}
	for _, fe := range h.enrolls {
		enrolled[fe.FormationID] = true
		title := titles[fe.FormationID]
		if title == "" {
			title = fe.FormationID
		}
		id := fe.FormationID
		items = append(items, components.MenuItem{
			Label:  title,
			Detail: fmt.Sprintf("%.1f%% · %s", fe.Progress, fe.Status),
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: formation.New(h.deps, id)}
				}
			},
		})
	}

	var available []components.MenuItem
	for _, f := range h.catalog {
		if enrolled[f.ID] {
			continue
		}
		id := f.ID
		available = append(available, components.MenuItem{
			Label:  "Enroll in " + f.Title,
			Detail: fmt.Sprintf("%d blocks", f.Blocks),
			Action: func() tea.Cmd { return h.enroll(id) },
		})
	}
	if len(available) > 0 {
		items = append(items, components.MenuItem{Label: "CATALOG", Disabled: true})
		items = append(items, available...)
	}

	items = append(items,
		components.MenuItem{Label: "", Disabled: true},
		components.MenuItem{Label: "Ask the assistant", Action: func() tea.Cmd {
			var s screen.Screen
			if h.deps.Relay == nil {
				s = placeholder.New("Assistant", "The chat assistant is not configured.\nSet CAMPUS_CHAT_WEBHOOK_URL or an LLM provider key.")
			} else {
				s = chat.New(h.deps)
			}
			return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
		}},
		components.MenuItem{Label: "Activity", Action: func() tea.Cmd {
			var s screen.Screen
			if h.deps.Events == nil {
				s = placeholder.New("Activity", "No event log is available.")
			} else {
				s = activity.New(h.deps.Events)
			}
			return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
		}},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	)
	return items
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var sections []string
	sections = append(sections, theme.Title.Width(cw).Render("Welcome back, "+h.deps.UserID))

	switch {
	case !h.loaded:
		sections = append(sections, theme.Hint.Render("Loading formations..."))
	case h.errMsg != "":
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Error).Render("Error: "+h.errMsg))
	case len(h.enrolls) == 0 && len(h.catalog) == 0:
		sections = append(sections, theme.Hint.Render("No formations yet. Import one with `campus import`."))
	}

	sections = append(sections, components.Card(h.menu.View(), cw))

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
