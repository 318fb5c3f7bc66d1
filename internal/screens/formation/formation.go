package formation

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/screens/quizrun"
	"github.com/abhisek/campus/internal/ui/components"
	"github.com/abhisek/campus/internal/ui/layout"
	"github.com/abhisek/campus/internal/ui/theme"
)

type loadedMsg struct {
	Report    *enrollment.Report
	Formation *catalog.Formation
	Done      map[string]bool // completed lesson IDs
	Err       error
}

type lessonDoneMsg struct {
	Title  string
	Result enrollment.LessonResult
	Err    error
}

type refreshedMsg struct {
	Result enrollment.FormationResult
	Err    error
}

type rowKind int

const (
	rowBlock rowKind = iota
	rowChapter
	rowLesson
	rowQuiz
	rowSkill
)

type row struct {
	kind     rowKind
	label    string
	detail   string
	percent  float64
	done     bool
	blockID  string
	chapID   string
	lessonID string
	quizID   string
}

func (r row) selectable() bool {
	return r.kind == rowLesson || r.kind == rowQuiz
}

// FormationScreen shows one formation's hierarchy with live progress.
// Lessons can be marked complete and quizzes opened from here.
type FormationScreen struct {
	deps        screens.Deps
	formationID string

	report   *enrollment.Report
	rows     []row
	selected int
	loaded   bool
	errMsg   string
	notice   string
}

var _ screen.Screen = (*FormationScreen)(nil)
var _ screen.KeyHintProvider = (*FormationScreen)(nil)
var _ screen.Resumer = (*FormationScreen)(nil)

// New creates a FormationScreen for formationID.
func New(deps screens.Deps, formationID string) *FormationScreen {
	return &FormationScreen{deps: deps, formationID: formationID, selected: -1}
}

func (s *FormationScreen) Init() tea.Cmd {
	return s.load()
}

// Resume reloads after a quiz closes.
func (s *FormationScreen) Resume() tea.Cmd {
	return s.load()
}

func (s *FormationScreen) Title() string {
	if s.report != nil {
		return s.report.Title
	}
	return "Formation"
}

func (s *FormationScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Complete lesson / Take quiz"},
		{Key: "r", Description: "Recompute"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *FormationScreen) load() tea.Cmd {
	deps, id := s.deps, s.formationID
	return func() tea.Msg {
		ctx := context.Background()
		rep, err := deps.Reader.FormationReport(ctx, deps.UserID, id)
		if err != nil {
			return loadedMsg{Err: err}
		}
		f, err := deps.Repo.GetFormation(ctx, deps.UserID, id)
		if err != nil {
			return loadedMsg{Err: err}
		}
		done := make(map[string]bool)
		for _, b := range f.Blocks {
			for _, ch := range b.Chapters {
				lc, err := deps.Repo.GetChapterLessonCompletion(ctx, deps.UserID, ch.ID)
				if err != nil {
					return loadedMsg{Err: err}
				}
				for lessonID := range lc.LessonIDs {
					done[lessonID] = true
				}
			}
		}
		return loadedMsg{Report: rep, Formation: f, Done: done}
	}
}

func (s *FormationScreen) completeLesson(r row) tea.Cmd {
	deps := s.deps
	return func() tea.Msg {
		res, err := deps.Writer.ApplyLessonCompletion(context.Background(), deps.UserID, r.lessonID, r.chapID, r.blockID)
		return lessonDoneMsg{Title: r.label, Result: res, Err: err}
	}
}

func (s *FormationScreen) refresh() tea.Cmd {
	deps, id := s.deps, s.formationID
	return func() tea.Msg {
		res, err := deps.Writer.RefreshFormation(context.Background(), deps.UserID, id)
		return refreshedMsg{Result: res, Err: err}
	}
}

func (s *FormationScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.report = msg.Report
		s.rows = buildRows(msg.Report, msg.Formation, msg.Done)
		s.clampSelection()
		return s, nil

	case lessonDoneMsg:
		if msg.Err != nil {
			s.notice = "Could not complete lesson: " + msg.Err.Error()
			return s, nil
		}
		switch {
		case msg.Result.AlreadyCompleted:
			s.notice = fmt.Sprintf("%q was already complete.", msg.Title)
		case msg.Result.BlockCompleted:
			s.notice = fmt.Sprintf("Completed %q. Block finished!", msg.Title)
		default:
			s.notice = fmt.Sprintf("Completed %q. Chapter %.1f%%, block %.1f%%.",
				msg.Title, msg.Result.ChapterProgress, msg.Result.BlockProgress)
		}
		return s, s.load()

	case refreshedMsg:
		if msg.Err != nil {
			s.notice = "Could not recompute: " + msg.Err.Error()
			return s, nil
		}
		s.notice = fmt.Sprintf("Recomputed: %.1f%% (%s)", msg.Result.Progress, msg.Result.Status)
		return s, s.load()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			s.move(-1)
			return s, nil
		case "down", "j":
			s.move(1)
			return s, nil
		case "r":
			return s, s.refresh()
		case "enter":
			if s.selected < 0 || s.selected >= len(s.rows) {
				return s, nil
			}
			r := s.rows[s.selected]
			switch r.kind {
			case rowLesson:
				return s, s.completeLesson(r)
			case rowQuiz:
				q := quizrun.New(s.deps, r.quizID)
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: q} }
			}
		}
	}
	return s, nil
}

func (s *FormationScreen) move(delta int) {
	for i := s.selected + delta; i >= 0 && i < len(s.rows); i += delta {
		if s.rows[i].selectable() {
			s.selected = i
			return
		}
	}
}

// clampSelection keeps the cursor on a selectable row after a reload.
func (s *FormationScreen) clampSelection() {
	if s.selected >= 0 && s.selected < len(s.rows) && s.rows[s.selected].selectable() {
		return
	}
	s.selected = -1
	for i, r := range s.rows {
		if r.selectable() {
			s.selected = i
			return
		}
	}
}

func buildRows(rep *enrollment.Report, f *catalog.Formation, done map[string]bool) []row {
	blocks := make(map[string]catalog.Block, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b.ID] = b
	}

	var rows []row
	for _, br := range rep.Blocks {
		detail := string(br.Kind)
		if br.Passed {
			detail += " · passed"
		}
		rows = append(rows, row{kind: rowBlock, label: br.Name, detail: detail, percent: br.Progress, done: br.Passed, blockID: br.ID})

		for _, sk := range br.Skills {
			rows = append(rows, row{
				kind:    rowSkill,
				label:   sk.Name,
				detail:  fmt.Sprintf("%d attempts", sk.Attempts),
				percent: sk.Score,
				blockID: br.ID,
			})
		}

		b := blocks[br.ID]
		for _, cr := range br.Chapters {
			rows = append(rows, row{
				kind:    rowChapter,
				label:   cr.Title,
				detail:  fmt.Sprintf("%d/%d lessons", cr.CompletedLessons, cr.TotalLessons),
				percent: cr.Progress,
				blockID: br.ID,
				chapID:  cr.ID,
			})
			if ch, ok := b.Chapter(cr.ID); ok {
				lessons := append([]catalog.Lesson(nil), ch.Lessons...)
				catalog.SortLessons(lessons)
				for _, l := range lessons {
					rows = append(rows, row{
						kind:     rowLesson,
						label:    l.Title,
						done:     done[l.ID],
						blockID:  br.ID,
						chapID:   cr.ID,
						lessonID: l.ID,
					})
				}
			}
			if cr.Quiz != nil {
				rows = append(rows, quizRow(cr.Quiz, br.ID))
			}
		}
		if br.Quiz != nil {
			rows = append(rows, quizRow(br.Quiz, br.ID))
		}
	}
	return rows
}

func quizRow(q *enrollment.QuizReport, blockID string) row {
	detail := "not attempted"
	if q.Best != nil {
		detail = fmt.Sprintf("best %d", *q.Best)
		if q.Latest != nil {
			detail += fmt.Sprintf(" · latest %d", *q.Latest)
		}
		detail += fmt.Sprintf(" · %d attempts", q.Attempts)
	}
	return row{kind: rowQuiz, label: "Quiz: " + q.Title, detail: detail, done: q.Passed, blockID: blockID, quizID: q.ID}
}

func (s *FormationScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading formation...")
	}

	cw := components.ContentWidth(width)
	var b strings.Builder

	status := "not enrolled"
	if s.report.Enrolled {
		status = s.report.Status
	}
	b.WriteString(components.NewProgressBar("Overall", s.report.Progress, true, cw).View())
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render("  " + status))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(s.rows))
	for i, r := range s.rows {
		lines = append(lines, s.renderRow(i, r, cw))
	}
	lines = window(lines, s.selected, height-8)
	b.WriteString(strings.Join(lines, "\n"))

	if s.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render(s.notice))
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

func (s *FormationScreen) renderRow(i int, r row, cw int) string {
	prefix := "  "
	if i == s.selected {
		prefix = "▸ "
	}
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	switch r.kind {
	case rowBlock:
		label := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(r.label)
		return "\n" + components.NewProgressBar(label, r.percent, true, cw).View() + "  " + dim.Render(r.detail)
	case rowChapter, rowSkill:
		return "  " + components.NewProgressBar(r.label, r.percent, true, cw-2).View() + "  " + dim.Render(r.detail)
	}

	mark := theme.Pending.Render("○")
	if r.done {
		mark = theme.Done.Render("✓")
	}
	style := lipgloss.NewStyle().Foreground(theme.Text)
	if i == s.selected {
		style = theme.Selected
	}
	line := "    " + prefix + mark + " " + style.Render(r.label)
	if r.detail != "" {
		line += "  " + dim.Render(r.detail)
	}
	return line
}

// window keeps the selected line visible when there are more lines than
// fit in height.
func window(lines []string, selected, height int) []string {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	end := min(start+height, len(lines))
	return lines[start:end]
}
