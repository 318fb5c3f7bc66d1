package quizrun

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/quiz"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/ui/components"
	"github.com/abhisek/campus/internal/ui/layout"
	"github.com/abhisek/campus/internal/ui/theme"
)

type quizLoadedMsg struct {
	Quiz *catalog.Quiz
	Err  error
}

type finishedMsg struct {
	Result quiz.Result
	Err    error
}

type persistedMsg struct {
	Err error
}

// QuizScreen runs one quiz session: a question at a time with immediate
// feedback, then the score and a review.
type QuizScreen struct {
	deps   screens.Deps
	quizID string

	sess     *quiz.Session
	choice   components.MultiChoice
	feedback *quiz.Feedback
	result   quiz.Result
	buttons  components.ButtonRow

	busy       bool
	errMsg     string
	persistErr error
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates a QuizScreen for quizID.
func New(deps screens.Deps, quizID string) *QuizScreen {
	return &QuizScreen{deps: deps, quizID: quizID}
}

func (s *QuizScreen) Init() tea.Cmd {
	deps, id := s.deps, s.quizID
	return func() tea.Msg {
		q, err := deps.Repo.GetQuiz(context.Background(), deps.UserID, id)
		return quizLoadedMsg{Quiz: q, Err: err}
	}
}

func (s *QuizScreen) Title() string {
	if s.sess != nil {
		return s.sess.Quiz().Title
	}
	return "Quiz"
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.sess == nil:
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	case s.sess.Phase() == quiz.Completed:
		hints := []layout.KeyHint{
			{Key: "←→", Description: "Choose"},
			{Key: "Enter", Description: "Confirm"},
		}
		if s.persistErr != nil {
			hints = append(hints, layout.KeyHint{Key: "r", Description: "Retry save"})
		}
		return hints
	case s.sess.Phase() == quiz.Reviewing:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Explore"},
			{Key: "n", Description: "Next question"},
			{Key: "Esc", Description: "Abandon"},
		}
	default:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Abandon"},
		}
	}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		sess, err := quiz.NewSession(*msg.Quiz, s.deps.UserID, s.deps.Writer)
		if err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		s.sess = sess
		s.showQuestion()
		return s, nil

	case components.ChoiceMadeMsg:
		return s, s.selectAnswer(msg.ID)

	case finishedMsg:
		s.busy = false
		s.result = msg.Result
		s.persistErr = nil
		var perr *quiz.PersistenceError
		switch {
		case errors.As(msg.Err, &perr):
			s.persistErr = msg.Err
			s.deps.Logger().Warn("quiz attempt not recorded", "quiz", s.quizID, "error", msg.Err)
		case msg.Err != nil:
			s.errMsg = msg.Err.Error()
			return s, nil
		default:
			s.deps.Logger().Info("quiz completed", "quiz", s.quizID, "score", msg.Result.Score)
		}
		s.buttons = s.completionButtons()
		return s, nil

	case persistedMsg:
		s.busy = false
		s.persistErr = msg.Err
		return s, nil

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		if msg.String() == "esc" {
			return s, pop
		}
		if s.sess == nil {
			return s, nil
		}
		switch s.sess.Phase() {
		case quiz.Completed:
			if msg.String() == "r" && s.persistErr != nil {
				s.busy = true
				return s, s.persist()
			}
			var cmd tea.Cmd
			s.buttons, cmd = s.buttons.Update(msg)
			return s, cmd
		case quiz.Reviewing:
			switch msg.String() {
			case "n", "tab":
				return s, s.advance()
			}
		}
		var cmd tea.Cmd
		s.choice, cmd = s.choice.Update(msg)
		return s, cmd
	}
	return s, nil
}

func pop() tea.Msg { return router.PopScreenMsg{} }

func (s *QuizScreen) showQuestion() {
	q := s.sess.Current()
	opts := make([]components.Choice, 0, len(q.Answers))
	for _, a := range q.Answers {
		opts = append(opts, components.Choice{ID: a.ID, Text: a.Text})
	}
	s.choice = components.NewMultiChoice(q.Text, opts)
	s.feedback = nil
}

func (s *QuizScreen) selectAnswer(answerID string) tea.Cmd {
	if s.sess == nil || s.busy {
		return nil
	}
	fb, err := s.sess.SelectAnswer(s.sess.Current().ID, answerID)
	if err != nil {
		s.errMsg = err.Error()
		return nil
	}
	s.feedback = &fb
	s.choice.Reveal(fb.AnswerID, fb.CorrectIDs)
	return nil
}

// advance moves to the next question in place. The last question scores
// the session and records the attempt off the update loop.
func (s *QuizScreen) advance() tea.Cmd {
	if s.sess.Index() < s.sess.Total()-1 {
		if _, err := s.sess.Advance(context.Background()); err != nil {
			s.errMsg = err.Error()
			return nil
		}
		s.showQuestion()
		return nil
	}
	s.busy = true
	sess := s.sess
	return func() tea.Msg {
		res, err := sess.Advance(context.Background())
		return finishedMsg{Result: res, Err: err}
	}
}

func (s *QuizScreen) persist() tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		return persistedMsg{Err: sess.Persist(context.Background())}
	}
}

func (s *QuizScreen) completionButtons() components.ButtonRow {
	deps, id := s.deps, s.quizID
	return components.NewButtonRow(
		components.NewButton("Back", false, func() tea.Cmd { return pop }),
		components.NewButton("Retake", false, func() tea.Cmd {
			return func() tea.Msg { return router.ReplaceScreenMsg{Screen: New(deps, id)} }
		}),
	)
}

func (s *QuizScreen) View(width, height int) string {
	center := func(str string) string {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, str)
	}
	switch {
	case s.errMsg != "":
		return center(lipgloss.NewStyle().Foreground(theme.Error).Render("Error: " + s.errMsg))
	case s.sess == nil:
		return center(theme.Hint.Render("Loading quiz..."))
	case s.busy:
		return center(theme.Hint.Render("Saving attempt..."))
	case s.sess.Phase() == quiz.Completed:
		return center(s.viewCompleted(components.ContentWidth(width)))
	}

	cw := components.ContentWidth(width)
	var b strings.Builder
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("Question %d of %d", s.sess.Index()+1, s.sess.Total())))
	b.WriteString("\n")
	b.WriteString(components.NewProgressBar("", float64(s.sess.Index())/float64(s.sess.Total())*100, false, cw).View())
	b.WriteString("\n\n")
	b.WriteString(s.choice.View())

	if s.feedback != nil {
		b.WriteString("\n")
		b.WriteString(renderFeedback(*s.feedback, cw))
	}
	return center(b.String())
}

func renderFeedback(fb quiz.Feedback, cw int) string {
	var lines []string
	if fb.Correct {
		lines = append(lines, theme.Correct.Render("Correct!"))
	} else {
		lines = append(lines, theme.Incorrect.Render("Not quite."))
	}
	if fb.Explanation != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Text).Width(cw-4).Render(fb.Explanation))
	}
	if !fb.Scored {
		lines = append(lines, theme.Hint.Render("Only your first answer counts toward the score."))
	}
	return components.Card(strings.Join(lines, "\n"), cw)
}

func (s *QuizScreen) viewCompleted(cw int) string {
	var b strings.Builder

	verdict := theme.Incorrect.Render(fmt.Sprintf("Below the pass mark of %d", catalog.PassThreshold))
	if s.result.Score >= catalog.PassThreshold {
		verdict = theme.Correct.Render("Passed")
	}
	b.WriteString(theme.Title.Render(fmt.Sprintf("Score: %d", s.result.Score)))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("%d of %d correct", s.result.Correct, s.result.Total)))
	b.WriteString("\n")
	b.WriteString(verdict)
	b.WriteString("\n\n")

	var review []string
	for i, r := range s.sess.Review() {
		mark := theme.Incorrect.Render("✗")
		if r.Correct {
			mark = theme.Correct.Render("✓")
		}
		review = append(review, fmt.Sprintf("%s %d. %s", mark, i+1, r.Question.Text))
	}
	b.WriteString(components.Card(strings.Join(review, "\n"), cw))
	b.WriteString("\n\n")

	if s.persistErr != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Warning).Width(cw).
			Render("Your attempt was not saved: " + s.persistErr.Error() + "\nPress r to try again."))
		b.WriteString("\n\n")
	}
	b.WriteString(s.buttons.View())
	return b.String()
}
