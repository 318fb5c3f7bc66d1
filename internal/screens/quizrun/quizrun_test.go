package quizrun

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/campus/internal/quiz"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screens/screentest"
)

func startQuiz(t *testing.T, quizID string) (*QuizScreen, func(tea.KeyPressMsg) []tea.Msg) {
	t.Helper()
	deps, _ := screentest.Deps(t)
	screentest.Enroll(t, deps)
	q := New(deps, quizID)
	screentest.Start(q)
	press := func(k tea.KeyPressMsg) []tea.Msg {
		_, nav := screentest.Press(q, k)
		return nav
	}
	return q, press
}

func TestFirstSelectionIsScored(t *testing.T) {
	q, press := startQuiz(t, "q-channels")
	if q.sess == nil {
		t.Fatalf("session not started: %s", q.errMsg)
	}

	// Answers are in order_index order: the receiver comes first.
	press(screentest.SpecialKey(tea.KeyEnter))
	if q.feedback == nil || q.feedback.Correct {
		t.Fatalf("expected incorrect feedback, got %+v", q.feedback)
	}
	if !strings.Contains(q.View(100, 30), "Not quite.") {
		t.Error("expected feedback in the view")
	}
	if !strings.Contains(q.View(100, 30), "Only the sender knows") {
		t.Error("expected the question explanation")
	}

	press(screentest.SpecialKey(tea.KeyDown))
	press(screentest.SpecialKey(tea.KeyEnter))
	if !q.feedback.Correct || q.feedback.Scored {
		t.Fatalf("expected unscored correct feedback, got %+v", q.feedback)
	}

	press(screentest.KeyPress('n'))
	if q.sess.Phase() != quiz.Completed {
		t.Fatalf("expected completed, got %s", q.sess.Phase())
	}
	if q.result.Score != 0 {
		t.Errorf("expected score 0 from the first pick, got %d", q.result.Score)
	}
	if q.persistErr != nil {
		t.Fatalf("unexpected persist error: %v", q.persistErr)
	}

	attempts, err := q.deps.Repo.ListQuizAttempts(context.Background(), screentest.UserID, "q-channels")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 || attempts[0].Score != 0 {
		t.Errorf("expected one recorded attempt with score 0, got %+v", attempts)
	}
	if !strings.Contains(q.View(100, 30), "Score: 0") {
		t.Error("expected score in completion view")
	}
}

func TestMultiQuestionPassAndRetake(t *testing.T) {
	q, press := startQuiz(t, "q-concurrency")

	press(screentest.SpecialKey(tea.KeyEnter)) // -race
	press(screentest.KeyPress('n'))
	if q.sess.Index() != 1 || q.sess.Phase() != quiz.Answering {
		t.Fatalf("expected second question answering, got index %d phase %s", q.sess.Index(), q.sess.Phase())
	}
	if q.feedback != nil {
		t.Error("feedback should reset on a new question")
	}

	press(screentest.SpecialKey(tea.KeyEnter)) // go vet
	press(screentest.KeyPress('n'))
	if q.result.Score != 100 {
		t.Fatalf("expected 100, got %d", q.result.Score)
	}
	if !strings.Contains(q.View(100, 30), "Passed") {
		t.Error("expected pass verdict")
	}

	best, err := q.deps.Repo.GetBestQuizScore(context.Background(), screentest.UserID, "q-concurrency")
	if err != nil || best == nil || *best != 100 {
		t.Fatalf("expected best 100, got %v (%v)", best, err)
	}

	press(screentest.SpecialKey(tea.KeyRight))
	nav := press(screentest.SpecialKey(tea.KeyEnter))
	if len(nav) != 1 {
		t.Fatalf("expected navigation, got %d messages", len(nav))
	}
	repl, ok := nav[0].(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", nav[0])
	}
	if _, ok := repl.Screen.(*QuizScreen); !ok {
		t.Errorf("expected a fresh quiz screen, got %T", repl.Screen)
	}
}

func TestNextIgnoredWhileAnswering(t *testing.T) {
	q, press := startQuiz(t, "q-concurrency")
	press(screentest.KeyPress('n'))
	if q.sess.Index() != 0 || q.sess.Phase() != quiz.Answering {
		t.Errorf("n without a selection should do nothing, got index %d phase %s", q.sess.Index(), q.sess.Phase())
	}
}

func TestBackButtonPops(t *testing.T) {
	q, press := startQuiz(t, "q-channels")
	press(screentest.SpecialKey(tea.KeyEnter))
	press(screentest.KeyPress('n'))
	if q.sess.Phase() != quiz.Completed {
		t.Fatal("expected completed")
	}
	nav := press(screentest.SpecialKey(tea.KeyEnter))
	if len(nav) != 1 {
		t.Fatalf("expected navigation, got %d messages", len(nav))
	}
	if _, ok := nav[0].(router.PopScreenMsg); !ok {
		t.Errorf("expected PopScreenMsg, got %T", nav[0])
	}
}

func TestUnknownQuiz(t *testing.T) {
	q, _ := startQuiz(t, "q-missing")
	if q.errMsg == "" {
		t.Fatal("expected an error for an unknown quiz")
	}
	if !strings.Contains(q.View(100, 30), "Error") {
		t.Error("expected error view")
	}
}
