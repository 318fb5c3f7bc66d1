// Package screentest seeds a store and drives screens in tests.
package screentest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/router"
	"github.com/abhisek/campus/internal/screen"
	"github.com/abhisek/campus/internal/screens"
	"github.com/abhisek/campus/internal/store"
)

// UserID is the learner every helper acts for.
const UserID = "ada"

// FormationID is the ID of the seeded formation.
const FormationID = "f-go"

// formationDoc has one skills block and one chapters block with a chapter
// quiz and a block quiz.
const formationDoc = `{
  "format_version": "v1.0.0",
  "formation": {
    "id": "f-go",
    "title": "Go for Backend Engineers",
    "blocks": [
      {
        "id": "b-concurrency",
        "name": "Concurrency",
        "order_index": 2,
        "chapters": [
          {
            "id": "c-channels",
            "title": "Channels",
            "order_index": 1,
            "lessons": [
              {"id": "l-unbuffered", "title": "Unbuffered channels", "order_index": 2},
              {"id": "l-buffered", "title": "Buffered channels", "order_index": 1}
            ],
            "quizzes": [
              {
                "id": "q-channels",
                "title": "Channels check",
                "questions": [
                  {
                    "id": "qq-close",
                    "question": "Who should close a channel?",
                    "explanation": "Only the sender knows no more values are coming.",
                    "order_index": 1,
                    "answers": [
                      {"id": "a-sender", "answer": "The sender", "is_correct": true, "order_index": 2},
                      {"id": "a-receiver", "answer": "The receiver", "is_correct": false, "order_index": 1}
                    ]
                  }
                ]
              }
            ]
          }
        ],
        "quizzes": [
          {
            "id": "q-concurrency",
            "title": "Concurrency final",
            "quiz_type": "block_quiz",
            "questions": [
              {
                "id": "qq-race",
                "question": "Which flag enables the race detector?",
                "order_index": 1,
                "answers": [
                  {"id": "a-race", "answer": "-race", "is_correct": true, "order_index": 1},
                  {"id": "a-msan", "answer": "-msan", "is_correct": false, "order_index": 2}
                ]
              },
              {
                "id": "qq-vet",
                "question": "Which command reports suspicious constructs?",
                "order_index": 2,
                "answers": [
                  {"id": "a-vet", "answer": "go vet", "is_correct": true, "order_index": 1},
                  {"id": "a-fmt", "answer": "go fmt", "is_correct": false, "order_index": 2}
                ]
              }
            ]
          }
        ]
      },
      {
        "id": "b-basics",
        "name": "Basics",
        "order_index": 1,
        "skills": [
          {"name": "syntax", "score": 80},
          {"name": "tooling", "attempts": 2}
        ]
      }
    ]
  }
}`

// Deps opens a fresh store with the formation imported. The learner is not
// enrolled.
func Deps(t testing.TB) (screens.Deps, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "campus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f, err := catalog.Decode(strings.NewReader(formationDoc))
	if err != nil {
		t.Fatalf("decode formation: %v", err)
	}
	if err := s.SaveFormation(context.Background(), f); err != nil {
		t.Fatalf("save formation: %v", err)
	}

	return screens.Deps{
		UserID: UserID,
		Repo:   s,
		Events: s,
		Writer: enrollment.NewWriter(s, s.SnapshotRepo(), nil),
		Reader: enrollment.NewReader(s),
	}, s
}

// Enroll enrolls the learner in the seeded formation.
func Enroll(t testing.TB, d screens.Deps) {
	t.Helper()
	if _, err := d.Writer.Enroll(context.Background(), d.UserID, FormationID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

// KeyPress builds a printable key press.
func KeyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// SpecialKey builds a non-printable key press such as tea.KeyEnter.
func SpecialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

// Drain runs cmd and feeds every message it yields back into s until no
// command is left. Router messages are not delivered; they are returned so
// tests can assert on navigation.
func Drain(s screen.Screen, cmd tea.Cmd) (screen.Screen, []tea.Msg) {
	var nav []tea.Msg
	for i := 0; cmd != nil && i < 32; i++ {
		msg := cmd()
		switch msg.(type) {
		case nil:
			return s, nav
		case router.PushScreenMsg, router.PopScreenMsg, router.ReplaceScreenMsg:
			nav = append(nav, msg)
			return s, nav
		}
		s, cmd = s.Update(msg)
	}
	return s, nav
}

// Press delivers key to s and drains the resulting command.
func Press(s screen.Screen, key tea.KeyPressMsg) (screen.Screen, []tea.Msg) {
	s, cmd := s.Update(key)
	return Drain(s, cmd)
}

// Start runs Init and drains it.
func Start(s screen.Screen) (screen.Screen, []tea.Msg) {
	return Drain(s, s.Init())
}
