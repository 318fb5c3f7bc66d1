package quiz

import (
	"errors"
	"fmt"
)

// PreconditionError reports a quiz that cannot be taken at all.
type PreconditionError struct {
	QuizID string
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.QuizID == "" {
		return "quiz: " + e.Reason
	}
	return fmt.Sprintf("quiz %s: %s", e.QuizID, e.Reason)
}

// Is matches any PreconditionError with the same reason, so callers can
// test errors.Is(err, ErrNoQuestions) regardless of the quiz ID.
func (e *PreconditionError) Is(target error) bool {
	t, ok := target.(*PreconditionError)
	return ok && t.Reason == e.Reason
}

// ErrNoQuestions is returned by NewSession for a quiz without questions.
var ErrNoQuestions = &PreconditionError{Reason: "quiz has no questions"}

// PersistenceError reports that a finished attempt could not be recorded.
// The session keeps its score; call Persist again to retry.
type PersistenceError struct {
	QuizID string
	Score  int
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record attempt for quiz %s (score %d): %v", e.QuizID, e.Score, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable is always true: a failed insert leaves nothing behind.
func (e *PersistenceError) Retryable() bool { return true }

var (
	ErrUnknownQuestion  = errors.New("quiz: unknown question")
	ErrUnknownAnswer    = errors.New("quiz: unknown answer")
	ErrAnswerLocked     = errors.New("quiz: answer is locked")
	ErrNoSelection      = errors.New("quiz: no answer selected")
	ErrSessionCompleted = errors.New("quiz: session already completed")
	ErrNotCompleted     = errors.New("quiz: session not completed")
	ErrNoRecorder       = errors.New("quiz: no attempt recorder")
)
