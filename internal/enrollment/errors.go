package enrollment

import (
	"errors"
	"fmt"
)

// PersistenceError reports a failed repository write. Nothing computed
// after the failing step was stored, so the caller can retry the whole
// operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }

var (
	// ErrLessonNotInChapter is returned when the lesson, chapter and block
	// IDs of a completion do not belong together.
	ErrLessonNotInChapter = errors.New("lesson does not belong to chapter")
	ErrChapterNotInBlock  = errors.New("chapter does not belong to block")
	ErrNotChaptersBlock   = errors.New("block does not use chapters")
	ErrInvalidScore       = errors.New("attempt score outside 0-100")
	ErrNotEnrolled        = errors.New("learner is not enrolled")
)
