package catalog

import "time"

// QuizAttempt is one completed pass through a quiz. Attempts are
// append-only: retaking a quiz adds a row and never replaces one.
type QuizAttempt struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
}
