package store

import "time"

// Row types mirror table columns for entsql.ScanSlice. Nullable columns are
// pointers.

type formationRow struct {
	ID          string `sql:"id"`
	Title       string `sql:"title"`
	Description string `sql:"description"`
	ImportedAt  int64  `sql:"imported_at"`
}

type blockRow struct {
	ID          string `sql:"id"`
	FormationID string `sql:"formation_id"`
	Name        string `sql:"name"`
	Description string `sql:"description"`
	OrderIndex  int    `sql:"order_index"`
	Kind        string `sql:"kind"`
}

type skillRow struct {
	BlockID    string   `sql:"block_id"`
	Name       string   `sql:"name"`
	Level      *int     `sql:"level"`
	Score      *float64 `sql:"score"`
	Attempts   *int     `sql:"attempts"`
	OrderIndex int      `sql:"order_index"`
}

type chapterRow struct {
	ID         string `sql:"id"`
	BlockID    string `sql:"block_id"`
	Title      string `sql:"title"`
	OrderIndex int    `sql:"order_index"`
}

type lessonRow struct {
	ID         string `sql:"id"`
	ChapterID  string `sql:"chapter_id"`
	Title      string `sql:"title"`
	Content    string `sql:"content"`
	Duration   *int   `sql:"duration"`
	OrderIndex int    `sql:"order_index"`
}

type quizRow struct {
	ID        string  `sql:"id"`
	BlockID   string  `sql:"block_id"`
	ChapterID *string `sql:"chapter_id"`
	Title     string  `sql:"title"`
	QuizType  string  `sql:"quiz_type"`
}

type questionRow struct {
	ID          string `sql:"id"`
	QuizID      string `sql:"quiz_id"`
	Question    string `sql:"question"`
	Explanation string `sql:"explanation"`
	OrderIndex  int    `sql:"order_index"`
}

type answerRow struct {
	ID          string `sql:"id"`
	QuestionID  string `sql:"question_id"`
	Answer      string `sql:"answer"`
	IsCorrect   bool   `sql:"is_correct"`
	Explanation string `sql:"explanation"`
	OrderIndex  int    `sql:"order_index"`
}

type lessonProgressRow struct {
	LessonID  string `sql:"lesson_id"`
	ChapterID string `sql:"chapter_id"`
}

type attemptRow struct {
	ID          string `sql:"id"`
	QuizID      string `sql:"quiz_id"`
	UserID      string `sql:"user_id"`
	Score       int    `sql:"score"`
	IsCompleted bool   `sql:"is_completed"`
	CreatedAt   int64  `sql:"created_at"`
}

type scoreSummaryRow struct {
	QuizID string `sql:"quiz_id"`
	Best   *int   `sql:"best"`
	Count  int    `sql:"attempts"`
}

type enrollmentRow struct {
	UserID      string  `sql:"user_id"`
	FormationID string  `sql:"formation_id"`
	BlockID     string  `sql:"block_id"`
	Status      string  `sql:"status"`
	Progress    float64 `sql:"progress"`
	EnrolledAt  int64   `sql:"enrolled_at"`
	UpdatedAt   int64   `sql:"updated_at"`
	CompletedAt *int64  `sql:"completed_at"`
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }
