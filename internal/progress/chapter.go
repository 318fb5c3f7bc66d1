package progress

import "github.com/abhisek/campus/internal/catalog"

// Weights applied when a chapter or block carries a quiz.
const (
	ChapterLessonWeight = 0.75
	ChapterQuizWeight   = 0.25

	BlockChapterWeight = 0.80
	BlockQuizWeight    = 0.20
)

// ChapterProgress is the lesson share of a chapter: 100*completed/total.
// A chapter without lessons is at 0.
func ChapterProgress(completed, total int) (float64, error) {
	if total < 0 {
		return 0, &ShapeError{Field: "total lessons", Value: total, Reason: "negative"}
	}
	if completed < 0 {
		return 0, &ShapeError{Field: "completed lessons", Value: completed, Reason: "negative"}
	}
	if completed > total {
		return 0, &ShapeError{Field: "completed lessons", Value: completed, Reason: "exceeds total lessons"}
	}
	if total == 0 {
		return 0, nil
	}
	return 100 * float64(completed) / float64(total), nil
}

// QuizCredit is 100 for a passed quiz and 0 otherwise, including nil.
func QuizCredit(q *catalog.Quiz) float64 {
	if q != nil && q.Passed() {
		return 100
	}
	return 0
}

// WithQuiz blends a lesson share with the chapter quiz credit.
func WithQuiz(lessonProgress float64, q *catalog.Quiz) float64 {
	if q == nil {
		return lessonProgress
	}
	return ChapterLessonWeight*lessonProgress + ChapterQuizWeight*QuizCredit(q)
}

// ChapterTotal is the full progress of a loaded chapter, lesson share plus
// chapter quiz credit when the chapter has a quiz.
func ChapterTotal(ch catalog.Chapter) (float64, error) {
	lessons, err := ChapterProgress(ch.CompletedLessons, ch.TotalLessons())
	if err != nil {
		return 0, err
	}
	return WithQuiz(lessons, ch.ChapterQuiz()), nil
}
