// Package quiz runs a single quiz-taking session: one question at a time,
// immediate feedback, a final score and one recorded attempt.
package quiz

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/campus/internal/catalog"
)

// Phase is where a session is in its lifecycle.
type Phase int

const (
	// Answering waits for a selection on the current question.
	Answering Phase = iota
	// Reviewing shows feedback for the current question until Advance.
	Reviewing
	// Completed is terminal.
	Completed
)

func (p Phase) String() string {
	switch p {
	case Answering:
		return "answering"
	case Reviewing:
		return "reviewing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// AttemptRecorder persists finished attempts.
type AttemptRecorder interface {
	InsertQuizAttempt(ctx context.Context, attempt catalog.QuizAttempt) error
}

// Feedback is shown right after a selection.
type Feedback struct {
	QuestionID string
	AnswerID   string
	Correct    bool

	// Explanation is the chosen answer's explanation, falling back to the
	// question's.
	Explanation string
	CorrectIDs  []string

	// Scored is false when the selection replaced an earlier one; only the
	// first selection counts toward the score.
	Scored bool
}

// Result describes the session after Advance.
type Result struct {
	Phase   Phase
	Index   int
	Total   int
	Correct int
	Score   int
}

// Session is a single-use quiz run. It is not safe for concurrent use.
type Session struct {
	quiz   catalog.Quiz
	userID string
	rec    AttemptRecorder

	phase    Phase
	index    int
	first    map[string]string
	shown    string
	correct  int
	score    int
	attempt  *catalog.QuizAttempt
	recorded bool

	now   func() time.Time
	newID func() string
}

// NewSession starts a session at the first question. Questions and answers
// are taken in order_index order.
func NewSession(q catalog.Quiz, userID string, rec AttemptRecorder) (*Session, error) {
	if len(q.Questions) == 0 {
		return nil, &PreconditionError{QuizID: q.ID, Reason: ErrNoQuestions.Reason}
	}
	q.Questions = slices.Clone(q.Questions)
	for i := range q.Questions {
		q.Questions[i].Answers = slices.Clone(q.Questions[i].Answers)
	}
	catalog.SortQuestions(q.Questions)

	return &Session{
		quiz:   q,
		userID: userID,
		rec:    rec,
		first:  make(map[string]string, len(q.Questions)),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}, nil
}

// Quiz returns the quiz with its questions in session order.
func (s *Session) Quiz() catalog.Quiz { return s.quiz }

func (s *Session) Phase() Phase { return s.phase }
func (s *Session) Index() int   { return s.index }
func (s *Session) Total() int   { return len(s.quiz.Questions) }

// Current returns the question being answered or reviewed. After
// completion it returns the last question.
func (s *Session) Current() catalog.Question {
	return s.quiz.Questions[s.index]
}

// Selected returns the answer currently shown for the current question.
func (s *Session) Selected() string { return s.shown }

// Score is the final score; it is 0 until the session completes.
func (s *Session) Score() int { return s.score }

// Recorded reports whether the attempt has been persisted.
func (s *Session) Recorded() bool { return s.recorded }

// SelectAnswer picks an answer for the current question and moves to
// Reviewing. Picking again before Advance changes the shown answer; the
// first pick stays the scored one.
func (s *Session) SelectAnswer(questionID, answerID string) (Feedback, error) {
	if s.phase == Completed {
		return Feedback{}, ErrSessionCompleted
	}

	q, pos, ok := s.question(questionID)
	if !ok {
		return Feedback{}, ErrUnknownQuestion
	}
	if pos != s.index {
		return Feedback{}, ErrAnswerLocked
	}
	a, ok := q.Answer(answerID)
	if !ok {
		return Feedback{}, ErrUnknownAnswer
	}

	_, already := s.first[questionID]
	if !already {
		s.first[questionID] = answerID
	}
	s.shown = answerID
	s.phase = Reviewing

	fb := Feedback{
		QuestionID:  questionID,
		AnswerID:    answerID,
		Correct:     a.IsCorrect,
		Explanation: a.Explanation,
		Scored:      !already,
	}
	if fb.Explanation == "" {
		fb.Explanation = q.Explanation
	}
	for _, c := range q.CorrectAnswers() {
		fb.CorrectIDs = append(fb.CorrectIDs, c.ID)
	}
	return fb, nil
}

// Advance locks the current answer. On the last question it scores the
// session, enters Completed and records the attempt. A recording failure is
// returned as *PersistenceError alongside the completed Result.
func (s *Session) Advance(ctx context.Context) (Result, error) {
	switch s.phase {
	case Completed:
		return s.result(), ErrSessionCompleted
	case Answering:
		return s.result(), ErrNoSelection
	}

	if s.index < len(s.quiz.Questions)-1 {
		s.index++
		s.shown = ""
		s.phase = Answering
		return s.result(), nil
	}

	s.correct = s.countCorrect()
	s.score = Score(s.correct, len(s.quiz.Questions))
	s.phase = Completed
	s.attempt = &catalog.QuizAttempt{
		ID:          s.newID(),
		QuizID:      s.quiz.ID,
		UserID:      s.userID,
		Score:       s.score,
		IsCompleted: true,
		CreatedAt:   s.now(),
	}
	return s.result(), s.Persist(ctx)
}

// Persist records the finished attempt. It is a no-op once the attempt has
// been recorded, so retrying after a PersistenceError never double-inserts.
func (s *Session) Persist(ctx context.Context) error {
	if s.phase != Completed || s.attempt == nil {
		return ErrNotCompleted
	}
	if s.recorded {
		return nil
	}
	if s.rec == nil {
		return &PersistenceError{QuizID: s.quiz.ID, Score: s.score, Err: ErrNoRecorder}
	}
	if err := s.rec.InsertQuizAttempt(ctx, *s.attempt); err != nil {
		return &PersistenceError{QuizID: s.quiz.ID, Score: s.score, Err: err}
	}
	s.recorded = true
	return nil
}

// Attempt returns the attempt built on completion, or nil before it.
func (s *Session) Attempt() *catalog.QuizAttempt {
	if s.attempt == nil {
		return nil
	}
	a := *s.attempt
	return &a
}

// Review lists each question with the first selected answer.
func (s *Session) Review() []Reviewed {
	out := make([]Reviewed, 0, len(s.quiz.Questions))
	for _, q := range s.quiz.Questions {
		r := Reviewed{Question: q, AnswerID: s.first[q.ID]}
		if a, ok := q.Answer(r.AnswerID); ok {
			r.Correct = a.IsCorrect
		}
		out = append(out, r)
	}
	return out
}

// Reviewed is one line of the end-of-quiz review.
type Reviewed struct {
	Question catalog.Question
	AnswerID string
	Correct  bool
}

func (s *Session) question(id string) (catalog.Question, int, bool) {
	for i, q := range s.quiz.Questions {
		if q.ID == id {
			return q, i, true
		}
	}
	return catalog.Question{}, 0, false
}

func (s *Session) countCorrect() int {
	n := 0
	for _, q := range s.quiz.Questions {
		if a, ok := q.Answer(s.first[q.ID]); ok && a.IsCorrect {
			n++
		}
	}
	return n
}

func (s *Session) result() Result {
	return Result{
		Phase:   s.phase,
		Index:   s.index,
		Total:   len(s.quiz.Questions),
		Correct: s.correct,
		Score:   s.score,
	}
}

// Score converts a correct count into a 0-100 score, rounding half away
// from zero.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
