package catalog

// PassThreshold is the minimum quiz score (0-100) that counts as a pass.
const PassThreshold = 70

// QuizType scopes a quiz to a chapter or to a whole block.
type QuizType string

const (
	QuizTypeChapter QuizType = "chapter_quiz"
	QuizTypeBlock   QuizType = "block_quiz"
)

// Formation is a full course made of ordered blocks.
type Formation struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Blocks      []Block `json:"blocks"`
}

// Skill is a flat competency entry on a skills-based block.
// Level, Score and Attempts are nil until the learner touches the skill.
type Skill struct {
	Name     string   `json:"name"`
	Level    *int     `json:"level,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Attempts *int     `json:"attempts,omitempty"`
}

// ScoreValue returns the score, treating nil as 0.
func (s Skill) ScoreValue() float64 {
	if s.Score == nil {
		return 0
	}
	return *s.Score
}

// AttemptsValue returns the attempt count, treating nil as 0.
func (s Skill) AttemptsValue() int {
	if s.Attempts == nil {
		return 0
	}
	return *s.Attempts
}

// Chapter groups lessons and at most one chapter quiz.
type Chapter struct {
	ID         string   `json:"id"`
	BlockID    string   `json:"block_id,omitempty"`
	Title      string   `json:"title"`
	OrderIndex int      `json:"order_index"`
	Lessons    []Lesson `json:"lessons"`
	Quizzes    []Quiz   `json:"quizzes,omitempty"`

	// CompletedLessons is learner-scoped: the number of distinct lessons of
	// this chapter the learner has completed.
	CompletedLessons int `json:"-"`
}

// TotalLessons returns the number of lessons in the chapter.
func (c Chapter) TotalLessons() int {
	return len(c.Lessons)
}

// ChapterQuiz returns the chapter's quiz, or nil if it has none.
func (c Chapter) ChapterQuiz() *Quiz {
	for i := range c.Quizzes {
		if c.Quizzes[i].Type == QuizTypeChapter {
			return &c.Quizzes[i]
		}
	}
	return nil
}

// Lesson is the atomic content unit. Completion is tracked per learner
// outside the catalog.
type Lesson struct {
	ID         string `json:"id"`
	ChapterID  string `json:"chapter_id,omitempty"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	Duration   *int   `json:"duration,omitempty"`
	OrderIndex int    `json:"order_index"`
}

// Quiz is an assessment attached to a chapter or a block.
type Quiz struct {
	ID        string     `json:"id"`
	BlockID   string     `json:"block_id,omitempty"`
	Title     string     `json:"title"`
	Type      QuizType   `json:"quiz_type"`
	ChapterID *string    `json:"chapter_id,omitempty"`
	Questions []Question `json:"questions"`

	// Learner-scoped attempt summary, filled when loading for a user.
	BestScore    *int `json:"-"`
	LatestScore  *int `json:"-"`
	AttemptCount int  `json:"-"`
}

// Attempted reports whether the learner has at least one recorded attempt.
func (q Quiz) Attempted() bool {
	return q.AttemptCount > 0 || q.BestScore != nil
}

// Passed reports whether the learner's best score reaches PassThreshold.
// Best score is the single policy for pass gating and progress credit.
func (q Quiz) Passed() bool {
	return q.BestScore != nil && *q.BestScore >= PassThreshold
}

// Question is one multiple-choice item of a quiz.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"question"`
	Explanation string   `json:"explanation,omitempty"`
	OrderIndex  int      `json:"order_index"`
	Answers     []Answer `json:"answers"`
}

// Answer returns the answer with the given ID.
func (q Question) Answer(id string) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

// CorrectAnswers returns the answers flagged correct.
func (q Question) CorrectAnswers() []Answer {
	var out []Answer
	for _, a := range q.Answers {
		if a.IsCorrect {
			out = append(out, a)
		}
	}
	return out
}

// Answer is one option of a question.
type Answer struct {
	ID          string `json:"id"`
	Text        string `json:"answer"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
	OrderIndex  int    `json:"order_index"`
}
