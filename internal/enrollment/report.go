package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/progress"
	"github.com/abhisek/campus/internal/store"
)

// ReadRepository is the persistence the reader needs.
type ReadRepository interface {
	store.ContentRepo
	store.EnrollmentRepo
}

// Reader derives progress at read time.
type Reader struct {
	repo ReadRepository
}

func NewReader(repo ReadRepository) *Reader {
	return &Reader{repo: repo}
}

// Report is the hierarchical progress of one learner on one formation.
type Report struct {
	FormationID string        `json:"formationId"`
	Title       string        `json:"title"`
	Progress    float64       `json:"progress"`
	Complete    bool          `json:"complete"`
	Enrolled    bool          `json:"enrolled"`
	Status      string        `json:"status,omitempty"`
	Blocks      []BlockReport `json:"blocks"`
}

type BlockReport struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     catalog.BlockKind `json:"kind"`
	Progress float64           `json:"progress"`
	Started  bool              `json:"started"`
	Passed   bool              `json:"passed"`

	// Stored is the cached value on the block enrollment, if any.
	Stored   *float64        `json:"stored,omitempty"`
	Chapters []ChapterReport `json:"chapters,omitempty"`
	Skills   []SkillReport   `json:"skills,omitempty"`
	Quiz     *QuizReport     `json:"quiz,omitempty"`
}

type ChapterReport struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	CompletedLessons int         `json:"completedLessons"`
	TotalLessons     int         `json:"totalLessons"`
	LessonProgress   float64     `json:"lessonProgress"`
	Progress         float64     `json:"progress"`
	Quiz             *QuizReport `json:"quiz,omitempty"`
}

type SkillReport struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Attempts int     `json:"attempts"`
}

// QuizReport shows both the latest and the best score; Passed follows the
// best score.
type QuizReport struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Best     *int   `json:"best,omitempty"`
	Latest   *int   `json:"latest,omitempty"`
	Attempts int    `json:"attempts"`
	Passed   bool   `json:"passed"`
}

// FormationReport loads the formation for the learner and computes every
// level of progress. A learner who is not enrolled still gets a report.
func (r *Reader) FormationReport(ctx context.Context, userID, formationID string) (*Report, error) {
	f, err := r.repo.GetFormation(ctx, userID, formationID)
	if err != nil {
		return nil, fmt.Errorf("load formation %s: %w", formationID, err)
	}

	rep := &Report{
		FormationID: f.ID,
		Title:       f.Title,
		Progress:    Round(progress.FormationProgress(*f)),
		Complete:    progress.FormationComplete(*f),
	}

	fe, err := r.repo.GetFormationEnrollment(ctx, userID, formationID)
	switch {
	case err == nil:
		rep.Enrolled = true
		rep.Status = fe.Status
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	stored := map[string]float64{}
	if rep.Enrolled {
		rows, err := r.repo.ListBlockEnrollments(ctx, userID, formationID)
		if err != nil {
			return nil, fmt.Errorf("load block enrollments: %w", err)
		}
		for _, be := range rows {
			stored[be.BlockID] = be.Progress
		}
	}

	for _, b := range f.Blocks {
		br := BlockReport{
			ID:       b.ID,
			Name:     b.Name,
			Kind:     b.Kind,
			Progress: Round(progress.BlockProgress(b)),
			Started:  progress.BlockStarted(b),
			Passed:   progress.BlockPassed(b),
			Quiz:     quizReport(b.BlockQuiz()),
		}
		if v, ok := stored[b.ID]; ok {
			br.Stored = &v
		}
		for _, sk := range b.Skills {
			br.Skills = append(br.Skills, SkillReport{Name: sk.Name, Score: sk.ScoreValue(), Attempts: sk.AttemptsValue()})
		}
		for _, ch := range b.Chapters {
			lessons, err := progress.ChapterProgress(ch.CompletedLessons, ch.TotalLessons())
			if err != nil {
				return nil, fmt.Errorf("chapter %s: %w", ch.ID, err)
			}
			br.Chapters = append(br.Chapters, ChapterReport{
				ID:               ch.ID,
				Title:            ch.Title,
				CompletedLessons: ch.CompletedLessons,
				TotalLessons:     ch.TotalLessons(),
				LessonProgress:   Round(lessons),
				Progress:         Round(progress.WithQuiz(lessons, ch.ChapterQuiz())),
				Quiz:             quizReport(ch.ChapterQuiz()),
			})
		}
		rep.Blocks = append(rep.Blocks, br)
	}
	return rep, nil
}

func quizReport(q *catalog.Quiz) *QuizReport {
	if q == nil {
		return nil
	}
	return &QuizReport{
		ID:       q.ID,
		Title:    q.Title,
		Best:     q.BestScore,
		Latest:   q.LatestScore,
		Attempts: q.AttemptCount,
		Passed:   q.Passed(),
	}
}
