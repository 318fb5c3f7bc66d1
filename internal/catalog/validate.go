package catalog

import (
	"fmt"
	"strings"
)

// Validate performs the structural checks on a formation. It returns a
// combined error describing every problem found, or nil if valid.
func Validate(f Formation) error {
	var errs []string
	seen := make(map[string]string)

	claim := func(kind, id string) {
		if id == "" {
			errs = append(errs, fmt.Sprintf("%s with empty ID", kind))
			return
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Sprintf("duplicate ID %q (%s and %s)", id, prev, kind))
			return
		}
		seen[id] = kind
	}

	claim("formation", f.ID)
	if len(f.Blocks) == 0 {
		errs = append(errs, fmt.Sprintf("formation %q has no blocks", f.ID))
	}

	for _, b := range f.Blocks {
		claim("block", b.ID)
		switch b.Kind {
		case KindSkills:
			if len(b.Chapters) > 0 {
				errs = append(errs, fmt.Sprintf("block %q: skills block carries chapters", b.ID))
			}
			for _, s := range b.Skills {
				if s.Score != nil && (*s.Score < 0 || *s.Score > 100) {
					errs = append(errs, fmt.Sprintf("block %q skill %q: score %v outside [0,100]", b.ID, s.Name, *s.Score))
				}
				if s.Attempts != nil && *s.Attempts < 0 {
					errs = append(errs, fmt.Sprintf("block %q skill %q: negative attempts", b.ID, s.Name))
				}
			}
		case KindChapters:
			if len(b.Skills) > 0 {
				errs = append(errs, fmt.Sprintf("block %q: chapters block carries skills", b.ID))
			}
		default:
			errs = append(errs, fmt.Sprintf("block %q: unknown kind %q", b.ID, b.Kind))
		}

		blockQuizzes := 0
		for _, q := range b.Quizzes {
			claim("quiz", q.ID)
			if q.Type != QuizTypeBlock {
				errs = append(errs, fmt.Sprintf("quiz %q: block-level quiz must be %s, got %q", q.ID, QuizTypeBlock, q.Type))
			}
			if q.ChapterID != nil {
				errs = append(errs, fmt.Sprintf("quiz %q: block quiz must not reference a chapter", q.ID))
			}
			blockQuizzes++
			errs = append(errs, validateQuestions(q, claim)...)
		}
		if blockQuizzes > 1 {
			errs = append(errs, fmt.Sprintf("block %q has %d block quizzes, want at most 1", b.ID, blockQuizzes))
		}

		for _, ch := range b.Chapters {
			claim("chapter", ch.ID)
			for _, l := range ch.Lessons {
				claim("lesson", l.ID)
				if l.Duration != nil && *l.Duration < 0 {
					errs = append(errs, fmt.Sprintf("lesson %q: negative duration", l.ID))
				}
			}
			chapterQuizzes := 0
			for _, q := range ch.Quizzes {
				claim("quiz", q.ID)
				if q.Type != QuizTypeChapter {
					errs = append(errs, fmt.Sprintf("quiz %q: chapter-level quiz must be %s, got %q", q.ID, QuizTypeChapter, q.Type))
				}
				if q.ChapterID == nil || *q.ChapterID != ch.ID {
					errs = append(errs, fmt.Sprintf("quiz %q: chapter quiz must reference chapter %q", q.ID, ch.ID))
				}
				chapterQuizzes++
				errs = append(errs, validateQuestions(q, claim)...)
			}
			if chapterQuizzes > 1 {
				errs = append(errs, fmt.Sprintf("chapter %q has %d quizzes, want at most 1", ch.ID, chapterQuizzes))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("formation validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func validateQuestions(q Quiz, claim func(kind, id string)) []string {
	var errs []string
	for _, question := range q.Questions {
		claim("question", question.ID)
		if len(question.Answers) < 2 {
			errs = append(errs, fmt.Sprintf("quiz %q question %q: has %d answers, want at least 2", q.ID, question.ID, len(question.Answers)))
		}
		if len(question.CorrectAnswers()) == 0 {
			errs = append(errs, fmt.Sprintf("quiz %q question %q: no correct answer", q.ID, question.ID))
		}
		for _, a := range question.Answers {
			claim("answer", a.ID)
		}
	}
	return errs
}
