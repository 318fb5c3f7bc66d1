package progress

import (
	"github.com/abhisek/campus/internal/catalog"
)

// BlockProgress dispatches on the block kind. Malformed chapter counts
// contribute 0 for that chapter; use ChaptersProgress to see the error.
func BlockProgress(b catalog.Block) float64 {
	switch b.Kind {
	case catalog.KindChapters:
		p, _ := ChaptersProgress(b)
		return p
	default:
		return SkillsProgress(b.Skills)
	}
}

// ChaptersProgress is 0.80*avg(chapter progress) + 0.20*block quiz credit,
// or the plain average when the block has no block quiz. A block with only
// a block quiz is worth that quiz's credit.
func ChaptersProgress(b catalog.Block) (float64, error) {
	if len(b.Chapters) == 0 {
		if bq := b.BlockQuiz(); bq != nil {
			return QuizCredit(bq), nil
		}
		return 0, nil
	}

	var sum float64
	var firstErr error
	for _, ch := range b.Chapters {
		p, err := ChapterTotal(ch)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		sum += p
	}
	avg := sum / float64(len(b.Chapters))

	bq := b.BlockQuiz()
	if bq == nil {
		return avg, firstErr
	}
	return BlockChapterWeight*avg + BlockQuizWeight*QuizCredit(bq), firstErr
}

// BlockStarted reports whether the learner has touched the block.
func BlockStarted(b catalog.Block) bool {
	if b.Kind != catalog.KindChapters {
		return SkillsStarted(b.Skills)
	}
	for _, ch := range b.Chapters {
		if ch.CompletedLessons > 0 {
			return true
		}
		for _, q := range ch.Quizzes {
			if q.Attempted() {
				return true
			}
		}
	}
	for _, q := range b.Quizzes {
		if q.Attempted() {
			return true
		}
	}
	return false
}

// BlockPassed reports whether the block has reached its pass threshold:
// full progress, which for chapter blocks requires every quiz passed. The
// skills average ignores untouched skills, so a skills block also needs
// every skill started.
func BlockPassed(b catalog.Block) bool {
	if b.Kind != catalog.KindChapters && !AllSkillsStarted(b.Skills) {
		return false
	}
	return Full(BlockProgress(b))
}

// Full reports whether p is 100 up to float rounding of the weighted sums.
func Full(p float64) bool {
	return p >= 100-1e-9
}
