package catalog

import (
	"cmp"
	"slices"
)

// The sorts below are stable: duplicate order_index values left behind by a
// partially failed reorder keep their input order.

// SortBlocks orders blocks by OrderIndex.
func SortBlocks(blocks []Block) {
	slices.SortStableFunc(blocks, func(a, b Block) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
}

// SortChapters orders chapters by OrderIndex.
func SortChapters(chapters []Chapter) {
	slices.SortStableFunc(chapters, func(a, b Chapter) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
}

// SortLessons orders lessons by OrderIndex.
func SortLessons(lessons []Lesson) {
	slices.SortStableFunc(lessons, func(a, b Lesson) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
}

// SortQuestions orders questions, and the answers of each question, by OrderIndex.
func SortQuestions(questions []Question) {
	slices.SortStableFunc(questions, func(a, b Question) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
	for i := range questions {
		slices.SortStableFunc(questions[i].Answers, func(a, b Answer) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
	}
}

// Normalize sorts every level of the formation and fills parent references
// (FormationID, BlockID, ChapterID) so that a decoded document can be stored
// without further fixing up.
func Normalize(f *Formation) {
	SortBlocks(f.Blocks)
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		b.FormationID = f.ID
		for qi := range b.Quizzes {
			b.Quizzes[qi].BlockID = b.ID
			SortQuestions(b.Quizzes[qi].Questions)
		}
		SortChapters(b.Chapters)
		for ci := range b.Chapters {
			ch := &b.Chapters[ci]
			ch.BlockID = b.ID
			SortLessons(ch.Lessons)
			for li := range ch.Lessons {
				ch.Lessons[li].ChapterID = ch.ID
			}
			for qi := range ch.Quizzes {
				q := &ch.Quizzes[qi]
				q.BlockID = b.ID
				if q.Type == "" {
					q.Type = QuizTypeChapter
				}
				if q.Type == QuizTypeChapter {
					id := ch.ID
					q.ChapterID = &id
				}
				SortQuestions(q.Questions)
			}
		}
	}
}
