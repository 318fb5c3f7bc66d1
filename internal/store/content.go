package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/campus/internal/catalog"
)

// SaveFormation replaces a formation's content. Learner tables are keyed by
// content IDs and are left untouched, so re-importing keeps progress for
// lessons and quizzes that still exist.
func (s *Store) SaveFormation(ctx context.Context, f catalog.Formation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		upsert := sqlite().Insert("formations").
			Columns("id", "title", "description", "imported_at").
			Values(f.ID, f.Title, f.Description, millis(now())).
			OnConflict(
				entsql.ConflictColumns("id"),
				entsql.ResolveWithNewValues(),
			)
		if _, err := exec(ctx, tx, upsert); err != nil {
			return fmt.Errorf("save formation %s: %w", f.ID, err)
		}

		del := sqlite().Delete("blocks").Where(entsql.EQ("formation_id", f.ID))
		if _, err := exec(ctx, tx, del); err != nil {
			return fmt.Errorf("clear blocks of %s: %w", f.ID, err)
		}

		for _, b := range f.Blocks {
			if err := insertBlock(ctx, tx, f.ID, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertBlock(ctx context.Context, tx *sql.Tx, formationID string, b catalog.Block) error {
	ins := sqlite().Insert("blocks").
		Columns("id", "formation_id", "name", "description", "order_index", "kind").
		Values(b.ID, formationID, b.Name, b.Description, b.OrderIndex, string(b.Kind))
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert block %s: %w", b.ID, err)
	}

	for i, sk := range b.Skills {
		ins := sqlite().Insert("skills").
			Columns("block_id", "name", "level", "score", "attempts", "order_index").
			Values(b.ID, sk.Name, sk.Level, sk.Score, sk.Attempts, i)
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert skill %s/%s: %w", b.ID, sk.Name, err)
		}
	}

	for _, ch := range b.Chapters {
		ins := sqlite().Insert("chapters").
			Columns("id", "block_id", "title", "order_index").
			Values(ch.ID, b.ID, ch.Title, ch.OrderIndex)
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert chapter %s: %w", ch.ID, err)
		}
		for _, l := range ch.Lessons {
			ins := sqlite().Insert("lessons").
				Columns("id", "chapter_id", "title", "content", "duration", "order_index").
				Values(l.ID, ch.ID, l.Title, l.Content, l.Duration, l.OrderIndex)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert lesson %s: %w", l.ID, err)
			}
		}
		for _, q := range ch.Quizzes {
			if err := insertQuiz(ctx, tx, b.ID, q); err != nil {
				return err
			}
		}
	}

	for _, q := range b.Quizzes {
		if err := insertQuiz(ctx, tx, b.ID, q); err != nil {
			return err
		}
	}
	return nil
}

func insertQuiz(ctx context.Context, tx *sql.Tx, blockID string, q catalog.Quiz) error {
	ins := sqlite().Insert("quizzes").
		Columns("id", "block_id", "chapter_id", "title", "quiz_type").
		Values(q.ID, blockID, q.ChapterID, q.Title, string(q.Type))
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert quiz %s: %w", q.ID, err)
	}

	for _, qu := range q.Questions {
		ins := sqlite().Insert("questions").
			Columns("id", "quiz_id", "question", "explanation", "order_index").
			Values(qu.ID, q.ID, qu.Text, qu.Explanation, qu.OrderIndex)
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert question %s: %w", qu.ID, err)
		}
		for _, a := range qu.Answers {
			ins := sqlite().Insert("answers").
				Columns("id", "question_id", "answer", "is_correct", "explanation", "order_index").
				Values(a.ID, qu.ID, a.Text, a.IsCorrect, a.Explanation, a.OrderIndex)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert answer %s: %w", a.ID, err)
			}
		}
	}
	return nil
}

// ListFormations returns every stored formation ordered by title.
func (s *Store) ListFormations(ctx context.Context) ([]FormationSummary, error) {
	var rows []formationRow
	q := sqlite().Select("id", "title", "description", "imported_at").
		From(sqlite().Table("formations")).
		OrderBy("title", "id")
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("list formations: %w", err)
	}

	var counts []struct {
		FormationID string `sql:"formation_id"`
		N           int    `sql:"n"`
	}
	cq := sqlite().Select("formation_id", entsql.As(entsql.Count("*"), "n")).
		From(sqlite().Table("blocks")).
		GroupBy("formation_id")
	if err := scan(ctx, s.db, cq, &counts); err != nil {
		return nil, fmt.Errorf("count blocks: %w", err)
	}
	byFormation := make(map[string]int, len(counts))
	for _, c := range counts {
		byFormation[c.FormationID] = c.N
	}

	out := make([]FormationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, FormationSummary{
			ID:         r.ID,
			Title:      r.Title,
			Blocks:     byFormation[r.ID],
			ImportedAt: fromMillis(r.ImportedAt),
		})
	}
	return out, nil
}

// GetFormation loads a formation tree, filled for userID when non-empty.
func (s *Store) GetFormation(ctx context.Context, userID, formationID string) (*catalog.Formation, error) {
	var rows []formationRow
	q := sqlite().Select("id", "title", "description", "imported_at").
		From(sqlite().Table("formations")).
		Where(entsql.EQ("id", formationID))
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("get formation %s: %w", formationID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("formation %s: %w", formationID, ErrNotFound)
	}

	var brows []blockRow
	bq := sqlite().Select("id", "formation_id", "name", "description", "order_index", "kind").
		From(sqlite().Table("blocks")).
		Where(entsql.EQ("formation_id", formationID)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, bq, &brows); err != nil {
		return nil, fmt.Errorf("get blocks of %s: %w", formationID, err)
	}

	blocks, err := s.loadBlocks(ctx, userID, brows)
	if err != nil {
		return nil, err
	}

	f := &catalog.Formation{
		ID:          rows[0].ID,
		Title:       rows[0].Title,
		Description: rows[0].Description,
		Blocks:      blocks,
	}
	catalog.Normalize(f)
	return f, nil
}

// GetBlock loads a single block, filled for userID when non-empty.
func (s *Store) GetBlock(ctx context.Context, userID, blockID string) (*catalog.Block, error) {
	var brows []blockRow
	bq := sqlite().Select("id", "formation_id", "name", "description", "order_index", "kind").
		From(sqlite().Table("blocks")).
		Where(entsql.EQ("id", blockID))
	if err := scan(ctx, s.db, bq, &brows); err != nil {
		return nil, fmt.Errorf("get block %s: %w", blockID, err)
	}
	if len(brows) == 0 {
		return nil, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}

	blocks, err := s.loadBlocks(ctx, userID, brows)
	if err != nil {
		return nil, err
	}
	return &blocks[0], nil
}

// GetQuiz loads a quiz with questions and the learner's attempt summary.
func (s *Store) GetQuiz(ctx context.Context, userID, quizID string) (*catalog.Quiz, error) {
	var rows []quizRow
	q := sqlite().Select("id", "block_id", "chapter_id", "title", "quiz_type").
		From(sqlite().Table("quizzes")).
		Where(entsql.EQ("id", quizID))
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("get quiz %s: %w", quizID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
	}

	questions, err := s.loadQuestions(ctx, []string{quizID})
	if err != nil {
		return nil, err
	}
	quiz := toQuiz(rows[0], questions[quizID])
	if userID != "" {
		scores, err := s.loadScores(ctx, userID, []string{quizID})
		if err != nil {
			return nil, err
		}
		applyScores(&quiz, scores)
	}
	return &quiz, nil
}

// GetQuizQuestions returns a quiz's questions in order, or ErrNotFound when
// the quiz does not exist.
func (s *Store) GetQuizQuestions(ctx context.Context, quizID string) ([]catalog.Question, error) {
	quiz, err := s.GetQuiz(ctx, "", quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

func (s *Store) loadBlocks(ctx context.Context, userID string, brows []blockRow) ([]catalog.Block, error) {
	blockIDs := make([]any, 0, len(brows))
	for _, b := range brows {
		blockIDs = append(blockIDs, b.ID)
	}

	var skills []skillRow
	sq := sqlite().Select("block_id", "name", "level", "score", "attempts", "order_index").
		From(sqlite().Table("skills")).
		Where(entsql.In("block_id", blockIDs...)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, sq, &skills); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	learnerSkills := map[string]skillRow{}
	if userID != "" {
		var rows []skillRow
		q := sqlite().Select("block_id", "name", "level", "score", "attempts").
			From(sqlite().Table("skill_progress")).
			Where(entsql.And(entsql.EQ("user_id", userID), entsql.In("block_id", blockIDs...)))
		if err := scan(ctx, s.db, q, &rows); err != nil {
			return nil, fmt.Errorf("load skill progress: %w", err)
		}
		for _, r := range rows {
			learnerSkills[r.BlockID+"\x00"+r.Name] = r
		}
	}

	var chapters []chapterRow
	cq := sqlite().Select("id", "block_id", "title", "order_index").
		From(sqlite().Table("chapters")).
		Where(entsql.In("block_id", blockIDs...)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, cq, &chapters); err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}
	chapterIDs := make([]any, 0, len(chapters))
	for _, c := range chapters {
		chapterIDs = append(chapterIDs, c.ID)
	}

	var lessons []lessonRow
	lq := sqlite().Select("id", "chapter_id", "title", "content", "duration", "order_index").
		From(sqlite().Table("lessons")).
		Where(entsql.In("chapter_id", chapterIDs...)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, lq, &lessons); err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	completed := map[string]bool{}
	if userID != "" && len(chapterIDs) > 0 {
		var rows []lessonProgressRow
		q := sqlite().Select("lesson_id", "chapter_id").
			From(sqlite().Table("lesson_progress")).
			Where(entsql.And(entsql.EQ("user_id", userID), entsql.In("chapter_id", chapterIDs...)))
		if err := scan(ctx, s.db, q, &rows); err != nil {
			return nil, fmt.Errorf("load lesson progress: %w", err)
		}
		for _, r := range rows {
			completed[r.LessonID] = true
		}
	}

	var quizzes []quizRow
	qq := sqlite().Select("id", "block_id", "chapter_id", "title", "quiz_type").
		From(sqlite().Table("quizzes")).
		Where(entsql.In("block_id", blockIDs...)).
		OrderBy("rowid")
	if err := scan(ctx, s.db, qq, &quizzes); err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	quizIDs := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		quizIDs = append(quizIDs, q.ID)
	}
	questions, err := s.loadQuestions(ctx, quizIDs)
	if err != nil {
		return nil, err
	}
	var scores map[string]quizScores
	if userID != "" {
		if scores, err = s.loadScores(ctx, userID, quizIDs); err != nil {
			return nil, err
		}
	}

	// Assemble bottom-up.
	lessonsByChapter := map[string][]catalog.Lesson{}
	doneByChapter := map[string]int{}
	for _, l := range lessons {
		lessonsByChapter[l.ChapterID] = append(lessonsByChapter[l.ChapterID], catalog.Lesson{
			ID:         l.ID,
			ChapterID:  l.ChapterID,
			Title:      l.Title,
			Content:    l.Content,
			Duration:   l.Duration,
			OrderIndex: l.OrderIndex,
		})
		if completed[l.ID] {
			doneByChapter[l.ChapterID]++
		}
	}

	chapterQuizzes := map[string][]catalog.Quiz{}
	blockQuizzes := map[string][]catalog.Quiz{}
	for _, r := range quizzes {
		quiz := toQuiz(r, questions[r.ID])
		applyScores(&quiz, scores)
		if r.ChapterID != nil {
			chapterQuizzes[*r.ChapterID] = append(chapterQuizzes[*r.ChapterID], quiz)
		} else {
			blockQuizzes[r.BlockID] = append(blockQuizzes[r.BlockID], quiz)
		}
	}

	chaptersByBlock := map[string][]catalog.Chapter{}
	for _, c := range chapters {
		chaptersByBlock[c.BlockID] = append(chaptersByBlock[c.BlockID], catalog.Chapter{
			ID:               c.ID,
			BlockID:          c.BlockID,
			Title:            c.Title,
			OrderIndex:       c.OrderIndex,
			Lessons:          lessonsByChapter[c.ID],
			Quizzes:          chapterQuizzes[c.ID],
			CompletedLessons: doneByChapter[c.ID],
		})
	}

	skillsByBlock := map[string][]catalog.Skill{}
	for _, r := range skills {
		sk := catalog.Skill{Name: r.Name, Level: r.Level, Score: r.Score, Attempts: r.Attempts}
		if lp, ok := learnerSkills[r.BlockID+"\x00"+r.Name]; ok {
			sk.Level, sk.Score, sk.Attempts = lp.Level, lp.Score, lp.Attempts
		}
		skillsByBlock[r.BlockID] = append(skillsByBlock[r.BlockID], sk)
	}

	out := make([]catalog.Block, 0, len(brows))
	for _, r := range brows {
		out = append(out, catalog.Block{
			ID:          r.ID,
			FormationID: r.FormationID,
			Name:        r.Name,
			Description: r.Description,
			OrderIndex:  r.OrderIndex,
			Kind:        catalog.BlockKind(r.Kind),
			Skills:      skillsByBlock[r.ID],
			Chapters:    chaptersByBlock[r.ID],
			Quizzes:     blockQuizzes[r.ID],
		})
	}
	return out, nil
}

func (s *Store) loadQuestions(ctx context.Context, quizIDs []string) (map[string][]catalog.Question, error) {
	ids := make([]any, 0, len(quizIDs))
	for _, id := range quizIDs {
		ids = append(ids, id)
	}

	var questions []questionRow
	q := sqlite().Select("id", "quiz_id", "question", "explanation", "order_index").
		From(sqlite().Table("questions")).
		Where(entsql.In("quiz_id", ids...)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, q, &questions); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	questionIDs := make([]any, 0, len(questions))
	for _, qu := range questions {
		questionIDs = append(questionIDs, qu.ID)
	}
	var answers []answerRow
	aq := sqlite().Select("id", "question_id", "answer", "is_correct", "explanation", "order_index").
		From(sqlite().Table("answers")).
		Where(entsql.In("question_id", questionIDs...)).
		OrderBy("order_index", "rowid")
	if err := scan(ctx, s.db, aq, &answers); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	byQuestion := map[string][]catalog.Answer{}
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], catalog.Answer{
			ID:          a.ID,
			Text:        a.Answer,
			IsCorrect:   a.IsCorrect,
			Explanation: a.Explanation,
			OrderIndex:  a.OrderIndex,
		})
	}

	out := map[string][]catalog.Question{}
	for _, qu := range questions {
		out[qu.QuizID] = append(out[qu.QuizID], catalog.Question{
			ID:          qu.ID,
			Text:        qu.Question,
			Explanation: qu.Explanation,
			OrderIndex:  qu.OrderIndex,
			Answers:     byQuestion[qu.ID],
		})
	}
	return out, nil
}

type quizScores struct {
	best     *int
	latest   *int
	attempts int
}

// loadScores summarizes completed attempts per quiz for one learner.
func (s *Store) loadScores(ctx context.Context, userID string, quizIDs []string) (map[string]quizScores, error) {
	ids := make([]any, 0, len(quizIDs))
	for _, id := range quizIDs {
		ids = append(ids, id)
	}
	where := entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("is_completed", true),
		entsql.In("quiz_id", ids...),
	)

	var summary []scoreSummaryRow
	q := sqlite().Select("quiz_id", entsql.As(entsql.Max("score"), "best"), entsql.As(entsql.Count("*"), "attempts")).
		From(sqlite().Table("quiz_attempts")).
		Where(where).
		GroupBy("quiz_id")
	if err := scan(ctx, s.db, q, &summary); err != nil {
		return nil, fmt.Errorf("load best scores: %w", err)
	}

	var attempts []attemptRow
	aq := sqlite().Select("id", "quiz_id", "user_id", "score", "is_completed", "created_at").
		From(sqlite().Table("quiz_attempts")).
		Where(where).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("rowid"))
	if err := scan(ctx, s.db, aq, &attempts); err != nil {
		return nil, fmt.Errorf("load latest scores: %w", err)
	}

	out := make(map[string]quizScores, len(summary))
	for _, r := range summary {
		out[r.QuizID] = quizScores{best: r.Best, attempts: r.Count}
	}
	for _, a := range attempts {
		sc := out[a.QuizID]
		if sc.latest == nil {
			score := a.Score
			sc.latest = &score
			out[a.QuizID] = sc
		}
	}
	return out, nil
}

func toQuiz(r quizRow, questions []catalog.Question) catalog.Quiz {
	return catalog.Quiz{
		ID:        r.ID,
		BlockID:   r.BlockID,
		Title:     r.Title,
		Type:      catalog.QuizType(r.QuizType),
		ChapterID: r.ChapterID,
		Questions: questions,
	}
}

func applyScores(q *catalog.Quiz, scores map[string]quizScores) {
	sc, ok := scores[q.ID]
	if !ok {
		return
	}
	q.BestScore = sc.best
	q.LatestScore = sc.latest
	q.AttemptCount = sc.attempts
}
