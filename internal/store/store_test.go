package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/campus/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "campus.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(v int) *int { return &v }

// testFormation has a skills block and a chapters block with two chapters
// (3 and 2 lessons), a chapter quiz on the first chapter and a block quiz.
func testFormation() catalog.Formation {
	question := func(id string) catalog.Question {
		return catalog.Question{
			ID:   id,
			Text: "Q " + id,
			Answers: []catalog.Answer{
				{ID: id + "-a", Text: "yes", IsCorrect: true, OrderIndex: 1},
				{ID: id + "-b", Text: "no", OrderIndex: 0},
			},
		}
	}
	f := catalog.Formation{
		ID:    "f1",
		Title: "Formation One",
		Blocks: []catalog.Block{
			catalog.NewChaptersBlock("b-ch", "Chapters", []catalog.Chapter{
				{
					ID: "c2", Title: "Second", OrderIndex: 2,
					Lessons: []catalog.Lesson{{ID: "l4", Title: "L4"}, {ID: "l5", Title: "L5", Duration: intp(10)}},
				},
				{
					ID: "c1", Title: "First", OrderIndex: 1,
					Lessons: []catalog.Lesson{
						{ID: "l3", Title: "L3", OrderIndex: 3},
						{ID: "l1", Title: "L1", OrderIndex: 1},
						{ID: "l2", Title: "L2", OrderIndex: 2},
					},
					Quizzes: []catalog.Quiz{{ID: "q-c1", Title: "C1 quiz", Questions: []catalog.Question{question("qq1")}}},
				},
			}, []catalog.Quiz{{ID: "q-block", Title: "Block quiz", Type: catalog.QuizTypeBlock, Questions: []catalog.Question{question("qq2"), question("qq3")}}}),
			catalog.NewSkillsBlock("b-sk", "Skills", []catalog.Skill{{Name: "reading"}, {Name: "writing"}}),
		},
	}
	f.Blocks[1].OrderIndex = 1
	catalog.Normalize(&f)
	return f
}

func seedFormation(t *testing.T, s *Store) catalog.Formation {
	t.Helper()
	f := testFormation()
	if err := s.SaveFormation(context.Background(), f); err != nil {
		t.Fatalf("save formation: %v", err)
	}
	return f
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range Tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSaveAndGetFormation(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	f, err := s.GetFormation(ctx, "", "f1")
	if err != nil {
		t.Fatalf("get formation: %v", err)
	}
	if len(f.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(f.Blocks))
	}
	b := f.Blocks[0]
	if b.ID != "b-ch" || b.Kind != catalog.KindChapters {
		t.Fatalf("first block = %s/%s, want b-ch/chapters", b.ID, b.Kind)
	}
	if b.Chapters[0].ID != "c1" {
		t.Errorf("first chapter = %s, want c1", b.Chapters[0].ID)
	}
	var lessons []string
	for _, l := range b.Chapters[0].Lessons {
		lessons = append(lessons, l.ID)
	}
	if got := len(lessons); got != 3 || lessons[0] != "l1" || lessons[2] != "l3" {
		t.Errorf("lessons = %v, want [l1 l2 l3]", lessons)
	}
	if d := b.Chapters[1].Lessons[1].Duration; d == nil || *d != 10 {
		t.Errorf("lesson duration = %v, want 10", d)
	}

	cq := b.Chapters[0].ChapterQuiz()
	if cq == nil || cq.ChapterID == nil || *cq.ChapterID != "c1" {
		t.Fatalf("chapter quiz not attached to c1: %+v", cq)
	}
	if cq.Questions[0].Answers[0].ID != "qq1-b" {
		t.Errorf("answers not ordered: %+v", cq.Questions[0].Answers)
	}
	if !cq.Questions[0].Answers[1].IsCorrect {
		t.Error("is_correct not round-tripped")
	}
	if bq := b.BlockQuiz(); bq == nil || len(bq.Questions) != 2 {
		t.Errorf("block quiz = %+v", bq)
	}
	if f.Blocks[1].Kind != catalog.KindSkills || len(f.Blocks[1].Skills) != 2 {
		t.Errorf("skills block = %+v", f.Blocks[1])
	}

	list, err := s.ListFormations(ctx)
	if err != nil {
		t.Fatalf("list formations: %v", err)
	}
	if len(list) != 1 || list[0].Blocks != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestSaveFormationReplacesContent(t *testing.T) {
	s := openTestStore(t)
	f := seedFormation(t, s)
	ctx := context.Background()

	f.Blocks = f.Blocks[:1]
	f.Blocks[0].Chapters[0].Lessons = f.Blocks[0].Chapters[0].Lessons[:2]
	if err := s.SaveFormation(ctx, f); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := s.GetFormation(ctx, "", "f1")
	if err != nil {
		t.Fatalf("get formation: %v", err)
	}
	if len(got.Blocks) != 1 {
		t.Errorf("blocks = %d, want 1", len(got.Blocks))
	}
	if n := got.Blocks[0].Chapters[0].TotalLessons(); n != 2 {
		t.Errorf("lessons = %d, want 2", n)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetFormation(ctx, "", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFormation error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetBlock(ctx, "", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBlock error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetQuizQuestions(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetQuizQuestions error = %v, want ErrNotFound", err)
	}
}

func TestUpsertLessonProgressIdempotent(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	created, err := s.UpsertLessonProgress(ctx, "u1", "l1", "c1", "b-ch")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}
	first, err := s.GetChapterLessonCompletion(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}

	created, err = s.UpsertLessonProgress(ctx, "u1", "l1", "c1", "b-ch")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("second upsert should be a no-op")
	}
	second, err := s.GetChapterLessonCompletion(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}

	if first.CompletedCount != 1 || second.CompletedCount != 1 {
		t.Errorf("completed counts = %d then %d, want 1 and 1", first.CompletedCount, second.CompletedCount)
	}
	if _, ok := second.LessonIDs["l1"]; !ok {
		t.Error("l1 missing from completion set")
	}

	var rows int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM lesson_progress WHERE user_id = 'u1'").Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("lesson_progress rows = %d, want 1", rows)
	}
}

func TestQuizAttemptsAppendOnly(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, score := range []int{80, 40} {
		err := s.InsertQuizAttempt(ctx, catalog.QuizAttempt{
			ID:          []string{"a1", "a2"}[i],
			QuizID:      "q-c1",
			UserID:      "u1",
			Score:       score,
			IsCompleted: true,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert attempt %d: %v", i, err)
		}
	}

	attempts, err := s.ListQuizAttempts(ctx, "u1", "q-c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].ID != "a2" || !attempts[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("newest attempt = %+v", attempts[0])
	}

	latest, err := s.GetLatestQuizAttempt(ctx, "u1", "q-c1")
	if err != nil || latest == nil || latest.Score != 40 {
		t.Errorf("latest = %+v, %v; want score 40", latest, err)
	}
	best, err := s.GetBestQuizScore(ctx, "u1", "q-c1")
	if err != nil || best == nil || *best != 80 {
		t.Errorf("best = %v, %v; want 80", best, err)
	}

	none, err := s.GetBestQuizScore(ctx, "u2", "q-c1")
	if err != nil || none != nil {
		t.Errorf("best for other learner = %v, %v; want nil", none, err)
	}
	noLatest, err := s.GetLatestQuizAttempt(ctx, "u2", "q-c1")
	if err != nil || noLatest != nil {
		t.Errorf("latest for other learner = %v, %v; want nil", noLatest, err)
	}

	quiz, err := s.GetQuiz(ctx, "u1", "q-c1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.AttemptCount != 2 || *quiz.BestScore != 80 || *quiz.LatestScore != 40 {
		t.Errorf("quiz summary = count %d best %v latest %v", quiz.AttemptCount, *quiz.BestScore, *quiz.LatestScore)
	}
	if !quiz.Passed() {
		t.Error("best score 80 should pass")
	}
}

func TestGetBlockForLearner(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	for _, l := range []string{"l1", "l2", "l4"} {
		chapter := "c1"
		if l == "l4" {
			chapter = "c2"
		}
		if _, err := s.UpsertLessonProgress(ctx, "u1", l, chapter, "b-ch"); err != nil {
			t.Fatalf("upsert %s: %v", l, err)
		}
	}
	if _, err := s.UpsertLessonProgress(ctx, "u2", "l3", "c1", "b-ch"); err != nil {
		t.Fatalf("upsert other learner: %v", err)
	}

	b, err := s.GetBlock(ctx, "u1", "b-ch")
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got := b.Chapters[0].CompletedLessons; got != 2 {
		t.Errorf("c1 completed = %d, want 2", got)
	}
	if got := b.Chapters[1].CompletedLessons; got != 1 {
		t.Errorf("c2 completed = %d, want 1", got)
	}

	anon, err := s.GetBlock(ctx, "", "b-ch")
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if anon.Chapters[0].CompletedLessons != 0 {
		t.Error("anonymous load should not carry progress")
	}
}

func TestSkillProgressOverlay(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	score := 75.0
	if err := s.UpsertSkillProgress(ctx, "u1", "b-sk", catalog.Skill{Name: "reading", Score: &score, Attempts: intp(1)}); err != nil {
		t.Fatalf("upsert skill: %v", err)
	}
	score = 90
	if err := s.UpsertSkillProgress(ctx, "u1", "b-sk", catalog.Skill{Name: "reading", Score: &score, Attempts: intp(2)}); err != nil {
		t.Fatalf("upsert skill again: %v", err)
	}

	b, err := s.GetBlock(ctx, "u1", "b-sk")
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	r := b.Skills[0]
	if r.Name != "reading" || r.ScoreValue() != 90 || r.AttemptsValue() != 2 {
		t.Errorf("reading = %+v", r)
	}
	if b.Skills[1].Score != nil {
		t.Errorf("writing should be untouched: %+v", b.Skills[1])
	}
}

func TestEnrollmentLifecycle(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	fe, err := s.EnrollFormation(ctx, "u1", "f1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if fe.Status != StatusInProgress || fe.Progress != 0 {
		t.Errorf("enrollment = %+v", fe)
	}
	blocks, err := s.ListBlockEnrollments(ctx, "u1", "f1")
	if err != nil {
		t.Fatalf("list block enrollments: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("block enrollments = %d, want 2", len(blocks))
	}

	if err := s.UpdateBlockEnrollmentProgress(ctx, "u1", "b-ch", 60); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.EnrollFormation(ctx, "u1", "f1"); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	be, err := s.GetBlockEnrollment(ctx, "u1", "b-ch")
	if err != nil {
		t.Fatalf("get block enrollment: %v", err)
	}
	if be.Progress != 60 || be.Status != StatusInProgress {
		t.Errorf("after re-enroll = %+v, want progress 60 in_progress", be)
	}

	if err := s.UpdateBlockEnrollmentProgress(ctx, "u1", "b-ch", 100); err != nil {
		t.Fatalf("update: %v", err)
	}
	be, _ = s.GetBlockEnrollment(ctx, "u1", "b-ch")
	if be.Status != StatusCompleted || be.CompletedAt == nil {
		t.Fatalf("at 100 = %+v, want completed", be)
	}
	completedAt := *be.CompletedAt

	if err := s.UpdateBlockEnrollmentProgress(ctx, "u1", "b-ch", 80); err != nil {
		t.Fatalf("update: %v", err)
	}
	be, _ = s.GetBlockEnrollment(ctx, "u1", "b-ch")
	if be.Status != StatusCompleted || !be.CompletedAt.Equal(completedAt) || be.Progress != 80 {
		t.Errorf("completion must not revert: %+v", be)
	}

	if err := s.UpdateFormationEnrollment(ctx, "u1", "f1", 100, true); err != nil {
		t.Fatalf("update formation: %v", err)
	}
	fe, _ = s.GetFormationEnrollment(ctx, "u1", "f1")
	if fe.Status != StatusCompleted || fe.CompletedAt == nil {
		t.Errorf("formation = %+v, want completed", fe)
	}

	if _, err := s.EnrollFormation(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("enroll missing formation error = %v", err)
	}
	if err := s.UpdateBlockEnrollmentProgress(ctx, "u1", "missing", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing block error = %v", err)
	}
	if _, err := s.GetFormationEnrollment(ctx, "u9", "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing enrollment error = %v", err)
	}
}

func TestUpdateBlockEnrollmentCreatesRow(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	if err := s.UpdateBlockEnrollmentProgress(ctx, "u1", "b-ch", 52.5); err != nil {
		t.Fatalf("update: %v", err)
	}
	be, err := s.GetBlockEnrollment(ctx, "u1", "b-ch")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if be.Progress != 52.5 || be.FormationID != "f1" {
		t.Errorf("row = %+v", be)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()
	ctx := context.Background()

	sc, err := newSequenceCounter(db)
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestQueryEventsMergesKinds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendFunctionCall(ctx, FunctionCallEventData{Function: "chat", UserID: "u1", SessionID: "s1", Attempts: 2, Success: true}); err != nil {
		t.Fatalf("append function: %v", err)
	}
	if err := s.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "anthropic", Model: "m", Purpose: "chat", Success: false, ErrorMessage: "boom"}); err != nil {
		t.Fatalf("append llm: %v", err)
	}
	if err := s.AppendFunctionCall(ctx, FunctionCallEventData{Function: "ingest", UserID: "u1", Attempts: 1, Success: true}); err != nil {
		t.Fatalf("append function: %v", err)
	}

	events, err := s.QueryEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	wantNames := []string{"chat", "anthropic/m", "ingest"}
	for i, e := range events {
		if e.Name != wantNames[i] {
			t.Errorf("event %d = %s, want %s", i, e.Name, wantNames[i])
		}
		if i > 0 && e.Sequence <= events[i-1].Sequence {
			t.Errorf("sequence not increasing at %d", i)
		}
	}
	if events[1].Success || events[1].Error != "boom" {
		t.Errorf("llm event = %+v", events[1])
	}

	after, err := s.QueryEvents(ctx, QueryOpts{After: events[0].Sequence, Limit: 1})
	if err != nil {
		t.Fatalf("query after: %v", err)
	}
	if len(after) != 1 || after[0].Name != "ingest" {
		t.Errorf("after/limit = %+v", after)
	}
}

func TestSnapshots(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx, "u1", "f1")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		err := repo.Save(ctx, &Snapshot{
			UserID:      "u1",
			FormationID: "f1",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Data:        SnapshotData{Version: 1, Progress: float64(i * 10)},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, "u1", "f1", 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	history, err := repo.History(ctx, "u1", "f1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("remaining snapshots = %d, want 5", len(history))
	}
	if history[0].Data.Progress != 20 {
		t.Errorf("oldest kept progress = %v, want 20", history[0].Data.Progress)
	}

	snap, err = repo.Latest(ctx, "u1", "f1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Data.Progress != 60 || snap.Sequence == 0 {
		t.Errorf("latest = %+v", snap)
	}
}

func TestResetLearner(t *testing.T) {
	s := openTestStore(t)
	seedFormation(t, s)
	ctx := context.Background()

	if _, err := s.EnrollFormation(ctx, "u1", "f1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := s.UpsertLessonProgress(ctx, "u1", "l1", "c1", "b-ch"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.ResetLearner(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	lc, err := s.GetChapterLessonCompletion(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if lc.CompletedCount != 0 {
		t.Errorf("completed after reset = %d", lc.CompletedCount)
	}
	if _, err := s.GetFormationEnrollment(ctx, "u1", "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("enrollment after reset: %v", err)
	}
	if _, err := s.GetFormation(ctx, "", "f1"); err != nil {
		t.Errorf("content must survive reset: %v", err)
	}
}
