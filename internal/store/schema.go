package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Timestamps are stored as INTEGER unix milliseconds.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS formations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		imported_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		id TEXT PRIMARY KEY,
		formation_id TEXT NOT NULL REFERENCES formations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL CHECK (kind IN ('skills', 'chapters'))
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		block_id TEXT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		level INTEGER,
		score REAL,
		attempts INTEGER,
		order_index INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (block_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		block_id TEXT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		duration INTEGER,
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		block_id TEXT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
		chapter_id TEXT REFERENCES chapters(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		quiz_type TEXT NOT NULL CHECK (quiz_type IN ('chapter_quiz', 'block_quiz'))
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		answer TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		explanation TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS skill_progress (
		user_id TEXT NOT NULL,
		block_id TEXT NOT NULL,
		name TEXT NOT NULL,
		level INTEGER,
		score REAL,
		attempts INTEGER,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, block_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		chapter_id TEXT NOT NULL,
		block_id TEXT NOT NULL,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, lesson_id)
	)`,
	`CREATE INDEX IF NOT EXISTS lesson_progress_chapter ON lesson_progress (user_id, chapter_id)`,
	`CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		is_completed INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_attempts_user_quiz ON quiz_attempts (user_id, quiz_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS formation_enrollments (
		user_id TEXT NOT NULL,
		formation_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		progress REAL NOT NULL DEFAULT 0,
		enrolled_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER,
		PRIMARY KEY (user_id, formation_id)
	)`,
	`CREATE TABLE IF NOT EXISTS block_enrollments (
		user_id TEXT NOT NULL,
		block_id TEXT NOT NULL,
		formation_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		progress REAL NOT NULL DEFAULT 0,
		enrolled_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER,
		PRIMARY KEY (user_id, block_id)
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		sequence INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS function_call_events (
		sequence INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		function TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 1,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS progress_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		formation_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS progress_snapshots_owner ON progress_snapshots (user_id, formation_id, timestamp)`,
}

// migrate creates missing tables and indexes. Every statement is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Tables lists the tables created by migrate, in dependency order.
var Tables = []string{
	"formations", "blocks", "skills", "chapters", "lessons", "quizzes",
	"questions", "answers", "skill_progress", "lesson_progress",
	"quiz_attempts", "formation_enrollments", "block_enrollments",
	"llm_request_events", "function_call_events", "progress_snapshots",
}
