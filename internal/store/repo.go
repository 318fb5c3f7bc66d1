package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/campus/internal/catalog"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Enrollment statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// FormationSummary is a catalog listing entry.
type FormationSummary struct {
	ID         string
	Title      string
	Blocks     int
	ImportedAt time.Time
}

// ContentRepo reads and writes authored content.
type ContentRepo interface {
	// SaveFormation replaces the formation's content in one transaction.
	SaveFormation(ctx context.Context, f catalog.Formation) error

	ListFormations(ctx context.Context) ([]FormationSummary, error)

	// GetFormation loads the full tree. A non-empty userID also fills the
	// learner-scoped fields (completed lessons, quiz scores, skill progress).
	GetFormation(ctx context.Context, userID, formationID string) (*catalog.Formation, error)

	// GetBlock loads one block the same way GetFormation does.
	GetBlock(ctx context.Context, userID, blockID string) (*catalog.Block, error)

	// GetQuiz loads a quiz with its questions and the learner's scores.
	GetQuiz(ctx context.Context, userID, quizID string) (*catalog.Quiz, error)

	// GetQuizQuestions returns the questions with answers, in order.
	GetQuizQuestions(ctx context.Context, quizID string) ([]catalog.Question, error)
}

// LessonCompletion is the distinct set of lessons a learner completed in
// one chapter.
type LessonCompletion struct {
	ChapterID      string
	CompletedCount int
	LessonIDs      map[string]struct{}
}

// ProgressRepo records learner events.
type ProgressRepo interface {
	GetChapterLessonCompletion(ctx context.Context, userID, chapterID string) (LessonCompletion, error)

	// UpsertLessonProgress marks a lesson complete. It reports whether a new
	// completion was recorded; repeating the call is a no-op.
	UpsertLessonProgress(ctx context.Context, userID, lessonID, chapterID, blockID string) (bool, error)

	// InsertQuizAttempt appends an attempt. Attempts are never updated.
	InsertQuizAttempt(ctx context.Context, attempt catalog.QuizAttempt) error

	// GetLatestQuizAttempt returns nil when the learner has no attempt.
	GetLatestQuizAttempt(ctx context.Context, userID, quizID string) (*catalog.QuizAttempt, error)

	// GetBestQuizScore returns nil when the learner has no attempt.
	GetBestQuizScore(ctx context.Context, userID, quizID string) (*int, error)

	// ListQuizAttempts returns attempts newest first.
	ListQuizAttempts(ctx context.Context, userID, quizID string) ([]catalog.QuizAttempt, error)

	UpsertSkillProgress(ctx context.Context, userID, blockID string, skill catalog.Skill) error
}

// FormationEnrollment is a learner's registration against a formation.
type FormationEnrollment struct {
	UserID      string
	FormationID string
	Status      string
	Progress    float64
	EnrolledAt  time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// BlockEnrollment is a learner's registration against one block.
type BlockEnrollment struct {
	UserID      string
	BlockID     string
	FormationID string
	Status      string
	Progress    float64
	EnrolledAt  time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// EnrollmentRepo manages enrollment rows. Progress stored here is a cache of
// values derived from content and learner events.
type EnrollmentRepo interface {
	// EnrollFormation creates the formation enrollment and one block
	// enrollment per block of the formation. Existing rows are kept.
	EnrollFormation(ctx context.Context, userID, formationID string) (*FormationEnrollment, error)

	GetFormationEnrollment(ctx context.Context, userID, formationID string) (*FormationEnrollment, error)
	ListFormationEnrollments(ctx context.Context, userID string) ([]FormationEnrollment, error)
	GetBlockEnrollment(ctx context.Context, userID, blockID string) (*BlockEnrollment, error)
	ListBlockEnrollments(ctx context.Context, userID, formationID string) ([]BlockEnrollment, error)

	// UpdateBlockEnrollmentProgress stores progress, creating the row when
	// missing. Reaching 100 moves the status to completed; a completed
	// enrollment stays completed.
	UpdateBlockEnrollmentProgress(ctx context.Context, userID, blockID string, progress float64) error

	// UpdateFormationEnrollment stores progress and, when complete is true,
	// moves the status to completed. A completed enrollment stays completed.
	UpdateFormationEnrollment(ctx context.Context, userID, formationID string, progress float64, complete bool) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// FunctionCallEventData captures one call of a relay or ingestion function.
type FunctionCallEventData struct {
	Function     string
	UserID       string
	SessionID    string
	Attempts     int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRecord is one row of the combined event log.
type EventRecord struct {
	Sequence  int64
	Timestamp time.Time
	Kind      string // "llm" or "function"
	Name      string // provider/model or function name
	Detail    string
	LatencyMs int64
	Success   bool
	Error     string

	// Set for llm events only.
	Model        string
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendFunctionCall records a chat relay or ingestion call.
	AppendFunctionCall(ctx context.Context, data FunctionCallEventData) error

	// QueryEvents returns events of every kind ordered by sequence.
	QueryEvents(ctx context.Context, opts QueryOpts) ([]EventRecord, error)
}

// SnapshotData captures formation progress at a point in time.
type SnapshotData struct {
	Version   int                `json:"version"`
	Progress  float64            `json:"progress"`
	Status    string             `json:"status"`
	Blocks    map[string]float64 `json:"blocks,omitempty"`
	Completed bool               `json:"completed"`
}

// Snapshot represents a point-in-time capture of a learner's formation
// progress.
type Snapshot struct {
	ID          int
	Sequence    int64
	UserID      string
	FormationID string
	Timestamp   time.Time
	Data        SnapshotData
}

// SnapshotRepo manages progress snapshots per learner and formation.
type SnapshotRepo interface {
	// Save stores a new snapshot, assigning its sequence.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context, userID, formationID string) (*Snapshot, error)

	// History returns snapshots oldest first.
	History(ctx context.Context, userID, formationID string) ([]Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, userID, formationID string, keep int) error
}

var (
	_ ContentRepo    = (*Store)(nil)
	_ ProgressRepo   = (*Store)(nil)
	_ EnrollmentRepo = (*Store)(nil)
	_ EventRepo      = (*Store)(nil)
	_ SnapshotRepo   = (*snapshotRepo)(nil)
)
