package repositories

import (
	"context"

	"github.com/examsphere/quiz-session-service/internal/models"
	"gorm.io/gorm"
)

// SessionRepository interface for quiz session lifecycle operations.
type SessionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error)
	GetByCodeWithQuestions(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error)

	// GetActiveSession returns the user's started session for the quiz scope,
	// or gorm.ErrRecordNotFound. forUpdate takes a row lock so concurrent
	// starts serialize inside a transaction.
	GetActiveSession(ctx context.Context, tx *gorm.DB, quizID uint, userID string, scheduleID *uint, forUpdate bool) (*models.QuizSession, error)

	// CountCompleted counts the user's completed sessions for the quiz,
	// scheduled and unscheduled alike, for attempt-limit enforcement.
	CountCompleted(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error)

	// UpdateProgress persists navigation state without touching scoring
	// fields. Returns gorm.ErrRecordNotFound when the session is no longer
	// in the started state.
	UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, currentQuestion, totalTimeTaken int) error

	// Complete finalizes the session with a compare-and-set on status. It
	// returns gorm.ErrRecordNotFound when the session was already completed,
	// so finalize stays exactly-once under races.
	Complete(ctx context.Context, tx *gorm.DB, id uint, completion SessionCompletion) error

	// Query operations
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters SessionFilters) ([]*models.QuizSession, int64, error)
}

// SessionQuestionRepository interface for per-question session state.
type SessionQuestionRepository interface {
	// CreateBatch inserts the original_question snapshots when a session starts.
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.SessionQuestion) error

	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionQuestion, error)
	GetBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (*models.SessionQuestion, error)

	// UpsertAnswer updates the answer fields of an existing row, or inserts
	// one on first contact. The original_question column is never updated.
	UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionQuestion) error

	// CountAnswered counts rows whose status counts as answered.
	CountAnswered(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error)
}
