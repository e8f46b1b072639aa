package repositories

import (
	"context"

	"github.com/examsphere/quiz-session-service/internal/models"
	"gorm.io/gorm"
)

// QuizRepository interface for quiz read operations. The session service does
// not author quizzes, it only serves attempts against them.
type QuizRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Quiz, error)

	// GetQuestions returns the quiz questions ordered by their pivot position.
	GetQuestions(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)

	// Validation and checks
	ExistsBySlug(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
	IsActive(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

// QuizScheduleRepository interface for schedule lookups.
type QuizScheduleRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSchedule, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSchedule, error)
	GetActiveByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizSchedule, error)
}

// QuestionRepository interface for question bank reads.
type QuestionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
}
