package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/examsphere/quiz-session-service/internal/cache"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Preload("Settings").
		Preload("SubCategory").
		First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Quiz, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("slug:%s", slug)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).
			Preload("Settings").
			Preload("SubCategory").
			Where("slug = ?", slug).
			First(&dbQuiz).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})

	return &quiz, err
}

// GetQuestions returns the quiz questions ordered by pivot position.
func (q *QuizPostgreSQL) GetQuestions(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Joins("JOIN quiz_questions ON quiz_questions.question_id = questions.id").
		Where("quiz_questions.quiz_id = ? AND questions.is_active = ?", quizID, true).
		Preload("Section").
		Order("quiz_questions.position ASC, questions.id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuizPostgreSQL) ExistsBySlug(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	db := q.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *QuizPostgreSQL) IsActive(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ? AND status = ?", id, models.QuizActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ===== SCHEDULES =====

type QuizSchedulePostgreSQL struct {
	db *gorm.DB
}

func NewQuizSchedulePostgreSQL(db *gorm.DB) repositories.QuizScheduleRepository {
	return &QuizSchedulePostgreSQL{db: db}
}

func (s *QuizSchedulePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *QuizSchedulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSchedule, error) {
	db := s.getDB(tx)
	var schedule models.QuizSchedule
	if err := db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *QuizSchedulePostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSchedule, error) {
	db := s.getDB(tx)
	var schedule models.QuizSchedule
	if err := db.WithContext(ctx).Where("code = ?", code).First(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *QuizSchedulePostgreSQL) GetActiveByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizSchedule, error) {
	db := s.getDB(tx)
	var schedules []*models.QuizSchedule
	if err := db.WithContext(ctx).
		Where("quiz_id = ? AND status = ?", quizID, "active").
		Order("starts_at ASC").
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// ===== QUESTIONS =====

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).Preload("Section").First(&dbQuestion, id).Error; err != nil {
			return nil, err
		}
		return &dbQuestion, nil
	})

	return &question, err
}

func (q *QuestionPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Section").
		Where("code = ?", code).
		First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Preload("Section").
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
