package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examsphere/quiz-session-service/internal/cache"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	db := s.getDB(tx)
	// Cache active sessions for performance
	cacheKey := fmt.Sprintf("session:id:%d", id)
	var session models.QuizSession

	err := s.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &session, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbSession models.QuizSession
		if err := db.WithContext(ctx).First(&dbSession, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return &dbSession, nil
	})

	return &session, err
}

func (s *SessionPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error) {
	db := s.getDB(tx)
	var session models.QuizSession
	if err := db.WithContext(ctx).
		Preload("Quiz").
		Preload("Quiz.Settings").
		Preload("Schedule").
		Where("code = ?", code).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByCodeWithQuestions(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error) {
	db := s.getDB(tx)
	var session models.QuizSession
	if err := db.WithContext(ctx).
		Preload("Quiz").
		Preload("Quiz.Settings").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("session_questions.id ASC")
		}).
		Preload("Questions.Question").
		Preload("Questions.Question.Section").
		Where("code = ?", code).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSession returns the started session in the quiz scope. Sessions
// started against a schedule only match that schedule, ad hoc sessions only
// match the unscheduled scope.
func (s *SessionPostgreSQL) GetActiveSession(ctx context.Context, tx *gorm.DB, quizID uint, userID string, scheduleID *uint, forUpdate bool) (*models.QuizSession, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, models.SessionStarted)

	if scheduleID != nil {
		query = query.Where("quiz_schedule_id = ?", *scheduleID)
	} else {
		query = query.Where("quiz_schedule_id IS NULL")
	}

	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var session models.QuizSession
	if err := query.Order("id DESC").First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) CountCompleted(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error) {
	db := s.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, models.SessionCompleted).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SessionPostgreSQL) UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, currentQuestion, totalTimeTaken int) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", id, models.SessionStarted).
		Updates(map[string]interface{}{
			"current_question": currentQuestion,
			"total_time_taken": totalTimeTaken,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, s.cacheManager.Fast, fmt.Sprintf("session:id:%d", id))
	return nil
}

// Complete flips the session to completed with a compare-and-set on status.
// RowsAffected == 0 means another writer got there first.
func (s *SessionPostgreSQL) Complete(ctx context.Context, tx *gorm.DB, id uint, completion repositories.SessionCompletion) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", id, models.SessionStarted).
		Updates(map[string]interface{}{
			"status":           models.SessionCompleted,
			"completed_at":     completion.CompletedAt,
			"total_time_taken": completion.TotalTimeTaken,
			"score":            completion.Score,
			"percentage":       completion.Percentage,
			"results":          completion.Results,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, s.cacheManager.Fast, fmt.Sprintf("session:id:%d", id))
	// completed scores feed the leaderboard, drop its cached pages
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Leaderboard, fmt.Sprintf("quiz:%d*", completion.QuizID))
	return nil
}

func (s *SessionPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	db := s.getDB(tx)
	var sessions []*models.QuizSession
	var total int64

	// apply filters first
	query := db.WithContext(ctx).Model(&models.QuizSession{}).Where("user_id = ?", userID)
	query = s.helpers.ApplySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Quiz").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// ===== SESSION QUESTIONS =====

type SessionQuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSessionQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionQuestionRepository {
	return &SessionQuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *SessionQuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *SessionQuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.SessionQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	db := q.getDB(tx)
	return db.WithContext(ctx).CreateInBatches(questions, 100).Error
}

func (q *SessionQuestionPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionQuestion, error) {
	db := q.getDB(tx)
	var questions []*models.SessionQuestion
	if err := db.WithContext(ctx).
		Where("quiz_session_id = ?", sessionID).
		Preload("Question").
		Preload("Question.Section").
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *SessionQuestionPostgreSQL) GetBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (*models.SessionQuestion, error) {
	db := q.getDB(tx)
	var question models.SessionQuestion
	if err := db.WithContext(ctx).
		Where("quiz_session_id = ? AND question_id = ?", sessionID, questionID).
		First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// UpsertAnswer writes answer state on conflict with the (session, question)
// key. original_question is deliberately absent from the assignment list so
// the snapshot can never be rewritten.
func (q *SessionQuestionPostgreSQL) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionQuestion) error {
	db := q.getDB(tx)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "quiz_session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_answer",
				"status",
				"is_correct",
				"marks_earned",
				"marks_deducted",
				"time_taken",
				"updated_at",
			}),
		}).
		Create(answer).Error
}

func (q *SessionQuestionPostgreSQL) CountAnswered(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	db := q.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.SessionQuestion{}).
		Where("quiz_session_id = ? AND status IN ?", sessionID,
			[]models.AnswerStatus{models.AnswerAnswered, models.AnswerAnsweredMarkForReview}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
