package postgres

import (
	"context"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountSessions counts sessions for a quiz
func (h *SharedHelpers) CountSessions(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

// CountSessionsByStatus counts sessions by status
func (h *SharedHelpers) CountSessionsByStatus(ctx context.Context, quizID uint, status models.SessionStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("quiz_id = ? AND status = ?", quizID, status).
		Count(&count).Error
	return count, err
}

// GetQuizBasicInfo gets basic quiz info without relations
func (h *SharedHelpers) GetQuizBasicInfo(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := h.db.WithContext(ctx).
		Select("id, slug, status, total_questions, total_duration, total_marks, is_paid, points_required").
		First(&quiz, quizID).Error
	return &quiz, err
}

// ApplySessionFilters applies common filters to session queries
func (h *SharedHelpers) ApplySessionFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"completed_at": true,
		"id":           true,
		"status":       true,
		"score":        true,
		"percentage":   true,
	}

	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
