package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"gorm.io/gorm"
)

type quizService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) QuizService {
	return &quizService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetInstructions returns the pre-start overview of an active quiz.
func (s *quizService) GetInstructions(ctx context.Context, slug string) (*models.QuizInstructionsResponse, error) {
	quiz, err := s.repo.Quiz().GetBySlug(ctx, s.db, slug)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.Status != models.QuizActive {
		return nil, ErrQuizNotActive
	}

	summary := buildQuizSummary(quiz)
	return &summary, nil
}
