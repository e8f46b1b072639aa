package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"gorm.io/gorm"
)

type entitlementService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewEntitlementService(repo repositories.Repository, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		repo:   repo,
		logger: logger,
	}
}

// CanStart evaluates the gate in order: attempt limit first, then payment
// coverage. It is only called when no started session exists for the user
// and quiz, and it never mutates state. The debit for the redeem path is
// performed by the caller atomically with session creation.
func (s *entitlementService) CanStart(ctx context.Context, tx *gorm.DB, userID string, quiz *models.Quiz) (*EntitlementDecision, error) {
	settings := quiz.EffectiveSettings()

	if settings.RestrictAttempts && settings.NoOfAttempts > 0 {
		completed, err := s.repo.Session().CountCompleted(ctx, tx, quiz.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed sessions: %w", err)
		}
		if completed >= int64(settings.NoOfAttempts) {
			s.logger.Info("start denied, attempt limit reached",
				"quiz_id", quiz.ID,
				"user_id", userID,
				"completed", completed,
				"limit", settings.NoOfAttempts)
			return &EntitlementDecision{
				Reason:  ReasonMaxAttemptsExceeded,
				Message: fmt.Sprintf("you have used all %d attempts for this quiz", settings.NoOfAttempts),
			}, nil
		}
	}

	if quiz.IsPaid {
		_, err := s.repo.Subscription().GetActiveByUser(ctx, tx, userID, quiz.SubCategoryID, time.Now())
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to check subscription: %w", err)
		}
		if repositories.IsNotFoundError(err) {
			if !quiz.CanRedeem {
				return &EntitlementDecision{
					Reason:  ReasonNoActivePlan,
					Message: "an active plan is required to take this quiz",
				}, nil
			}

			balance, err := s.repo.Wallet().GetBalance(ctx, tx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to read wallet balance: %w", err)
			}
			if balance < quiz.PointsRequired {
				return &EntitlementDecision{
					Reason: ReasonInsufficientPoints,
					Message: fmt.Sprintf("you have %d points but this quiz requires %d points",
						balance, quiz.PointsRequired),
				}, nil
			}

			return &EntitlementDecision{
				Allowed:       true,
				RequiresDebit: true,
				DebitAmount:   quiz.PointsRequired,
			}, nil
		}
	}

	return &EntitlementDecision{Allowed: true}, nil
}
