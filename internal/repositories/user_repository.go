package repositories

import (
	"context"
	"time"

	"github.com/examsphere/quiz-session-service/internal/models"
	"gorm.io/gorm"
)

// UserRepository interface for user operations. The session service does not
// own user data, identity lives in Casdoor, so these take no transaction.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}

// SubscriptionRepository interface for plan entitlement lookups.
type SubscriptionRepository interface {
	// GetActiveByUser returns the subscription covering now and the given
	// quiz category, or gorm.ErrRecordNotFound when none does. A nil
	// subCategoryID matches any plan; plans with a nil category cover
	// every quiz.
	GetActiveByUser(ctx context.Context, tx *gorm.DB, userID string, subCategoryID *uint, now time.Time) (*models.Subscription, error)
}

// WalletRepository interface for point balance operations.
type WalletRepository interface {
	GetBalance(ctx context.Context, tx *gorm.DB, userID string) (int, error)

	// Debit atomically decrements the balance and records a transaction. It
	// returns gorm.ErrRecordNotFound when the balance does not cover amount.
	Debit(ctx context.Context, tx *gorm.DB, userID string, amount int, description string, sessionID *uint) error
}

// LeaderboardRepository interface for best-score aggregation.
type LeaderboardRepository interface {
	// TopByQuiz returns each user's best completed session score for the
	// quiz, ranked descending, plus the total number of ranked users.
	TopByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters LeaderboardFilters) ([]LeaderboardRow, int64, error)
}
