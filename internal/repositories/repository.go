package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates all domain repositories behind one handle.
type Repository interface {
	// Quiz domain
	Quiz() QuizRepository
	QuizSchedule() QuizScheduleRepository
	Question() QuestionRepository

	// Session domain
	Session() SessionRepository
	SessionQuestion() SessionQuestionRepository

	// User domain
	User() UserRepository
	Subscription() SubscriptionRepository
	Wallet() WalletRepository

	// Leaderboard domain
	Leaderboard() LeaderboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err is a record-not-found from the storage layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
