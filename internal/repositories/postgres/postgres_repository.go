package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/examsphere/quiz-session-service/internal/cache"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	quiz            repositories.QuizRepository
	quizSchedule    repositories.QuizScheduleRepository
	question        repositories.QuestionRepository
	session         repositories.SessionRepository
	sessionQuestion repositories.SessionQuestionRepository
	user            repositories.UserRepository
	subscription    repositories.SubscriptionRepository
	wallet          repositories.WalletRepository
	leaderboard     repositories.LeaderboardRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	// Initialize sub-repositories with caching
	repo.quiz = NewQuizPostgreSQL(config.DB, config.RedisClient)
	repo.quizSchedule = NewQuizSchedulePostgreSQL(config.DB)
	repo.question = NewQuestionPostgreSQL(config.DB, config.RedisClient)
	repo.session = NewSessionPostgreSQL(config.DB, config.RedisClient)
	repo.sessionQuestion = NewSessionQuestionPostgreSQL(config.DB, config.RedisClient)
	repo.subscription = NewSubscriptionPostgreSQL(config.DB)
	repo.wallet = NewWalletPostgreSQL(config.DB)
	repo.leaderboard = NewLeaderboardPostgreSQL(config.DB, config.RedisClient)

	// User repository uses Casdoor
	repo.user = casdoor.NewUserCasdoor(config.CasdoorConfig, config.RedisClient)

	return repo
}

// Quiz returns the quiz repository
func (r *PostgreSQLRepository) Quiz() repositories.QuizRepository {
	return r.quiz
}

// QuizSchedule returns the quiz schedule repository
func (r *PostgreSQLRepository) QuizSchedule() repositories.QuizScheduleRepository {
	return r.quizSchedule
}

// Question returns the question repository
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.question
}

// Session returns the session repository
func (r *PostgreSQLRepository) Session() repositories.SessionRepository {
	return r.session
}

// SessionQuestion returns the session question repository
func (r *PostgreSQLRepository) SessionQuestion() repositories.SessionQuestionRepository {
	return r.sessionQuestion
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

// Subscription returns the subscription repository
func (r *PostgreSQLRepository) Subscription() repositories.SubscriptionRepository {
	return r.subscription
}

// Wallet returns the wallet repository
func (r *PostgreSQLRepository) Wallet() repositories.WalletRepository {
	return r.wallet
}

// Leaderboard returns the leaderboard repository
func (r *PostgreSQLRepository) Leaderboard() repositories.LeaderboardRepository {
	return r.leaderboard
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create a new repository instance with the transaction
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}

		// Initialize sub-repositories with transaction
		txRepo.quiz = NewQuizPostgreSQL(tx, r.redisClient)
		txRepo.quizSchedule = NewQuizSchedulePostgreSQL(tx)
		txRepo.question = NewQuestionPostgreSQL(tx, r.redisClient)
		txRepo.session = NewSessionPostgreSQL(tx, r.redisClient)
		txRepo.sessionQuestion = NewSessionQuestionPostgreSQL(tx, r.redisClient)
		txRepo.subscription = NewSubscriptionPostgreSQL(tx)
		txRepo.wallet = NewWalletPostgreSQL(tx)
		txRepo.leaderboard = NewLeaderboardPostgreSQL(tx, r.redisClient)

		// User repository doesn't need transaction (it's external)
		txRepo.user = r.user

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	// Check database connection
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Check cache connection
	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	// Close database connection
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// Close Redis connection
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	// Validate configuration
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	// Test database connection
	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	// Test Redis connection if provided
	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	// Initialize repository
	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
