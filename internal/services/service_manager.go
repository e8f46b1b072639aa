package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/examsphere/quiz-session-service/internal/events"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	LogLevel           slog.Level

	// GraceWindow is how close to ends_at an EnterSession call finalizes the
	// session instead of serving it.
	GraceWindow time.Duration

	// Global settings
	DefaultTimeout time.Duration
}

// DefaultGraceWindow absorbs in-flight latency near the deadline so a user
// who finished just before the timer ran out is not failed unfairly.
const DefaultGraceWindow = 15 * time.Second

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	sessionService     SessionService
	entitlementService EntitlementService
	scoringService     ScoringService
	leaderboardService LeaderboardService
	quizService        QuizService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
		GraceWindow:        DefaultGraceWindow,
		DefaultTimeout:     30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, publisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.config.GraceWindow <= 0 {
		sm.config.GraceWindow = DefaultGraceWindow
	}
	if sm.publisher == nil {
		sm.publisher = events.NewNoopEventPublisher()
	}

	sm.scoringService = NewScoringService(sm.logger)
	sm.logger.Info("Scoring service initialized")

	sm.entitlementService = NewEntitlementService(sm.repo, sm.logger)
	sm.logger.Info("Entitlement service initialized")

	sm.sessionService = NewSessionService(
		sm.repo,
		sm.db,
		sm.logger,
		sm.validator,
		sm.scoringService,
		sm.entitlementService,
		sm.publisher,
		sm.config.GraceWindow,
	)
	sm.logger.Info("Session service initialized", "grace_window", sm.config.GraceWindow)

	sm.leaderboardService = NewLeaderboardService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Leaderboard service initialized")

	sm.quizService = NewQuizService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Quiz service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.sessionService != nil {
		return sm.sessionService
	}

	panic("session service not initialized")
}

func (sm *serviceManager) Entitlement() EntitlementService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.entitlementService != nil {
		return sm.entitlementService
	}

	panic("entitlement service not initialized")
}

func (sm *serviceManager) Scoring() ScoringService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.scoringService != nil {
		return sm.scoringService
	}

	panic("scoring service not initialized")
}

func (sm *serviceManager) Leaderboard() LeaderboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.leaderboardService != nil {
		return sm.leaderboardService
	}

	panic("leaderboard service not initialized")
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.quizService != nil {
		return sm.quizService
	}

	panic("quiz service not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
