package services

import (
	"context"
	"time"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"gorm.io/gorm"
)

// mockRepository implements repositories.Repository with per-test function
// hooks. Unset hooks behave like an empty database.
type mockRepository struct {
	quiz            *mockQuizRepo
	schedule        *mockScheduleRepo
	question        *mockQuestionRepo
	session         *mockSessionRepo
	sessionQuestion *mockSessionQuestionRepo
	user            *mockUserRepo
	subscription    *mockSubscriptionRepo
	wallet          *mockWalletRepo
	leaderboard     *mockLeaderboardRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quiz:            &mockQuizRepo{},
		schedule:        &mockScheduleRepo{},
		question:        &mockQuestionRepo{},
		session:         &mockSessionRepo{},
		sessionQuestion: &mockSessionQuestionRepo{},
		user:            &mockUserRepo{},
		subscription:    &mockSubscriptionRepo{},
		wallet:          &mockWalletRepo{},
		leaderboard:     &mockLeaderboardRepo{},
	}
}

func (m *mockRepository) Quiz() repositories.QuizRepository                       { return m.quiz }
func (m *mockRepository) QuizSchedule() repositories.QuizScheduleRepository      { return m.schedule }
func (m *mockRepository) Question() repositories.QuestionRepository              { return m.question }
func (m *mockRepository) Session() repositories.SessionRepository                { return m.session }
func (m *mockRepository) SessionQuestion() repositories.SessionQuestionRepository {
	return m.sessionQuestion
}
func (m *mockRepository) User() repositories.UserRepository                 { return m.user }
func (m *mockRepository) Subscription() repositories.SubscriptionRepository { return m.subscription }
func (m *mockRepository) Wallet() repositories.WalletRepository             { return m.wallet }
func (m *mockRepository) Leaderboard() repositories.LeaderboardRepository   { return m.leaderboard }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== Quiz =====

type mockQuizRepo struct {
	getBySlugFn    func(slug string) (*models.Quiz, error)
	getQuestionsFn func(quizID uint) ([]*models.Question, error)
}

func (m *mockQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuizRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Quiz, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(slug)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuizRepo) GetQuestions(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	if m.getQuestionsFn != nil {
		return m.getQuestionsFn(quizID)
	}
	return nil, nil
}

func (m *mockQuizRepo) ExistsBySlug(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	return false, nil
}

func (m *mockQuizRepo) IsActive(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	return false, nil
}

// ===== Schedule =====

type mockScheduleRepo struct {
	getByCodeFn func(code string) (*models.QuizSchedule, error)
}

func (m *mockScheduleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSchedule, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSchedule, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) GetActiveByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizSchedule, error) {
	return nil, nil
}

// ===== Question =====

type mockQuestionRepo struct {
	getByCodeFn func(code string) (*models.Question, error)
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Question, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	return nil, nil
}

// ===== Session =====

type mockSessionRepo struct {
	createFn                 func(session *models.QuizSession) error
	getByCodeFn              func(code string) (*models.QuizSession, error)
	getByCodeWithQuestionsFn func(code string) (*models.QuizSession, error)
	getActiveSessionFn       func(quizID uint, userID string, scheduleID *uint, forUpdate bool) (*models.QuizSession, error)
	countCompletedFn         func(quizID uint, userID string) (int64, error)
	updateProgressFn         func(id uint, currentQuestion, totalTimeTaken int) error
	completeFn               func(id uint, completion repositories.SessionCompletion) error
	listByUserFn             func(userID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	if m.createFn != nil {
		return m.createFn(session)
	}
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetByCodeWithQuestions(ctx context.Context, tx *gorm.DB, code string) (*models.QuizSession, error) {
	if m.getByCodeWithQuestionsFn != nil {
		return m.getByCodeWithQuestionsFn(code)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetActiveSession(ctx context.Context, tx *gorm.DB, quizID uint, userID string, scheduleID *uint, forUpdate bool) (*models.QuizSession, error) {
	if m.getActiveSessionFn != nil {
		return m.getActiveSessionFn(quizID, userID, scheduleID, forUpdate)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) CountCompleted(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error) {
	if m.countCompletedFn != nil {
		return m.countCompletedFn(quizID, userID)
	}
	return 0, nil
}

func (m *mockSessionRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, currentQuestion, totalTimeTaken int) error {
	if m.updateProgressFn != nil {
		return m.updateProgressFn(id, currentQuestion, totalTimeTaken)
	}
	return nil
}

func (m *mockSessionRepo) Complete(ctx context.Context, tx *gorm.DB, id uint, completion repositories.SessionCompletion) error {
	if m.completeFn != nil {
		return m.completeFn(id, completion)
	}
	return nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(userID, filters)
	}
	return nil, 0, nil
}

// ===== SessionQuestion =====

type mockSessionQuestionRepo struct {
	createBatchFn             func(questions []*models.SessionQuestion) error
	getBySessionFn            func(sessionID uint) ([]*models.SessionQuestion, error)
	getBySessionAndQuestionFn func(sessionID, questionID uint) (*models.SessionQuestion, error)
	upsertAnswerFn            func(answer *models.SessionQuestion) error
	countAnsweredFn           func(sessionID uint) (int64, error)
}

func (m *mockSessionQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.SessionQuestion) error {
	if m.createBatchFn != nil {
		return m.createBatchFn(questions)
	}
	return nil
}

func (m *mockSessionQuestionRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionQuestion, error) {
	if m.getBySessionFn != nil {
		return m.getBySessionFn(sessionID)
	}
	return nil, nil
}

func (m *mockSessionQuestionRepo) GetBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (*models.SessionQuestion, error) {
	if m.getBySessionAndQuestionFn != nil {
		return m.getBySessionAndQuestionFn(sessionID, questionID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionQuestionRepo) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionQuestion) error {
	if m.upsertAnswerFn != nil {
		return m.upsertAnswerFn(answer)
	}
	return nil
}

func (m *mockSessionQuestionRepo) CountAnswered(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	if m.countAnsweredFn != nil {
		return m.countAnsweredFn(sessionID)
	}
	return 0, nil
}

// ===== User =====

type mockUserRepo struct {
	getByIDsFn func(ids []string) ([]*models.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ids)
	}
	return nil, nil
}

func (m *mockUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	return false, nil
}

// ===== Subscription =====

type mockSubscriptionRepo struct {
	getActiveByUserFn func(userID string, subCategoryID *uint, now time.Time) (*models.Subscription, error)
}

func (m *mockSubscriptionRepo) GetActiveByUser(ctx context.Context, tx *gorm.DB, userID string, subCategoryID *uint, now time.Time) (*models.Subscription, error) {
	if m.getActiveByUserFn != nil {
		return m.getActiveByUserFn(userID, subCategoryID, now)
	}
	return nil, gorm.ErrRecordNotFound
}

// ===== Wallet =====

type mockWalletRepo struct {
	getBalanceFn func(userID string) (int, error)
	debitFn      func(userID string, amount int, description string, sessionID *uint) error
}

func (m *mockWalletRepo) GetBalance(ctx context.Context, tx *gorm.DB, userID string) (int, error) {
	if m.getBalanceFn != nil {
		return m.getBalanceFn(userID)
	}
	return 0, nil
}

func (m *mockWalletRepo) Debit(ctx context.Context, tx *gorm.DB, userID string, amount int, description string, sessionID *uint) error {
	if m.debitFn != nil {
		return m.debitFn(userID, amount, description, sessionID)
	}
	return nil
}

// ===== Leaderboard =====

type mockLeaderboardRepo struct {
	topByQuizFn func(quizID uint, filters repositories.LeaderboardFilters) ([]repositories.LeaderboardRow, int64, error)
}

func (m *mockLeaderboardRepo) TopByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.LeaderboardFilters) ([]repositories.LeaderboardRow, int64, error) {
	if m.topByQuizFn != nil {
		return m.topByQuizFn(quizID, filters)
	}
	return nil, 0, nil
}
