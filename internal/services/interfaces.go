package services

import (
	"context"
	"encoding/json"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"gorm.io/gorm"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use shared model DTO types
type StartSessionRequest = models.StartSessionRequest
type SubmitAnswerRequest = models.SubmitAnswerRequest

type EnterSessionResponse struct {
	Quiz    models.QuizInstructionsResponse `json:"quiz"`
	Session models.SessionResponse          `json:"session"`

	// RedirectToFinish is set when the grace window closed the session
	// during this call. The client should move to the results flow.
	RedirectToFinish bool `json:"redirect_to_finish"`
}

type FinishResponse struct {
	QuizSlug    string `json:"quiz_slug"`
	SessionCode string `json:"session_code"`
}

// NavigationStep is one entry of the per-question review strip on the
// results page: the question's dealt position and its final answer state.
type NavigationStep struct {
	Position     int                 `json:"position"`
	QuestionCode string              `json:"question_code"`
	Status       models.AnswerStatus `json:"status"`
	IsCorrect    bool                `json:"is_correct"`
}

type ResultsResponse struct {
	Quiz    models.QuizInstructionsResponse `json:"quiz"`
	Session models.SessionResponse          `json:"session"`
	Results models.SessionResults           `json:"results"`
	Steps   []NavigationStep                `json:"steps"`
}

type SessionListResponse struct {
	Sessions []models.SessionResponse `json:"sessions"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	Size     int                      `json:"size"`
}

// EntitlementDecision is the entitlement gate's verdict for a start request.
// When the quiz is unlocked by redeeming points, RequiresDebit tells the
// caller to debit DebitAmount atomically with session creation.
type EntitlementDecision struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
	RequiresDebit bool   `json:"requires_debit"`
	DebitAmount   int    `json:"debit_amount"`
}

// AnswerMarks is the per-answer marking output.
type AnswerMarks struct {
	Earned   float64 `json:"earned"`
	Deducted float64 `json:"deducted"`
}

// ===== SERVICES =====

type SessionService interface {
	// Lifecycle
	StartOrResume(ctx context.Context, quizSlug string, userID string, req *StartSessionRequest) (*models.SessionResponse, error)
	EnterSession(ctx context.Context, quizSlug, sessionCode, userID string) (*EnterSessionResponse, error)
	Finish(ctx context.Context, quizSlug, sessionCode, userID string) (*FinishResponse, error)

	// In-session operations
	ListQuestions(ctx context.Context, quizSlug, sessionCode, userID string) ([]models.SessionQuestionView, error)
	SubmitAnswer(ctx context.Context, quizSlug, sessionCode, questionCode, userID string, req *SubmitAnswerRequest) (*models.AnswerResponse, error)

	// Post-session operations
	GetResults(ctx context.Context, quizSlug, sessionCode, userID string) (*ResultsResponse, error)
	GetSolutions(ctx context.Context, quizSlug, sessionCode, userID string) ([]models.SessionSolutionView, error)

	// History
	ListByUser(ctx context.Context, userID string, filters repositories.SessionFilters) (*SessionListResponse, error)
}

// EntitlementService decides whether a user may start a new session. It runs
// inside the start transaction so the attempt count and balance checks see a
// consistent snapshot.
type EntitlementService interface {
	CanStart(ctx context.Context, tx *gorm.DB, userID string, quiz *models.Quiz) (*EntitlementDecision, error)
}

// ScoringService evaluates answers and aggregates frozen session results.
type ScoringService interface {
	// Evaluate compares a submitted answer against the question's answer key
	// using the comparator for its question type.
	Evaluate(question *models.Question, submitted json.RawMessage) (bool, error)

	// Mark applies the marking rule for one answer.
	Mark(settings models.QuizSettings, question *models.Question, isCorrect bool) AnswerMarks

	// Aggregate folds all answer records into the session results payload.
	Aggregate(quiz *models.Quiz, session *models.QuizSession, answers []*models.SessionQuestion) *models.SessionResults
}

type LeaderboardService interface {
	// GetByQuiz returns the ranked best scores for the session's quiz scope.
	GetByQuiz(ctx context.Context, quizSlug, sessionCode, userID string, filters repositories.LeaderboardFilters) (*models.LeaderboardResponse, error)
}

type QuizService interface {
	GetInstructions(ctx context.Context, slug string) (*models.QuizInstructionsResponse, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Session() SessionService
	Entitlement() EntitlementService
	Scoring() ScoringService
	Leaderboard() LeaderboardService
	Quiz() QuizService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
