package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/examsphere/quiz-session-service/internal/events"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sessionService struct {
	repo        repositories.Repository
	db          *gorm.DB
	logger      *slog.Logger
	validator   *validator.Validator
	scoring     ScoringService
	entitlement EntitlementService
	publisher   events.EventPublisher
	graceWindow time.Duration
}

func NewSessionService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	scoring ScoringService,
	entitlement EntitlementService,
	publisher events.EventPublisher,
	graceWindow time.Duration,
) SessionService {
	return &sessionService{
		repo:        repo,
		db:          db,
		logger:      logger,
		validator:   validator,
		scoring:     scoring,
		entitlement: entitlement,
		publisher:   publisher,
		graceWindow: graceWindow,
	}
}

// ===== LIFECYCLE =====

// StartOrResume returns the user's started session for the quiz scope when
// one exists, otherwise runs the entitlement gate and creates a new session.
// Creation, question snapshots and the optional wallet debit commit in one
// transaction, serialized per user and quiz so concurrent starts cannot both
// pass the gate.
func (s *sessionService) StartOrResume(ctx context.Context, quizSlug string, userID string, req *StartSessionRequest) (*models.SessionResponse, error) {
	if req == nil {
		req = &StartSessionRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Starting quiz session", "quiz_slug", quizSlug, "user_id", userID)

	quiz, err := s.repo.Quiz().GetBySlug(ctx, s.db, quizSlug)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.Status != models.QuizActive {
		return nil, ErrQuizNotActive
	}

	scheduleID, err := s.resolveSchedule(ctx, quiz, req.ScheduleCode)
	if err != nil {
		return nil, err
	}

	// Fast path: an existing started session resumes without entering the
	// serialized transaction. No entitlement check, no debit.
	existing, err := s.repo.Session().GetActiveSession(ctx, s.db, quiz.ID, userID, scheduleID, false)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	if err == nil {
		s.logger.Info("Resuming existing session", "session_code", existing.Code, "user_id", userID)
		return s.sessionResponse(ctx, quiz, existing, true)
	}

	var (
		session *models.QuizSession
		resumed bool
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Serialization point: concurrent starts for the same user and quiz
		// queue here until the transaction ends.
		if err := acquireStartLock(ctx, tx, quiz.ID, userID); err != nil {
			return fmt.Errorf("failed to acquire start lock: %w", err)
		}

		current, err := s.repo.Session().GetActiveSession(ctx, tx, quiz.ID, userID, scheduleID, true)
		if err == nil {
			session = current
			resumed = true
			return nil
		}
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to re-check active session: %w", err)
		}

		decision, err := s.entitlement.CanStart(ctx, tx, userID, quiz)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return NewEntitlementError(userID, quiz.ID, decision.Reason, decision.Message)
		}

		session, err = s.createSession(ctx, tx, quiz, userID, scheduleID)
		if err != nil {
			return err
		}

		if decision.RequiresDebit {
			memo := fmt.Sprintf("Attempt of quiz %q, session %s", quiz.Title, session.Code)
			if err := s.repo.Wallet().Debit(ctx, tx, userID, decision.DebitAmount, memo, &session.ID); err != nil {
				if repositories.IsNotFoundError(err) {
					return NewEntitlementError(userID, quiz.ID, ReasonInsufficientPoints,
						fmt.Sprintf("your balance no longer covers the %d points required", decision.DebitAmount))
				}
				return fmt.Errorf("failed to debit wallet: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !resumed {
		s.logger.Info("Quiz session started",
			"session_code", session.Code,
			"quiz_id", quiz.ID,
			"user_id", userID)
		s.publishSessionEvent(ctx, events.EventSessionStarted, quiz, session, nil)
	}

	return s.sessionResponse(ctx, quiz, session, resumed)
}

// EnterSession returns the running session state. When the remaining time is
// inside the grace window it finalizes the session first and tells the caller
// to redirect to the results flow, which is how abandoned sessions get closed
// without an explicit finish request.
func (s *sessionService) EnterSession(ctx context.Context, quizSlug, sessionCode, userID string) (*EnterSessionResponse, error) {
	session, err := s.getOwnedSession(ctx, quizSlug, sessionCode, userID)
	if err != nil {
		return nil, err
	}

	redirect := false
	if session.Status != models.SessionCompleted && time.Until(session.EndsAt) < s.graceWindow {
		s.logger.Info("Session inside grace window, finalizing",
			"session_code", session.Code,
			"ends_at", session.EndsAt)
		if _, err := s.finalize(ctx, session); err != nil {
			return nil, err
		}
		redirect = true

		session, err = s.getOwnedSession(ctx, quizSlug, sessionCode, userID)
		if err != nil {
			return nil, err
		}
	}

	answered, err := s.repo.SessionQuestion().CountAnswered(ctx, s.db, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answered questions: %w", err)
	}

	return &EnterSessionResponse{
		Quiz:             buildQuizSummary(&session.Quiz),
		Session:          *buildSessionResponse(&session.Quiz, session, int(answered), false),
		RedirectToFinish: redirect,
	}, nil
}

// Finish finalizes the session. Calling it on a completed session is a no-op
// so the explicit finish and the grace window path can race safely.
func (s *sessionService) Finish(ctx context.Context, quizSlug, sessionCode, userID string) (*FinishResponse, error) {
	session, err := s.getOwnedSession(ctx, quizSlug, sessionCode, userID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.SessionCompleted {
		if _, err := s.finalize(ctx, session); err != nil {
			return nil, err
		}
	}

	return &FinishResponse{QuizSlug: quizSlug, SessionCode: sessionCode}, nil
}

// ===== IN-SESSION OPERATIONS =====

// ListQuestions serves the session's questions from their snapshots, answer
// keys stripped, in the order they were dealt at start.
func (s *sessionService) ListQuestions(ctx context.Context, quizSlug, sessionCode, userID string) ([]models.SessionQuestionView, error) {
	session, err := s.repo.Session().GetByCodeWithQuestions(ctx, s.db, sessionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := checkSessionAccess(session, quizSlug, userID); err != nil {
		return nil, err
	}

	settings := session.Quiz.EffectiveSettings()
	views := make([]models.SessionQuestionView, 0, len(session.Questions))
	for i, sq := range session.Questions {
		content, err := sanitizeSnapshot(sq.OriginalQuestion)
		if err != nil {
			return nil, fmt.Errorf("failed to sanitize question %d: %w", sq.QuestionID, err)
		}

		marks := sq.Question.DefaultMarks
		if !settings.AutoGrading {
			marks = settings.CorrectMarks
		}

		views = append(views, models.SessionQuestionView{
			Code:      sq.Question.Code,
			Type:      sq.Question.Type,
			Question:  content,
			Status:    sq.Status,
			Answer:    json.RawMessage(sq.UserAnswer),
			TimeTaken: sq.TimeTaken,
			Marks:     marks,
			Position:  i + 1,
		})
	}

	return views, nil
}

// SubmitAnswer upserts the answer record for one question. A submission that
// arrives after the session completed writes nothing and just reports the
// current answered count.
func (s *sessionService) SubmitAnswer(ctx context.Context, quizSlug, sessionCode, questionCode, userID string, req *SubmitAnswerRequest) (*models.AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.getOwnedSession(ctx, quizSlug, sessionCode, userID)
	if err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByCode(ctx, s.db, questionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	record, err := s.repo.SessionQuestion().GetBySessionAndQuestion(ctx, s.db, session.ID, question.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotInSession
		}
		return nil, fmt.Errorf("failed to get answer record: %w", err)
	}

	if session.Status == models.SessionCompleted {
		return s.answeredCountResponse(ctx, session, questionCode, record.Status)
	}

	settings := session.Quiz.EffectiveSettings()

	isCorrect := false
	var marks AnswerMarks
	if req.Status.CountsAsAnswered() {
		if len(req.Answer) > 0 {
			isCorrect, err = s.scoring.Evaluate(question, req.Answer)
			if err != nil {
				return nil, ValidationErrors{NewValidationError("answer", "malformed answer payload", string(req.Answer))}
			}
		}
		marks = s.scoring.Mark(settings, question, isCorrect)
	}

	currentQuestion := session.CurrentQuestion
	if req.CurrentQuestion != nil {
		currentQuestion = *req.CurrentQuestion
	}
	totalTimeTaken := session.TotalTimeTaken + req.TimeTaken
	if req.TotalTimeTaken != nil {
		totalTimeTaken = *req.TotalTimeTaken
	}

	var answered int64
	raceLost := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		row := &models.SessionQuestion{
			QuizSessionID:    session.ID,
			QuestionID:       question.ID,
			OriginalQuestion: record.OriginalQuestion,
			UserAnswer:       datatypes.JSON(req.Answer),
			Status:           req.Status,
			IsCorrect:        isCorrect,
			MarksEarned:      marks.Earned,
			MarksDeducted:    marks.Deducted,
			TimeTaken:        req.TimeTaken,
		}
		if err := s.repo.SessionQuestion().UpsertAnswer(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to upsert answer: %w", err)
		}

		// The guarded progress update doubles as the completed-session
		// check: zero rows means a finalize won the race, and the rollback
		// discards the upsert.
		if err := s.repo.Session().UpdateProgress(ctx, tx, session.ID, currentQuestion, totalTimeTaken); err != nil {
			if repositories.IsNotFoundError(err) {
				raceLost = true
			}
			return err
		}

		answered, err = s.repo.SessionQuestion().CountAnswered(ctx, tx, session.ID)
		return err
	})
	if raceLost {
		return s.answeredCountResponse(ctx, session, questionCode, record.Status)
	}
	if err != nil {
		return nil, err
	}

	return &models.AnswerResponse{
		QuestionCode:  questionCode,
		Status:        req.Status,
		AnsweredCount: int(answered),
	}, nil
}

// ===== POST-SESSION OPERATIONS =====

func (s *sessionService) GetResults(ctx context.Context, quizSlug, sessionCode, userID string) (*ResultsResponse, error) {
	session, err := s.repo.Session().GetByCodeWithQuestions(ctx, s.db, sessionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := checkSessionAccess(session, quizSlug, userID); err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrResultsNotAvailable
	}

	var results models.SessionResults
	if err := json.Unmarshal(session.Results, &results); err != nil {
		return nil, fmt.Errorf("failed to decode session results: %w", err)
	}

	steps := make([]NavigationStep, 0, len(session.Questions))
	for i, sq := range session.Questions {
		steps = append(steps, NavigationStep{
			Position:     i + 1,
			QuestionCode: sq.Question.Code,
			Status:       sq.Status,
			IsCorrect:    sq.IsCorrect,
		})
	}

	return &ResultsResponse{
		Quiz:    buildQuizSummary(&session.Quiz),
		Session: *buildSessionResponse(&session.Quiz, session, results.AnsweredCount, false),
		Results: results,
		Steps:   steps,
	}, nil
}

// GetSolutions serves the answer review for a completed session: every dealt
// question with its full snapshot, answer key included. Unlike ListQuestions
// the snapshots are not sanitized, so it is gated on both completion and the
// quiz's hide_solutions setting.
func (s *sessionService) GetSolutions(ctx context.Context, quizSlug, sessionCode, userID string) ([]models.SessionSolutionView, error) {
	session, err := s.repo.Session().GetByCodeWithQuestions(ctx, s.db, sessionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := checkSessionAccess(session, quizSlug, userID); err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrResultsNotAvailable
	}
	if session.Quiz.EffectiveSettings().HideSolutions {
		return nil, ErrSolutionsHidden
	}

	views := make([]models.SessionSolutionView, 0, len(session.Questions))
	for i, sq := range session.Questions {
		views = append(views, models.SessionSolutionView{
			Code:          sq.Question.Code,
			Type:          sq.Question.Type,
			Question:      json.RawMessage(sq.OriginalQuestion),
			Status:        sq.Status,
			Answer:        json.RawMessage(sq.UserAnswer),
			IsCorrect:     sq.IsCorrect,
			MarksEarned:   sq.MarksEarned,
			MarksDeducted: sq.MarksDeducted,
			Position:      i + 1,
		})
	}

	return views, nil
}

func (s *sessionService) ListByUser(ctx context.Context, userID string, filters repositories.SessionFilters) (*SessionListResponse, error) {
	sessions, total, err := s.repo.Session().ListByUser(ctx, s.db, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]models.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		answered := 0
		if session.Status == models.SessionCompleted && len(session.Results) > 0 {
			var results models.SessionResults
			if err := json.Unmarshal(session.Results, &results); err == nil {
				answered = results.AnsweredCount
			}
		}
		responses = append(responses, *buildSessionResponse(&session.Quiz, session, answered, false))
	}

	size := filters.Limit
	if size <= 0 {
		size = len(responses)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}

	return &SessionListResponse{
		Sessions: responses,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// ===== FINALIZE =====

// finalize computes the frozen results and flips the session to completed
// with a compare-and-set. Losing the transition race is not an error: the
// winner already wrote an equivalent payload.
func (s *sessionService) finalize(ctx context.Context, session *models.QuizSession) (*models.SessionResults, error) {
	var results *models.SessionResults
	completedAt := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		answers, err := s.repo.SessionQuestion().GetBySession(ctx, tx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load answer records: %w", err)
		}

		results = s.scoring.Aggregate(&session.Quiz, session, answers)

		payload, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}

		return s.repo.Session().Complete(ctx, tx, session.ID, repositories.SessionCompletion{
			QuizID:         session.QuizID,
			CompletedAt:    completedAt,
			TotalTimeTaken: session.TotalTimeTaken,
			Score:          results.Score,
			Percentage:     results.Percentage,
			Results:        payload,
		})
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("Finalize lost the completion race", "session_code", session.Code)
			return nil, nil
		}
		return nil, err
	}

	s.logger.Info("Session finalized",
		"session_code", session.Code,
		"score", results.Score,
		"percentage", results.Percentage)
	s.publishSessionEvent(ctx, events.EventSessionCompleted, &session.Quiz, session, results)

	return results, nil
}
