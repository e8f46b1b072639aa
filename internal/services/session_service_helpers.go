package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/examsphere/quiz-session-service/internal/events"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ===== SESSION LOOKUP =====

// getOwnedSession loads a session by code and verifies the caller owns it and
// addressed it under the right quiz slug.
func (s *sessionService) getOwnedSession(ctx context.Context, quizSlug, sessionCode, userID string) (*models.QuizSession, error) {
	session, err := s.repo.Session().GetByCode(ctx, s.db, sessionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := checkSessionAccess(session, quizSlug, userID); err != nil {
		return nil, err
	}
	return session, nil
}

func checkSessionAccess(session *models.QuizSession, quizSlug, userID string) error {
	if session.Quiz.Slug != quizSlug {
		return ErrSessionNotFound
	}
	if session.UserID != userID {
		return ErrSessionAccessDenied
	}
	return nil
}

// ===== SESSION CREATION =====

func (s *sessionService) resolveSchedule(ctx context.Context, quiz *models.Quiz, scheduleCode *string) (*uint, error) {
	if scheduleCode == nil {
		return nil, nil
	}

	schedule, err := s.repo.QuizSchedule().GetByCode(ctx, s.db, *scheduleCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule.QuizID != quiz.ID {
		return nil, ErrScheduleNotFound
	}
	if !schedule.IsActiveNow(time.Now()) {
		return nil, ErrScheduleClosed
	}

	return &schedule.ID, nil
}

// createSession builds the session row and deals out the question snapshots.
func (s *sessionService) createSession(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, userID string, scheduleID *uint) (*models.QuizSession, error) {
	questions, err := s.repo.Quiz().GetQuestions(ctx, tx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, NewBusinessRuleError("quiz_has_questions", "quiz has no questions to serve")
	}

	settings := quiz.EffectiveSettings()
	if settings.ShuffleQuestions {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	now := time.Now()
	session := &models.QuizSession{
		Code:           uuid.NewString(),
		QuizID:         quiz.ID,
		UserID:         userID,
		QuizScheduleID: scheduleID,
		Status:         models.SessionStarted,
		StartedAt:      now,
		EndsAt:         now.Add(time.Duration(quiz.TotalDuration) * time.Second),
		TotalDuration:  quiz.TotalDuration,
	}
	if err := s.repo.Session().Create(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	rows := make([]*models.SessionQuestion, len(questions))
	for i, question := range questions {
		snapshot, err := snapshotQuestion(question)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot question %d: %w", question.ID, err)
		}
		rows[i] = &models.SessionQuestion{
			QuizSessionID:    session.ID,
			QuestionID:       question.ID,
			OriginalQuestion: snapshot,
			Status:           models.AnswerNotViewed,
		}
	}
	if err := s.repo.SessionQuestion().CreateBatch(ctx, tx, rows); err != nil {
		return nil, fmt.Errorf("failed to create question snapshots: %w", err)
	}

	return session, nil
}

// acquireStartLock takes a transaction-scoped advisory lock on the (quiz,
// user) pair. It serializes concurrent starts without locking any rows.
// Advisory locks only exist on Postgres; other dialects fall back to the
// transaction's own isolation.
func acquireStartLock(ctx context.Context, tx *gorm.DB, quizID uint, userID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	hasher := fnv.New32a()
	hasher.Write([]byte(userID))
	return tx.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(quizID), int32(hasher.Sum32())).Error
}

// ===== QUESTION SNAPSHOTS =====

// snapshotQuestion freezes the question as dealt, answer key included, so the
// session stays consistent if the question bank changes later.
func snapshotQuestion(question *models.Question) (datatypes.JSON, error) {
	payload, err := json.Marshal(question)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

// sanitizeSnapshot strips the answer key and solution from a snapshot before
// it is served to the client.
func sanitizeSnapshot(snapshot datatypes.JSON) (json.RawMessage, error) {
	if len(snapshot) == 0 {
		return nil, nil
	}

	var content map[string]interface{}
	if err := json.Unmarshal(snapshot, &content); err != nil {
		return nil, err
	}
	delete(content, "correct_answer")
	delete(content, "solution")

	return json.Marshal(content)
}

// ===== RESPONSE BUILDERS =====

func buildQuizSummary(quiz *models.Quiz) models.QuizInstructionsResponse {
	settings := quiz.EffectiveSettings()
	return models.QuizInstructionsResponse{
		Code:             quiz.Code,
		Slug:             quiz.Slug,
		Title:            quiz.Title,
		Description:      quiz.Description,
		TotalQuestions:   quiz.TotalQuestions,
		TotalDuration:    quiz.TotalDuration,
		TotalMarks:       quiz.TotalMarks,
		IsPaid:           quiz.IsPaid,
		PointsRequired:   quiz.PointsRequired,
		ShowLeaderboard:  settings.ShowLeaderboard,
		CutoffPercentage: settings.CutoffPercentage,
	}
}

func buildSessionResponse(quiz *models.Quiz, session *models.QuizSession, answeredCount int, resumed bool) *models.SessionResponse {
	return &models.SessionResponse{
		Code:             session.Code,
		QuizSlug:         quiz.Slug,
		Status:           session.Status,
		StartedAt:        session.StartedAt,
		EndsAt:           session.EndsAt,
		CompletedAt:      session.CompletedAt,
		RemainingSeconds: session.RemainingSeconds(time.Now()),
		TotalDuration:    session.TotalDuration,
		CurrentQuestion:  session.CurrentQuestion,
		TotalQuestions:   quiz.TotalQuestions,
		AnsweredCount:    answeredCount,
		Resumed:          resumed,
	}
}

func (s *sessionService) sessionResponse(ctx context.Context, quiz *models.Quiz, session *models.QuizSession, resumed bool) (*models.SessionResponse, error) {
	answered := int64(0)
	if resumed {
		count, err := s.repo.SessionQuestion().CountAnswered(ctx, s.db, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count answered questions: %w", err)
		}
		answered = count
	}
	return buildSessionResponse(quiz, session, int(answered), resumed), nil
}

func (s *sessionService) answeredCountResponse(ctx context.Context, session *models.QuizSession, questionCode string, status models.AnswerStatus) (*models.AnswerResponse, error) {
	answered, err := s.repo.SessionQuestion().CountAnswered(ctx, s.db, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answered questions: %w", err)
	}
	return &models.AnswerResponse{
		QuestionCode:  questionCode,
		Status:        status,
		AnsweredCount: int(answered),
	}, nil
}

// ===== EVENTS =====

// publishSessionEvent emits a lifecycle event. Publishing is best effort and
// never fails the request.
func (s *sessionService) publishSessionEvent(ctx context.Context, eventType string, quiz *models.Quiz, session *models.QuizSession, results *models.SessionResults) {
	if s.publisher == nil {
		return
	}

	data := events.SessionEventData{
		SessionCode: session.Code,
		QuizID:      quiz.ID,
		QuizSlug:    quiz.Slug,
		UserID:      session.UserID,
	}
	if results != nil {
		data.Score = &results.Score
		data.Percentage = &results.Percentage
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish session event",
			"event_type", eventType,
			"session_code", session.Code,
			"error", err)
	}
}
