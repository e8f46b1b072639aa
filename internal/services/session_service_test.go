package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/examsphere/quiz-session-service/internal/events"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/validator"
	"gorm.io/datatypes"
)

func newTestSessionService(repo *mockRepository) (SessionService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	scoring := NewScoringService(logger)
	entitlement := NewEntitlementService(repo, logger)
	service := NewSessionService(repo, nil, logger, validator.New(), scoring, entitlement, publisher, DefaultGraceWindow)
	return service, publisher
}

func activeQuiz() *models.Quiz {
	return &models.Quiz{
		ID:             1,
		Code:           "QZ1",
		Slug:           "math-basics",
		Title:          "Math Basics",
		Status:         models.QuizActive,
		TotalQuestions: 10,
		TotalDuration:  600,
		TotalMarks:     10,
		Settings:       models.QuizSettings{QuizID: 1, AutoGrading: true},
	}
}

func startedSession(quiz *models.Quiz, userID string) *models.QuizSession {
	now := time.Now()
	return &models.QuizSession{
		ID:            42,
		Code:          "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		QuizID:        quiz.ID,
		UserID:        userID,
		Status:        models.SessionStarted,
		StartedAt:     now.Add(-time.Minute),
		EndsAt:        now.Add(9 * time.Minute),
		TotalDuration: quiz.TotalDuration,
		Quiz:          *quiz,
	}
}

func TestNewSessionService(t *testing.T) {
	NewSessionService(nil, nil, nil, nil, nil, nil, nil, DefaultGraceWindow)
}

func TestSessionService_StartOrResume_QuizNotFound(t *testing.T) {
	repo := newMockRepository()
	service, _ := newTestSessionService(repo)

	_, err := service.StartOrResume(context.Background(), "missing", "user-1", nil)
	if !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("err = %v, want ErrQuizNotFound", err)
	}
}

func TestSessionService_StartOrResume_QuizNotActive(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	quiz.Status = models.QuizDraft
	repo.quiz.getBySlugFn = func(slug string) (*models.Quiz, error) {
		return quiz, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.StartOrResume(context.Background(), quiz.Slug, "user-1", nil)
	if !errors.Is(err, ErrQuizNotActive) {
		t.Errorf("err = %v, want ErrQuizNotActive", err)
	}
}

func TestSessionService_StartOrResume_ScheduleNotFound(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	repo.quiz.getBySlugFn = func(slug string) (*models.Quiz, error) {
		return quiz, nil
	}
	service, _ := newTestSessionService(repo)

	code := "SCH0000001"
	_, err := service.StartOrResume(context.Background(), quiz.Slug, "user-1", &StartSessionRequest{ScheduleCode: &code})
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("err = %v, want ErrScheduleNotFound", err)
	}
}

func TestSessionService_StartOrResume_ClosedSchedule(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	repo.quiz.getBySlugFn = func(slug string) (*models.Quiz, error) {
		return quiz, nil
	}
	past := time.Now().Add(-time.Hour)
	repo.schedule.getByCodeFn = func(code string) (*models.QuizSchedule, error) {
		return &models.QuizSchedule{ID: 7, QuizID: quiz.ID, Code: code, Status: "active", EndsAt: &past}, nil
	}
	service, _ := newTestSessionService(repo)

	code := "SCH0000001"
	_, err := service.StartOrResume(context.Background(), quiz.Slug, "user-1", &StartSessionRequest{ScheduleCode: &code})
	if !errors.Is(err, ErrScheduleClosed) {
		t.Errorf("err = %v, want ErrScheduleClosed", err)
	}
}

// A second start with a session still running must hand back the same
// session instead of creating or charging anything.
func TestSessionService_StartOrResume_ResumesExistingSession(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	existing := startedSession(quiz, "user-1")

	repo.quiz.getBySlugFn = func(slug string) (*models.Quiz, error) {
		return quiz, nil
	}
	repo.session.getActiveSessionFn = func(quizID uint, userID string, scheduleID *uint, forUpdate bool) (*models.QuizSession, error) {
		return existing, nil
	}
	repo.session.createFn = func(session *models.QuizSession) error {
		t.Error("resume must not create a new session")
		return nil
	}
	repo.wallet.debitFn = func(userID string, amount int, description string, sessionID *uint) error {
		t.Error("resume must not debit the wallet")
		return nil
	}
	repo.sessionQuestion.countAnsweredFn = func(sessionID uint) (int64, error) {
		return 3, nil
	}

	service, publisher := newTestSessionService(repo)

	resp, err := service.StartOrResume(context.Background(), quiz.Slug, "user-1", nil)
	if err != nil {
		t.Fatalf("StartOrResume returned error: %v", err)
	}
	if resp.Code != existing.Code {
		t.Errorf("Code = %s, want %s", resp.Code, existing.Code)
	}
	if !resp.Resumed {
		t.Error("response should be flagged as resumed")
	}
	if resp.AnsweredCount != 3 {
		t.Errorf("AnsweredCount = %d, want 3", resp.AnsweredCount)
	}
	if len(publisher.GetPublishedEvents()) != 0 {
		t.Error("resume must not publish a session started event")
	}
}

func TestSessionService_EnterSession_OutsideGraceWindow(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")

	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	repo.sessionQuestion.countAnsweredFn = func(sessionID uint) (int64, error) {
		return 2, nil
	}
	repo.session.completeFn = func(id uint, completion repositories.SessionCompletion) error {
		t.Error("a session with time left must not be finalized")
		return nil
	}

	service, _ := newTestSessionService(repo)

	resp, err := service.EnterSession(context.Background(), quiz.Slug, session.Code, "user-1")
	if err != nil {
		t.Fatalf("EnterSession returned error: %v", err)
	}
	if resp.RedirectToFinish {
		t.Error("RedirectToFinish should be false with time remaining")
	}
	if resp.Session.Status != models.SessionStarted {
		t.Errorf("Status = %s, want started", resp.Session.Status)
	}
	if resp.Session.AnsweredCount != 2 {
		t.Errorf("AnsweredCount = %d, want 2", resp.Session.AnsweredCount)
	}
	if resp.Quiz.Slug != quiz.Slug {
		t.Errorf("Quiz.Slug = %s, want %s", resp.Quiz.Slug, quiz.Slug)
	}
}

func TestSessionService_EnterSession_WrongSlugHidesSession(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.EnterSession(context.Background(), "other-quiz", session.Code, "user-1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionService_EnterSession_WrongOwner(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.EnterSession(context.Background(), quiz.Slug, session.Code, "user-2")
	if !errors.Is(err, ErrSessionAccessDenied) {
		t.Errorf("err = %v, want ErrSessionAccessDenied", err)
	}
}

func TestSessionService_ListQuestions_StripsAnswerKey(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")

	snapshot := datatypes.JSON(`{"id":5,"code":"Q5","question":"2+2?","correct_answer":"4","solution":"basic addition"}`)
	session.Questions = []models.SessionQuestion{
		{
			QuizSessionID:    session.ID,
			QuestionID:       5,
			OriginalQuestion: snapshot,
			Status:           models.AnswerNotViewed,
			Question:         models.Question{ID: 5, Code: "Q5", Type: models.ShortAnswer, DefaultMarks: 2},
		},
	}

	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}

	service, _ := newTestSessionService(repo)

	views, err := service.ListQuestions(context.Background(), quiz.Slug, session.Code, "user-1")
	if err != nil {
		t.Fatalf("ListQuestions returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}

	var content map[string]interface{}
	if err := json.Unmarshal(views[0].Question, &content); err != nil {
		t.Fatalf("failed to decode question content: %v", err)
	}
	if _, ok := content["correct_answer"]; ok {
		t.Error("correct_answer must be stripped from the served question")
	}
	if _, ok := content["solution"]; ok {
		t.Error("solution must be stripped from the served question")
	}
	if content["question"] != "2+2?" {
		t.Errorf("question text = %v, want 2+2?", content["question"])
	}
	if views[0].Marks != 2 {
		t.Errorf("Marks = %v, want 2", views[0].Marks)
	}
	if views[0].Position != 1 {
		t.Errorf("Position = %d, want 1", views[0].Position)
	}
}

func TestSessionService_SubmitAnswer_QuestionNotFound(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	req := &SubmitAnswerRequest{Status: models.AnswerAnswered, Answer: json.RawMessage(`"4"`)}
	_, err := service.SubmitAnswer(context.Background(), quiz.Slug, session.Code, "QX", "user-1", req)
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestSessionService_SubmitAnswer_QuestionNotInSession(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	repo.question.getByCodeFn = func(code string) (*models.Question, error) {
		return &models.Question{ID: 99, Code: code, Type: models.ShortAnswer}, nil
	}
	service, _ := newTestSessionService(repo)

	req := &SubmitAnswerRequest{Status: models.AnswerAnswered, Answer: json.RawMessage(`"4"`)}
	_, err := service.SubmitAnswer(context.Background(), quiz.Slug, session.Code, "Q99", "user-1", req)
	if !errors.Is(err, ErrQuestionNotInSession) {
		t.Errorf("err = %v, want ErrQuestionNotInSession", err)
	}
}

func TestSessionService_SubmitAnswer_InvalidStatusRejected(t *testing.T) {
	repo := newMockRepository()
	service, _ := newTestSessionService(repo)

	req := &SubmitAnswerRequest{Status: "finished", Answer: json.RawMessage(`"4"`)}
	_, err := service.SubmitAnswer(context.Background(), "math-basics", "code", "Q1", "user-1", req)
	if err == nil {
		t.Fatal("expected a validation error for an unknown answer status")
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("err = %T, want validator.ValidationErrors", err)
	}
}

// A submission that lands after the session completed must not write
// anything, it only reports the current state.
func TestSessionService_SubmitAnswer_CompletedSessionIsNoOp(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	session.Status = models.SessionCompleted

	question := &models.Question{ID: 5, Code: "Q5", Type: models.ShortAnswer, CorrectAnswer: datatypes.JSON(`"4"`)}
	record := &models.SessionQuestion{
		QuizSessionID: session.ID,
		QuestionID:    question.ID,
		Status:        models.AnswerNotAnswered,
	}

	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	repo.question.getByCodeFn = func(code string) (*models.Question, error) {
		return question, nil
	}
	repo.sessionQuestion.getBySessionAndQuestionFn = func(sessionID, questionID uint) (*models.SessionQuestion, error) {
		return record, nil
	}
	repo.sessionQuestion.upsertAnswerFn = func(answer *models.SessionQuestion) error {
		t.Error("completed session must not accept answer writes")
		return nil
	}
	repo.sessionQuestion.countAnsweredFn = func(sessionID uint) (int64, error) {
		return 7, nil
	}

	service, _ := newTestSessionService(repo)

	req := &SubmitAnswerRequest{Status: models.AnswerAnswered, Answer: json.RawMessage(`"4"`)}
	resp, err := service.SubmitAnswer(context.Background(), quiz.Slug, session.Code, question.Code, "user-1", req)
	if err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	if resp.AnsweredCount != 7 {
		t.Errorf("AnsweredCount = %d, want 7", resp.AnsweredCount)
	}
	if resp.Status != record.Status {
		t.Errorf("Status = %s, want the stored status %s", resp.Status, record.Status)
	}
}

func TestSessionService_GetResults_NotCompleted(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.GetResults(context.Background(), quiz.Slug, session.Code, "user-1")
	if !errors.Is(err, ErrResultsNotAvailable) {
		t.Errorf("err = %v, want ErrResultsNotAvailable", err)
	}
}

func TestSessionService_GetResults_ReturnsFrozenPayload(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	session.Status = models.SessionCompleted
	completedAt := time.Now().Add(-time.Minute)
	session.CompletedAt = &completedAt

	frozen := models.SessionResults{
		Score:          7.5,
		Percentage:     75,
		TotalMarks:     10,
		AnsweredCount:  8,
		CorrectCount:   7,
		WrongCount:     1,
		TotalQuestions: 10,
		Passed:         true,
	}
	payload, _ := json.Marshal(frozen)
	session.Results = datatypes.JSON(payload)

	session.Questions = []models.SessionQuestion{
		{
			QuestionID: 11,
			Status:     models.AnswerAnswered,
			IsCorrect:  true,
			Question:   models.Question{ID: 11, Code: "q-aaa"},
		},
		{
			QuestionID: 12,
			Status:     models.AnswerMarkForReview,
			Question:   models.Question{ID: 12, Code: "q-bbb"},
		},
	}

	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	resp, err := service.GetResults(context.Background(), quiz.Slug, session.Code, "user-1")
	if err != nil {
		t.Fatalf("GetResults returned error: %v", err)
	}
	if resp.Results.Score != 7.5 || resp.Results.Percentage != 75 {
		t.Errorf("Results = %+v, want the frozen score 7.5 at 75%%", resp.Results)
	}
	if !resp.Results.Passed {
		t.Error("Passed should come back from the frozen payload")
	}
	if resp.Session.AnsweredCount != 8 {
		t.Errorf("AnsweredCount = %d, want 8", resp.Session.AnsweredCount)
	}

	if len(resp.Steps) != 2 {
		t.Fatalf("Steps = %d, want one per dealt question", len(resp.Steps))
	}
	first, second := resp.Steps[0], resp.Steps[1]
	if first.Position != 1 || first.QuestionCode != "q-aaa" || first.Status != models.AnswerAnswered || !first.IsCorrect {
		t.Errorf("first step = %+v, want position 1 q-aaa answered correct", first)
	}
	if second.Position != 2 || second.QuestionCode != "q-bbb" || second.Status != models.AnswerMarkForReview || second.IsCorrect {
		t.Errorf("second step = %+v, want position 2 q-bbb marked for review", second)
	}
}

func TestSessionService_GetSolutions_NotCompleted(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.GetSolutions(context.Background(), quiz.Slug, session.Code, "user-1")
	if !errors.Is(err, ErrResultsNotAvailable) {
		t.Errorf("err = %v, want ErrResultsNotAvailable", err)
	}
}

func TestSessionService_GetSolutions_HiddenByQuizSetting(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	quiz.Settings.HideSolutions = true
	session := startedSession(quiz, "user-1")
	session.Status = models.SessionCompleted
	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	_, err := service.GetSolutions(context.Background(), quiz.Slug, session.Code, "user-1")
	if !errors.Is(err, ErrSolutionsHidden) {
		t.Errorf("err = %v, want ErrSolutionsHidden", err)
	}
}

// The solutions view serves the full snapshot, answer key included, which
// ListQuestions strips.
func TestSessionService_GetSolutions_IncludesAnswerKey(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	session.Status = models.SessionCompleted
	session.Questions = []models.SessionQuestion{
		{
			QuestionID:       11,
			Status:           models.AnswerAnswered,
			IsCorrect:        true,
			MarksEarned:      2,
			OriginalQuestion: datatypes.JSON(`{"text":"2+2?","correct_answer":"4","solution":"basic addition"}`),
			UserAnswer:       datatypes.JSON(`"4"`),
			Question:         models.Question{ID: 11, Code: "q-aaa", Type: models.MultipleChoiceSingle},
		},
	}
	repo.session.getByCodeWithQuestionsFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service, _ := newTestSessionService(repo)

	views, err := service.GetSolutions(context.Background(), quiz.Slug, session.Code, "user-1")
	if err != nil {
		t.Fatalf("GetSolutions returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	view := views[0]
	if view.Code != "q-aaa" || view.Position != 1 || !view.IsCorrect || view.MarksEarned != 2 {
		t.Errorf("view = %+v, want q-aaa at position 1 marked correct for 2", view)
	}

	var content map[string]interface{}
	if err := json.Unmarshal(view.Question, &content); err != nil {
		t.Fatalf("failed to decode question payload: %v", err)
	}
	if content["correct_answer"] != "4" {
		t.Errorf("correct_answer = %v, want the answer key served", content["correct_answer"])
	}
	if content["solution"] != "basic addition" {
		t.Errorf("solution = %v, want the solution text served", content["solution"])
	}
}

func TestSessionService_ListByUser(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()

	completed := startedSession(quiz, "user-1")
	completed.Status = models.SessionCompleted
	payload, _ := json.Marshal(models.SessionResults{AnsweredCount: 5})
	completed.Results = datatypes.JSON(payload)

	running := startedSession(quiz, "user-1")
	running.ID = 43
	running.Code = "ffffffff-bbbb-cccc-dddd-eeeeeeeeeeee"

	repo.session.listByUserFn = func(userID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
		return []*models.QuizSession{completed, running}, 12, nil
	}

	service, _ := newTestSessionService(repo)

	resp, err := service.ListByUser(context.Background(), "user-1", repositories.SessionFilters{Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if resp.Total != 12 {
		t.Errorf("Total = %d, want 12", resp.Total)
	}
	if resp.Page != 2 {
		t.Errorf("Page = %d, want 2", resp.Page)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("Sessions = %d, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].AnsweredCount != 5 {
		t.Errorf("completed session AnsweredCount = %d, want 5 from the frozen payload", resp.Sessions[0].AnsweredCount)
	}
	if resp.Sessions[1].AnsweredCount != 0 {
		t.Errorf("running session AnsweredCount = %d, want 0", resp.Sessions[1].AnsweredCount)
	}
}

func TestGracePeriodWindow(t *testing.T) {
	if DefaultGraceWindow != 15*time.Second {
		t.Errorf("DefaultGraceWindow = %v, want 15s", DefaultGraceWindow)
	}
}

func TestSessionRemainingSeconds(t *testing.T) {
	now := time.Now()
	session := &models.QuizSession{Status: models.SessionStarted, EndsAt: now.Add(90 * time.Second)}
	if got := session.RemainingSeconds(now); got != 90 {
		t.Errorf("RemainingSeconds = %d, want 90", got)
	}

	session.EndsAt = now.Add(-8 * time.Second)
	if got := session.RemainingSeconds(now); got != -8 {
		t.Errorf("RemainingSeconds past the end = %d, want -8", got)
	}

	session.Status = models.SessionCompleted
	session.EndsAt = now.Add(time.Hour)
	if got := session.RemainingSeconds(now); got != 0 {
		t.Errorf("RemainingSeconds on a completed session = %d, want 0", got)
	}
}
