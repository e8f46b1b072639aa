package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
)

func newTestLeaderboardService(repo *mockRepository) LeaderboardService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewLeaderboardService(repo, nil, logger)
}

func TestLeaderboardService_GetByQuiz_SessionNotFound(t *testing.T) {
	repo := newMockRepository()
	service := newTestLeaderboardService(repo)

	_, err := service.GetByQuiz(context.Background(), "math-basics", "missing", "user-1", repositories.LeaderboardFilters{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestLeaderboardService_GetByQuiz_WrongOwner(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service := newTestLeaderboardService(repo)

	_, err := service.GetByQuiz(context.Background(), quiz.Slug, session.Code, "user-2", repositories.LeaderboardFilters{})
	if !errors.Is(err, ErrSessionAccessDenied) {
		t.Errorf("err = %v, want ErrSessionAccessDenied", err)
	}
}

func TestLeaderboardService_GetByQuiz_Disabled(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	quiz.Settings.ShowLeaderboard = false
	session := startedSession(quiz, "user-1")
	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	service := newTestLeaderboardService(repo)

	_, err := service.GetByQuiz(context.Background(), quiz.Slug, session.Code, "user-1", repositories.LeaderboardFilters{})
	if !errors.Is(err, ErrLeaderboardDisabled) {
		t.Errorf("err = %v, want ErrLeaderboardDisabled", err)
	}
}

func TestLeaderboardService_GetByQuiz_RanksAndEnriches(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	quiz.Settings.ShowLeaderboard = true
	scheduleID := uint(7)
	session := startedSession(quiz, "user-1")
	session.QuizScheduleID = &scheduleID

	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}

	var gotFilters repositories.LeaderboardFilters
	repo.leaderboard.topByQuizFn = func(quizID uint, filters repositories.LeaderboardFilters) ([]repositories.LeaderboardRow, int64, error) {
		gotFilters = filters
		return []repositories.LeaderboardRow{
			{UserID: "user-9", HighScore: 9.5, Percentage: 95},
			{UserID: "user-1", HighScore: 8, Percentage: 80},
		}, 25, nil
	}
	repo.user.getByIDsFn = func(ids []string) ([]*models.User, error) {
		return []*models.User{{ID: "user-9", FullName: "Top Scorer"}}, nil
	}

	service := newTestLeaderboardService(repo)

	resp, err := service.GetByQuiz(context.Background(), quiz.Slug, session.Code, "user-1",
		repositories.LeaderboardFilters{Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("GetByQuiz returned error: %v", err)
	}

	if gotFilters.ScheduleID == nil || *gotFilters.ScheduleID != scheduleID {
		t.Errorf("ScheduleID filter = %v, want %d from the session binding", gotFilters.ScheduleID, scheduleID)
	}
	if resp.Total != 25 {
		t.Errorf("Total = %d, want 25", resp.Total)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].Rank != 11 || resp.Entries[1].Rank != 12 {
		t.Errorf("Ranks = %d, %d, want 11 and 12 with a 10 row offset", resp.Entries[0].Rank, resp.Entries[1].Rank)
	}
	if resp.Entries[0].FullName != "Top Scorer" {
		t.Errorf("FullName = %q, want the enriched directory name", resp.Entries[0].FullName)
	}
	if resp.Entries[1].FullName != "" {
		t.Errorf("FullName = %q, want empty when the directory has no record", resp.Entries[1].FullName)
	}
}

// A directory outage degrades to unnamed entries instead of failing the read.
func TestLeaderboardService_GetByQuiz_NameLookupFailureIsNotFatal(t *testing.T) {
	repo := newMockRepository()
	quiz := activeQuiz()
	quiz.Settings.ShowLeaderboard = true
	session := startedSession(quiz, "user-1")

	repo.session.getByCodeFn = func(code string) (*models.QuizSession, error) {
		return session, nil
	}
	repo.leaderboard.topByQuizFn = func(quizID uint, filters repositories.LeaderboardFilters) ([]repositories.LeaderboardRow, int64, error) {
		return []repositories.LeaderboardRow{{UserID: "user-9", HighScore: 9.5, Percentage: 95}}, 1, nil
	}
	repo.user.getByIDsFn = func(ids []string) ([]*models.User, error) {
		return nil, errors.New("directory unavailable")
	}

	service := newTestLeaderboardService(repo)

	resp, err := service.GetByQuiz(context.Background(), quiz.Slug, session.Code, "user-1", repositories.LeaderboardFilters{Limit: 10})
	if err != nil {
		t.Fatalf("GetByQuiz returned error: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].FullName != "" {
		t.Errorf("Entries = %+v, want one unnamed entry", resp.Entries)
	}
}
