package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type leaderboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	group  singleflight.Group
}

func NewLeaderboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetByQuiz ranks each user's best completed score for the session's quiz
// scope. The session code pins the scope: a schedule-bound session ranks only
// against that schedule. Concurrent identical reads collapse through
// singleflight since the aggregation scans all completed sessions.
func (s *leaderboardService) GetByQuiz(ctx context.Context, quizSlug, sessionCode, userID string, filters repositories.LeaderboardFilters) (*models.LeaderboardResponse, error) {
	session, err := s.repo.Session().GetByCode(ctx, s.db, sessionCode)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.Quiz.Slug != quizSlug {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionAccessDenied
	}

	settings := session.Quiz.EffectiveSettings()
	if !settings.ShowLeaderboard {
		return nil, ErrLeaderboardDisabled
	}

	filters.ScheduleID = session.QuizScheduleID

	key := leaderboardKey(session.QuizID, filters)
	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.loadLeaderboard(ctx, &session.Quiz, filters)
	})
	if err != nil {
		return nil, err
	}

	return value.(*models.LeaderboardResponse), nil
}

func (s *leaderboardService) loadLeaderboard(ctx context.Context, quiz *models.Quiz, filters repositories.LeaderboardFilters) (*models.LeaderboardResponse, error) {
	rows, total, err := s.repo.Leaderboard().TopByQuiz(ctx, s.db, quiz.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, models.LeaderboardEntry{
			Rank:       filters.Offset + i + 1,
			UserID:     row.UserID,
			HighScore:  row.HighScore,
			Percentage: row.Percentage,
		})
	}

	s.enrichNames(ctx, entries)

	return &models.LeaderboardResponse{
		QuizSlug: quiz.Slug,
		Entries:  entries,
		Total:    total,
	}, nil
}

// enrichNames fills in display names from the user directory. Lookup failures
// leave the entry with an empty name rather than failing the read.
func (s *leaderboardService) enrichNames(ctx context.Context, entries []models.LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to enrich leaderboard names", "error", err)
		return
	}

	byID := make(map[string]*models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	for i := range entries {
		if user, ok := byID[entries[i].UserID]; ok {
			entries[i].FullName = user.FullName
			entries[i].AvatarURL = user.AvatarURL
		}
	}
}

func leaderboardKey(quizID uint, filters repositories.LeaderboardFilters) string {
	scheduleID := uint(0)
	if filters.ScheduleID != nil {
		scheduleID = *filters.ScheduleID
	}
	return fmt.Sprintf("leaderboard:%d:%d:%d:%d", quizID, scheduleID, filters.Limit, filters.Offset)
}
