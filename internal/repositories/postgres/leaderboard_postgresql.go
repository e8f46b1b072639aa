package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/examsphere/quiz-session-service/internal/cache"
	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
)

type LeaderboardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLeaderboardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.LeaderboardRepository {
	return &LeaderboardPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (l *LeaderboardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

// leaderboardPage is the cached shape of one TopByQuiz result page.
type leaderboardPage struct {
	Rows  []repositories.LeaderboardRow `json:"rows"`
	Total int64                         `json:"total"`
}

// TopByQuiz aggregates each user's best completed session. A user appears
// once with MAX(score) and MAX(percentage), ranked by score descending.
// Pages are cached briefly; session completion drops them (quiz:<id>*).
func (l *LeaderboardPostgreSQL) TopByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.LeaderboardFilters) ([]repositories.LeaderboardRow, int64, error) {
	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	scheduleKey := "all"
	if filters.ScheduleID != nil {
		scheduleKey = fmt.Sprintf("%d", *filters.ScheduleID)
	}
	cacheKey := fmt.Sprintf("quiz:%d:sched:%s:limit:%d:offset:%d", quizID, scheduleKey, limit, filters.Offset)

	var page leaderboardPage
	err := l.cacheManager.Leaderboard.CacheOrExecute(ctx, cacheKey, &page, cache.LeaderboardCacheConfig.TTL, func() (interface{}, error) {
		rows, total, err := l.queryTop(ctx, tx, quizID, filters, limit)
		if err != nil {
			return nil, err
		}
		return leaderboardPage{Rows: rows, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	return page.Rows, page.Total, nil
}

func (l *LeaderboardPostgreSQL) queryTop(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.LeaderboardFilters, limit int) ([]repositories.LeaderboardRow, int64, error) {
	db := l.getDB(tx)

	base := db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("quiz_id = ? AND status = ?", quizID, models.SessionCompleted)

	if filters.ScheduleID != nil {
		base = base.Where("quiz_schedule_id = ?", *filters.ScheduleID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("user_id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []repositories.LeaderboardRow
	query := base.
		Select("user_id, MAX(score) AS high_score, MAX(percentage) AS percentage").
		Group("user_id").
		Order("high_score DESC, percentage DESC, user_id ASC").
		Limit(limit)
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
