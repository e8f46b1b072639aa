package repositories

import (
	"time"

	"github.com/examsphere/quiz-session-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	UserID    *string               `json:"user_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "completed_at", "score"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

type LeaderboardFilters struct {
	ScheduleID *uint `json:"schedule_id"` // scope to one schedule when the session was schedule-bound
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// SessionCompletion carries the frozen scoring output applied by the
// compare-and-set finalize update.
type SessionCompletion struct {
	QuizID         uint      `json:"quiz_id"`
	CompletedAt    time.Time `json:"completed_at"`
	TotalTimeTaken int       `json:"total_time_taken"`
	Score          float64   `json:"score"`
	Percentage     float64   `json:"percentage"`
	Results        []byte    `json:"results"`
}

// LeaderboardRow is one aggregated row: the user's best completed session.
// Display names are enriched from the user repository afterwards.
type LeaderboardRow struct {
	UserID     string  `json:"user_id"`
	HighScore  float64 `json:"high_score"`
	Percentage float64 `json:"percentage"`
}
