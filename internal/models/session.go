package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionStarted   SessionStatus = "started"
	SessionCompleted SessionStatus = "completed"
)

type AnswerStatus string

const (
	AnswerNotViewed             AnswerStatus = "not_viewed"
	AnswerNotAnswered           AnswerStatus = "not_answered"
	AnswerAnswered              AnswerStatus = "answered"
	AnswerMarkForReview         AnswerStatus = "mark_for_review"
	AnswerAnsweredMarkForReview AnswerStatus = "answered_mark_for_review"
)

// CountsAsAnswered reports whether the status counts toward the answered total.
func (s AnswerStatus) CountsAsAnswered() bool {
	return s == AnswerAnswered || s == AnswerAnsweredMarkForReview
}

type QuizSession struct {
	ID     uint          `json:"id" gorm:"primaryKey"`
	Code   string        `json:"code" gorm:"not null;uniqueIndex;size:36"`
	QuizID uint          `json:"quiz_id" gorm:"not null;index:idx_quiz_user_status"`
	UserID string        `json:"user_id" gorm:"not null;index:idx_quiz_user_status;size:255"`
	Status SessionStatus `json:"status" gorm:"not null;default:started;index:idx_quiz_user_status"`

	// Optional schedule binding; scopes the active-session lookup and the leaderboard
	QuizScheduleID *uint `json:"quiz_schedule_id" gorm:"index"`

	// Timing
	StartedAt      time.Time  `json:"started_at" gorm:"not null"`
	EndsAt         time.Time  `json:"ends_at" gorm:"not null"`
	CompletedAt    *time.Time `json:"completed_at"`
	TotalDuration  int        `json:"total_duration" gorm:"not null"` // seconds granted at start
	TotalTimeTaken int        `json:"total_time_taken" gorm:"default:0"`

	// Progress
	CurrentQuestion int `json:"current_question" gorm:"default:0"`

	// Frozen scoring output, written exactly once at finalize. Score and
	// Percentage mirror the results payload so the leaderboard can aggregate
	// without unpacking JSON.
	Results    datatypes.JSON `json:"results" gorm:"type:jsonb"`
	Score      float64        `json:"score" gorm:"default:0;index"`
	Percentage float64        `json:"percentage" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz      Quiz              `json:"quiz" gorm:"foreignKey:QuizID"`
	User      User              `json:"user" gorm:"foreignKey:UserID"`
	Schedule  *QuizSchedule     `json:"schedule" gorm:"foreignKey:QuizScheduleID"`
	Questions []SessionQuestion `json:"questions" gorm:"foreignKey:QuizSessionID"`
}

// SessionQuestion holds one question's state inside a session. OriginalQuestion
// snapshots the question as presented so later edits to the bank cannot change
// what the user was asked.
type SessionQuestion struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	QuizSessionID uint `json:"quiz_session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	QuestionID    uint `json:"question_id" gorm:"not null;uniqueIndex:idx_session_question;index"`

	OriginalQuestion datatypes.JSON `json:"original_question" gorm:"type:jsonb"`
	UserAnswer       datatypes.JSON `json:"user_answer" gorm:"type:jsonb"`
	Status           AnswerStatus   `json:"status" gorm:"not null;default:not_viewed;index"`

	// Grading
	IsCorrect     bool    `json:"is_correct" gorm:"default:false"`
	MarksEarned   float64 `json:"marks_earned" gorm:"default:0"`
	MarksDeducted float64 `json:"marks_deducted" gorm:"default:0"`

	TimeTaken int `json:"time_taken" gorm:"default:0"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Session  QuizSession `json:"session" gorm:"foreignKey:QuizSessionID"`
	Question Question    `json:"question" gorm:"foreignKey:QuestionID"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

func (SessionQuestion) TableName() string {
	return "session_questions"
}

// RemainingSeconds returns the wall clock seconds left before EndsAt.
// Past EndsAt the value goes negative, which callers use to show how
// far into the grace window a still-open session is. Completed
// sessions always read 0.
func (s *QuizSession) RemainingSeconds(now time.Time) int {
	if s.Status == SessionCompleted {
		return 0
	}
	return int(s.EndsAt.Sub(now).Seconds())
}

// IsExpired reports whether the timer ran out.
func (s *QuizSession) IsExpired(now time.Time) bool {
	return s.Status == SessionStarted && now.After(s.EndsAt)
}
