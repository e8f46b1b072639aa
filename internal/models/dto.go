package models

import (
	"encoding/json"
	"time"
)

// ===== Requests =====

type StartSessionRequest struct {
	ScheduleCode *string `json:"schedule_code" validate:"omitempty,min=1,max=11"`
}

type SubmitAnswerRequest struct {
	Answer          json.RawMessage `json:"answer"`
	Status          AnswerStatus    `json:"status" validate:"required,answer_status"`
	TimeTaken       int             `json:"time_taken" validate:"min=0"`
	CurrentQuestion *int            `json:"current_question" validate:"omitempty,min=0"`
	TotalTimeTaken  *int            `json:"total_time_taken" validate:"omitempty,min=0"`
}

// ===== Responses =====

type QuizInstructionsResponse struct {
	Code             string  `json:"code"`
	Slug             string  `json:"slug"`
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	TotalQuestions   int     `json:"total_questions"`
	TotalDuration    int     `json:"total_duration"`
	TotalMarks       float64 `json:"total_marks"`
	IsPaid           bool    `json:"is_paid"`
	PointsRequired   int     `json:"points_required"`
	ShowLeaderboard  bool    `json:"show_leaderboard"`
	CutoffPercentage float64 `json:"cutoff_percentage"`
}

type SessionResponse struct {
	Code             string        `json:"code"`
	QuizSlug         string        `json:"quiz_slug"`
	Status           SessionStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	EndsAt           time.Time     `json:"ends_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	TotalDuration    int           `json:"total_duration"`
	CurrentQuestion  int           `json:"current_question"`
	TotalQuestions   int           `json:"total_questions"`
	AnsweredCount    int           `json:"answered_count"`
	Resumed          bool          `json:"resumed,omitempty"`
}

// SessionQuestionView is the question as presented inside a session. It is
// built from the original_question snapshot with answer keys stripped.
type SessionQuestionView struct {
	Code      string          `json:"code"`
	Type      QuestionType    `json:"question_type"`
	Question  json.RawMessage `json:"question"`
	Status    AnswerStatus    `json:"status"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	TimeTaken int             `json:"time_taken"`
	Marks     float64         `json:"marks"`
	Position  int             `json:"position"`
}

// SessionSolutionView is one question of the post-completion review: the
// full snapshot including its answer key and solution, beside what the user
// submitted and how it was marked.
type SessionSolutionView struct {
	Code          string          `json:"code"`
	Type          QuestionType    `json:"question_type"`
	Question      json.RawMessage `json:"question"`
	Status        AnswerStatus    `json:"status"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	IsCorrect     bool            `json:"is_correct"`
	MarksEarned   float64         `json:"marks_earned"`
	MarksDeducted float64         `json:"marks_deducted"`
	Position      int             `json:"position"`
}

type AnswerResponse struct {
	QuestionCode  string       `json:"question_code"`
	Status        AnswerStatus `json:"status"`
	AnsweredCount int          `json:"answered_count"`
}

// SessionResults is the frozen scoring output stored on the session row at
// finalize and echoed back by the results endpoint.
type SessionResults struct {
	Score           float64 `json:"score"`
	Percentage      float64 `json:"percentage"`
	TotalMarks      float64 `json:"total_marks"`
	MarksDeducted   float64 `json:"marks_deducted"`
	AnsweredCount   int     `json:"answered_count"`
	CorrectCount    int     `json:"correct_count"`
	WrongCount      int     `json:"wrong_count"`
	UnansweredCount int     `json:"unanswered_count"`
	TotalQuestions  int     `json:"total_questions"`
	TimeTaken       int     `json:"time_taken"`
	Passed          bool    `json:"passed"`

	Sections []SectionResult `json:"sections,omitempty"`
}

type SectionResult struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correct_count"`
	WrongCount   int     `json:"wrong_count"`
	Total        int     `json:"total_questions"`
}

type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"user_id"`
	FullName   string  `json:"full_name"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	HighScore  float64 `json:"high_score"`
	Percentage float64 `json:"percentage"`
}

type LeaderboardResponse struct {
	QuizSlug string             `json:"quiz_slug"`
	Entries  []LeaderboardEntry `json:"entries"`
	Total    int64              `json:"total"`
}
