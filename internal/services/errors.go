package services

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP status codes by the handler layer.
var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotActive    = errors.New("quiz is not active")
	ErrScheduleNotFound = errors.New("quiz schedule not found")
	ErrScheduleClosed   = errors.New("quiz schedule window is closed")

	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionNotActive        = errors.New("session is not active")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrSessionExpired          = errors.New("session time expired")
	ErrSessionConflict         = errors.New("session was modified concurrently")

	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionNotInSession = errors.New("question does not belong to this session")
	ErrLeaderboardDisabled  = errors.New("leaderboard is disabled for this quiz")
	ErrResultsNotAvailable  = errors.New("results are not available until the session is completed")
	ErrSolutionsHidden      = errors.New("solutions are hidden for this quiz")
	ErrUserNotFound         = errors.New("user not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrValidationFailed     = errors.New("validation failed")
	ErrSessionAccessDenied  = errors.New("session belongs to another user")
)

// Entitlement denial reasons returned to clients verbatim.
const (
	ReasonMaxAttemptsExceeded = "max_attempts_exceeded"
	ReasonInsufficientPoints  = "insufficient_points"
	ReasonNoActivePlan        = "no_active_plan"
)

// EntitlementError is returned when a user may not start a new session. Reason
// is one of the Reason* constants, Message is the user facing explanation.
type EntitlementError struct {
	UserID  string
	QuizID  uint
	Reason  string
	Message string
}

func (e *EntitlementError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("user %s cannot start quiz %d: %s (%s)", e.UserID, e.QuizID, e.Reason, e.Message)
	}
	return fmt.Sprintf("user %s cannot start quiz %d: %s", e.UserID, e.QuizID, e.Reason)
}

func NewEntitlementError(userID string, quizID uint, reason, message string) *EntitlementError {
	return &EntitlementError{UserID: userID, QuizID: quizID, Reason: reason, Message: message}
}

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ValidationErrors aggregates field errors so a response can report all of
// them at once.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msg := e[0].Error()
	if len(e) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e)-1)
	}
	return msg
}

// PermissionError carries who tried to do what on which resource.
type PermissionError struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// BusinessRuleError is a domain rule violation that is not a permission or
// input problem, e.g. submitting an answer after the timer ran out.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
