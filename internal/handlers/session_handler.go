package handlers

import (
	"errors"
	"net/http"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/services"
	"github.com/examsphere/quiz-session-service/internal/utils"
	"github.com/examsphere/quiz-session-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// StartSession starts or resumes a quiz session
// @Summary Start or resume a quiz session
// @Description Returns the caller's running session for the quiz, creating one if none exists
// @Tags sessions
// @Accept json
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param session body services.StartSessionRequest false "Start options"
// @Success 201 {object} models.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}

	h.LogRequest(c, "Starting quiz session", "quiz_slug", slug)

	var req services.StartSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.StartOrResume(c.Request.Context(), slug, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if session.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, session)
}

// EnterSession returns the running session state
// @Summary Enter a quiz session
// @Description Returns session state and remaining time, finalizing the session when it is inside the grace window
// @Tags sessions
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Success 200 {object} services.EnterSessionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code} [get]
func (h *SessionHandler) EnterSession(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Entering quiz session", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	response, err := h.sessionService.EnterSession(c.Request.Context(), slug, code, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListQuestions lists the session's questions
// @Summary List session questions
// @Description Returns the questions dealt to the session, answer keys withheld
// @Tags sessions
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Success 200 {object} SuccessResponse{data=[]models.SessionQuestionView}
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code}/questions [get]
func (h *SessionHandler) ListQuestions(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Listing session questions", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	questions, err := h.sessionService.ListQuestions(c.Request.Context(), slug, code, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: questions})
}

// SubmitAnswer records an answer for one question
// @Summary Submit an answer
// @Description Upserts the answer record for the question; no-op when the session already completed
// @Tags sessions
// @Accept json
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Param question_code path string true "Question code"
// @Param answer body services.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} models.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code}/answers/{question_code} [put]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}
	questionCode := ParseStringIDParam(c, "question_code")
	if questionCode == "" {
		return
	}

	h.LogRequest(c, "Submitting answer",
		"quiz_slug", slug,
		"session_code", code,
		"question_code", questionCode)

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	answer, err := h.sessionService.SubmitAnswer(c.Request.Context(), slug, code, questionCode, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// FinishSession finalizes a session
// @Summary Finish a quiz session
// @Description Finalizes the session and freezes its results; idempotent
// @Tags sessions
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Success 200 {object} services.FinishResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code}/finish [post]
func (h *SessionHandler) FinishSession(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Finishing quiz session", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	response, err := h.sessionService.Finish(c.Request.Context(), slug, code, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetResults returns the frozen results of a completed session
// @Summary Get session results
// @Description Returns the results payload written at finalize
// @Tags sessions
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Success 200 {object} services.ResultsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code}/results [get]
func (h *SessionHandler) GetResults(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Getting session results", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	results, err := h.sessionService.GetResults(c.Request.Context(), slug, code, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ListMySessions lists the caller's sessions
// @Summary List own sessions
// @Description Returns the caller's sessions, newest first
// @Tags sessions
// @Produce json
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} services.SessionListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sessions [get]
func (h *SessionHandler) GetSolutions(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Getting session solutions", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	solutions, err := h.sessionService.GetSolutions(c.Request.Context(), slug, code, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"solutions": solutions})
}

func (h *SessionHandler) ListMySessions(c *gin.Context) {
	h.LogRequest(c, "Listing own sessions")

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	filters := parseSessionFilters(c)
	sessions, err := h.sessionService.ListByUser(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page, size := parsePagination(c)
	filters := repositories.SessionFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if status := c.Query("status"); status != "" {
		sessionStatus := models.SessionStatus(status)
		filters.Status = &sessionStatus
	}
	if sortBy := c.Query("sort_by"); sortBy != "" {
		filters.SortBy = sortBy
	}
	if sortOrder := c.Query("sort_order"); sortOrder != "" {
		filters.SortOrder = sortOrder
	}

	return filters
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var requestValidationErrors validator.ValidationErrors
	if errors.As(err, &requestValidationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: requestValidationErrors,
		})
		return
	}

	var entitlementError *services.EntitlementError
	if errors.As(err, &entitlementError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: entitlementError.Message,
			Details: map[string]interface{}{
				"reason": entitlementError.Reason,
			},
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	// Handle specific session errors
	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrQuizNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Quiz is not active",
		})
	case errors.Is(err, services.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz schedule not found",
		})
	case errors.Is(err, services.ErrScheduleClosed):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Quiz schedule window is closed",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrSessionAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied to session",
		})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is not active",
		})
	case errors.Is(err, services.ErrSessionAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session already completed",
		})
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Session time has expired",
		})
	case errors.Is(err, services.ErrSessionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session was modified concurrently",
		})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found",
		})
	case errors.Is(err, services.ErrQuestionNotInSession):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question does not belong to this session",
		})
	case errors.Is(err, services.ErrResultsNotAvailable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Results are not available until the session is completed",
		})
	case errors.Is(err, services.ErrSolutionsHidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Solutions are hidden for this quiz",
		})
	// Generic errors
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
