package handlers

import (
	"errors"
	"net/http"

	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/services"
	"github.com/examsphere/quiz-session-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	BaseHandler
	quizService        services.QuizService
	leaderboardService services.LeaderboardService
}

func NewQuizHandler(
	quizService services.QuizService,
	leaderboardService services.LeaderboardService,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:        NewBaseHandler(logger),
		quizService:        quizService,
		leaderboardService: leaderboardService,
	}
}

// GetInstructions returns the pre-start quiz overview
// @Summary Get quiz instructions
// @Description Returns the quiz overview shown before a session starts
// @Tags quizzes
// @Produce json
// @Param slug path string true "Quiz slug"
// @Success 200 {object} models.QuizInstructionsResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/instructions [get]
func (h *QuizHandler) GetInstructions(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}

	h.LogRequest(c, "Getting quiz instructions", "quiz_slug", slug)

	instructions, err := h.quizService.GetInstructions(c.Request.Context(), slug)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, instructions)
}

// GetLeaderboard returns the ranked best scores for the session's quiz scope
// @Summary Get quiz leaderboard
// @Description Returns each user's best completed score, ranked descending
// @Tags quizzes
// @Produce json
// @Param slug path string true "Quiz slug"
// @Param code path string true "Session code"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} models.LeaderboardResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes/{slug}/sessions/{code}/leaderboard [get]
func (h *QuizHandler) GetLeaderboard(c *gin.Context) {
	slug := ParseStringIDParam(c, "slug")
	if slug == "" {
		return
	}
	code := ParseStringIDParam(c, "code")
	if code == "" {
		return
	}

	h.LogRequest(c, "Getting quiz leaderboard", "quiz_slug", slug, "session_code", code)

	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	page, size := parsePagination(c)
	filters := repositories.LeaderboardFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	leaderboard, err := h.leaderboardService.GetByQuiz(c.Request.Context(), slug, code, userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}

func (h *QuizHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrQuizNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Quiz is not active",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrSessionAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied to session",
		})
	case errors.Is(err, services.ErrLeaderboardDisabled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Leaderboard is disabled for this quiz",
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
