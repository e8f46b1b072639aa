package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/examsphere/quiz-session-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps payloads that carry a message next to the data.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// LogRequest logs the start of request handling with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	logger := utils.LoggerFromContext(c, h.logger)
	fields := append([]any{"method", c.Request.Method, "path", c.FullPath()}, args...)
	logger.Info(msg, fields...)
}

// LogError logs a handler-level failure with the request-scoped logger.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	logger := utils.LoggerFromContext(c, h.logger)
	fields := append([]any{"error", err, "method", c.Request.Method, "path", c.FullPath()}, args...)
	logger.Error(msg, fields...)
}

// CurrentUserID reads the authenticated user from the context. It writes the
// 401 response itself when the auth middleware did not run.
func (h *BaseHandler) CurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return id, true
}

// ParseStringIDParam returns a trimmed path parameter, writing the 400
// response when it is empty.
func ParseStringIDParam(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing " + name + " parameter",
		})
	}
	return value
}

// parsePagination reads page/size query parameters with sane bounds.
func parsePagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.DefaultQuery("size", "10"))
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
