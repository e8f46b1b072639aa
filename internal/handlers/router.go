package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/examsphere/quiz-session-service/internal/config"
	"github.com/examsphere/quiz-session-service/internal/repositories"
	"github.com/examsphere/quiz-session-service/internal/services"
	"github.com/examsphere/quiz-session-service/internal/utils"
	"github.com/examsphere/quiz-session-service/internal/validator"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	sessionHandler *SessionHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), serviceManager.Leaderboard(), logger),
		sessionHandler: NewSessionHandler(serviceManager.Session(), validator, logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		quizzes := v1.Group("/quizzes/:slug")
		{
			quizzes.GET("/instructions", hm.quizHandler.GetInstructions)

			// Session lifecycle
			quizzes.POST("/sessions", hm.sessionHandler.StartSession)
			quizzes.GET("/sessions/:code", hm.sessionHandler.EnterSession)
			quizzes.POST("/sessions/:code/finish", hm.sessionHandler.FinishSession)

			// In-session operations
			quizzes.GET("/sessions/:code/questions", hm.sessionHandler.ListQuestions)
			quizzes.PUT("/sessions/:code/answers/:question_code", hm.sessionHandler.SubmitAnswer)

			// Post-session reads
			quizzes.GET("/sessions/:code/results", hm.sessionHandler.GetResults)
			quizzes.GET("/sessions/:code/solutions", hm.sessionHandler.GetSolutions)
			quizzes.GET("/sessions/:code/leaderboard", hm.quizHandler.GetLeaderboard)
		}

		// Session history for the authenticated user
		v1.GET("/sessions", hm.sessionHandler.ListMySessions)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-session-service",
		})
	})
}
