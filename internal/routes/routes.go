package routes

import (
	"github.com/egorlet/survey-service/internal/handlers"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes wires the endpoints open to any caller. The session
// group runs behind the identify middleware so authenticated submissions
// pick up the caller's user id.
func RegisterPublicRoutes(rg *gin.RouterGroup, handler *handlers.SurveyHandler, identify gin.HandlerFunc) {
	{
		rg.GET("/poll/list/", handler.GetPolls)

		sessions := rg.Group("/poll_session", identify)
		sessions.GET("/", handler.GetSessions)
		sessions.POST("/", handler.CreateSession)
		sessions.GET("/:id/", handler.GetSessionByID)
	}
}

// RegisterAdminRoutes wires the authoring endpoints; the caller group must
// carry the require-admin middleware.
func RegisterAdminRoutes(rg *gin.RouterGroup, handler *handlers.SurveyHandler) {
	{
		rg.POST("/poll/create/", handler.CreatePoll)
		rg.GET("/poll/detail/:id/", handler.GetPollByID)
		rg.PUT("/poll/detail/:id/", handler.UpdatePoll)
		rg.PATCH("/poll/detail/:id/", handler.UpdatePoll)
		rg.DELETE("/poll/detail/:id/", handler.DeletePoll)

		rg.POST("/question/create/", handler.CreateQuestion)
		rg.GET("/question/list/", handler.GetQuestions)
		rg.GET("/question/detail/:id/", handler.GetQuestionByID)
		rg.PUT("/question/detail/:id/", handler.UpdateQuestion)
		rg.PATCH("/question/detail/:id/", handler.UpdateQuestion)
		rg.DELETE("/question/detail/:id/", handler.DeleteQuestion)
	}
}
