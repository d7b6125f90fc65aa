package routes

import (
	"CrewChat/controllers"
	"CrewChat/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Public routes
	r.GET("/health", controllers.HealthCheck)

	// Маршрут WebSocket
	r.GET("/ws", middlewares.AuthMiddleware(), controllers.ServeWs)

	// Protected routes
	channels := r.Group("/channels")
	channels.Use(middlewares.AuthMiddleware())
	{
		channels.GET("/:channel_id/messages", controllers.GetChannelMessages)
	}
}
