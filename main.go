package main

import (
	"CrewChat/config"
	"CrewChat/controllers"
	"CrewChat/repositories/impl"
	"CrewChat/routes"
	"CrewChat/services"
	"CrewChat/websocket"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	// Initialize database
	config.InitDatabase()

	// Initialize repositories
	messageRepo := impl.NewMessageRepository(config.DB)

	// Membership lives in a separate service; we only ask it questions
	membership := services.NewMembershipClient(config.MembershipServiceURL())

	// Initialize services
	chatService := services.NewChatService(messageRepo, membership)
	presenceService := services.NewPresenceService()

	// Initialize WebSocket hub
	hub := websocket.NewHub()

	// Set services in controllers
	controllers.SetChatService(chatService)
	controllers.SetWebSocketHub(hub, chatService, presenceService)

	// Initialize Gin router
	r := gin.Default()

	// Register routes
	routes.RegisterRoutes(r)

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	r.Run(":" + port)
}
