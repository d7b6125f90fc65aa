package controllers

import (
	"CrewChat/services"
	"CrewChat/websocket"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	webSocketHub    *websocket.Hub
	wsChatService   *services.ChatService
	presenceService *services.PresenceService
)

func SetWebSocketHub(hub *websocket.Hub, chat *services.ChatService, presence *services.PresenceService) {
	webSocketHub = hub
	wsChatService = chat
	presenceService = presence
}

// ServeWs обрабатывает WebSocket запрос от клиента
func ServeWs(c *gin.Context) {
	// Получаем личность пользователя из токена
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	username, exists := c.Get("username")
	if !exists {
		username = userID
	}

	websocket.ServeWs(webSocketHub, wsChatService, presenceService,
		c.Writer, c.Request, userID.(string), username.(string))
}
