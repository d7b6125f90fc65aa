package controllers

import (
	"CrewChat/repositories"
	"CrewChat/services"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

var chatService ChatServiceInterface

func SetChatService(service ChatServiceInterface) {
	chatService = service
}

// GetChannelMessages возвращает последние сообщения канала (REST-вариант
// истории, тот же membership-гейт, что и у join).
func GetChannelMessages(c *gin.Context) {
	channelID := c.Param("channel_id")
	if channelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}

	// Получаем ID пользователя из токена
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := repositories.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	messages, err := chatService.GetChannelHistory(c.Request.Context(), userID.(string), channelID, limit)
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this channel"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}

// HealthCheck для проверки живости сервиса
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
