package controllers

import (
	"CrewChat/models"
	"context"
)

// ChatServiceInterface определяет методы чата, нужные контроллерам
type ChatServiceInterface interface {
	GetChannelHistory(ctx context.Context, userID, channelID string, limit int) ([]models.Message, error)
}
