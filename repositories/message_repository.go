package repositories

import (
	"CrewChat/models"
	"context"
)

// HistoryLimit is how many messages a client receives when it joins a channel.
const HistoryLimit = 50

type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	// Recent returns the most recent limit messages of the channel in
	// chronological (oldest first) order.
	Recent(ctx context.Context, channelID string, limit int) ([]models.Message, error)
}
