package services

import (
	"CrewChat/interfaces"
	"CrewChat/models"
	"CrewChat/repositories"
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAMember      = errors.New("not a member of this channel")
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrInvalidType     = errors.New("invalid message type")
	ErrNoActiveChannel = errors.New("no active channel")
)

type ChatService struct {
	MessageRepo repositories.MessageRepository
	Membership  interfaces.MembershipAuthority
}

func NewChatService(messageRepo repositories.MessageRepository, membership interfaces.MembershipAuthority) *ChatService {
	return &ChatService{
		MessageRepo: messageRepo,
		Membership:  membership,
	}
}

// Authorize re-validates channel membership against the membership authority.
// Проверка выполняется заново при каждой операции: доступ мог быть отозван
// после подключения.
func (s *ChatService) Authorize(ctx context.Context, userID, channelID string) error {
	member, err := s.Membership.IsMember(ctx, userID, channelID)
	if err != nil {
		return fmt.Errorf("membership check failed: %w", err)
	}
	if !member {
		return ErrNotAMember
	}
	return nil
}

// SaveMessage builds a message with a server-assigned identifier and timestamp
// and appends it to the store. An empty messageType is treated as text; any
// other unknown kind is rejected. The caller must have called Authorize first.
func (s *ChatService) SaveMessage(ctx context.Context, channelID, senderID, senderName, content, messageType string) (*models.Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}

	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if !models.IsValidMessageType(messageType) {
		return nil, ErrInvalidType
	}

	message := &models.Message{
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Type:       messageType,
		CreatedAt:  time.Now(),
	}

	if err := s.MessageRepo.Append(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return message, nil
}

// RecentMessages возвращает последние сообщения канала в хронологическом порядке.
func (s *ChatService) RecentMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > repositories.HistoryLimit {
		limit = repositories.HistoryLimit
	}

	messages, err := s.MessageRepo.Recent(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel history: %w", err)
	}
	if messages == nil {
		// Пустая история сериализуется как [], а не null
		messages = []models.Message{}
	}

	return messages, nil
}

// GetChannelHistory is the membership-gated read used by the REST endpoint.
func (s *ChatService) GetChannelHistory(ctx context.Context, userID, channelID string, limit int) ([]models.Message, error) {
	if err := s.Authorize(ctx, userID, channelID); err != nil {
		return nil, err
	}
	return s.RecentMessages(ctx, channelID, limit)
}
