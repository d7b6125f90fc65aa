package impl

import (
	"CrewChat/models"
	"context"

	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepositoryImpl {
	return &MessageRepositoryImpl{DB: db}
}

func (r *MessageRepositoryImpl) Append(ctx context.Context, message *models.Message) error {
	return r.DB.WithContext(ctx).Create(message).Error
}

func (r *MessageRepositoryImpl) Recent(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	// Пустой канал отдает [], а не null: клиент всегда получает массив
	messages := make([]models.Message, 0, limit)

	query := r.DB.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	// Запрос возвращает новые сообщения первыми, разворачиваем в хронологический порядок
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
