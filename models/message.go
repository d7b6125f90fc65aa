package models

import (
	"time"
)

// Константы для типов сообщений
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message is a single chat message inside a channel. Rows are append-only:
// nothing in this service updates or deletes them after creation.
type Message struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ChannelID  string    `gorm:"column:channel_id;index" json:"channelId"`
	SenderID   string    `gorm:"column:sender_id" json:"senderId"`
	SenderName string    `gorm:"column:sender_name" json:"senderName"`
	Content    string    `gorm:"column:content" json:"content"`
	Type       string    `gorm:"column:message_type" json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsValidMessageType проверяет тип сообщения
func IsValidMessageType(messageType string) bool {
	return messageType == MessageTypeText || messageType == MessageTypeImage
}
