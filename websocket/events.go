package websocket

import (
	"encoding/json"
)

// Типы событий от клиента
const (
	EventJoinChannel  = "join-channel"
	EventLeaveChannel = "leave-channel"
	EventSendMessage  = "send-message"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
)

// Типы событий от сервера
const (
	EventChannelHistory = "channel-history"
	EventMessage        = "message"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventError          = "error"
)

// InboundEvent is the envelope for everything a client sends over the socket.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEvent is the envelope for everything the server sends back.
type OutboundEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type JoinChannelPayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type SendMessagePayload struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Type      string `json:"type"`
}

// leave-channel и typing-события идут без payload: активный канал
// определяется сессией соединения.

type UserTypingPayload struct {
	Username string `json:"username"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func errorEvent(message string) OutboundEvent {
	return OutboundEvent{Type: EventError, Payload: ErrorPayload{Message: message}}
}
