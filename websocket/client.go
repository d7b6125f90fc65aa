package websocket

import (
	"CrewChat/services"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Период отправки пингов
	pingPeriod = 5 * time.Second

	// Максимальный размер входящего сообщения
	maxMessageSize = 1024 * 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Разрешаем все origins для упрощения разработки
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client владеет одним WebSocket-соединением и его сессией канала.
type Client struct {
	ID       string
	UserID   string
	Username string

	hub      *Hub
	chat     *services.ChatService
	presence *services.PresenceService

	conn *websocket.Conn
	send chan OutboundEvent

	// Активный канал сессии; guarded by hub.mu
	channel string
}

func NewClient(hub *Hub, chat *services.ChatService, presence *services.PresenceService, conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Username: username,
		hub:      hub,
		chat:     chat,
		presence: presence,
		conn:     conn,
		send:     make(chan OutboundEvent, 256),
	}
}

// ServeWs upgrades the HTTP request and runs the connection's pumps.
func ServeWs(hub *Hub, chat *services.ChatService, presence *services.PresenceService, w http.ResponseWriter, r *http.Request, userID, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed for user %s: %v", userID, err)
		return
	}

	client := NewClient(hub, chat, presence, conn, userID, username)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// ReadPump обрабатывает входящие события от клиента
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Recovered in ReadPump: %v", r)
		}
		c.teardown()
		c.conn.Close()
		log.Printf("[WebSocket] Соединение закрыто для пользователя %s", c.UserID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Read error for user %s: %v", c.UserID, err)
			}
			break
		}

		var event InboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[WebSocket] Bad event from user %s: %v", c.UserID, err)
			c.sendEvent(errorEvent("malformed event"))
			continue
		}

		c.dispatch(context.Background(), event)
	}
}

// WritePump отправляет события клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Recovered in WritePump: %v", r)
		}
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				log.Printf("[WebSocket] Error writing to client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, event InboundEvent) {
	switch event.Type {
	case EventJoinChannel:
		var payload JoinChannelPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			c.sendEvent(errorEvent("malformed join-channel payload"))
			return
		}
		c.handleJoin(ctx, payload)

	case EventLeaveChannel:
		c.handleLeave()

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			c.sendEvent(errorEvent("malformed send-message payload"))
			return
		}
		c.handleSend(ctx, payload)

	case EventTyping:
		c.handleTyping(true)

	case EventStopTyping:
		c.handleTyping(false)

	default:
		c.sendEvent(errorEvent("unknown event type: " + event.Type))
	}
}

// handleJoin re-validates membership, performs the implicit leave if the
// connection already holds another channel, and returns the most recent
// history to the joiner only.
func (c *Client) handleJoin(ctx context.Context, payload JoinChannelPayload) {
	if payload.ChannelID == "" {
		c.sendEvent(errorEvent("channelId is required"))
		return
	}

	if err := c.chat.Authorize(ctx, c.UserID, payload.ChannelID); err != nil {
		c.sendAuthorizationError(err)
		return
	}

	lock := c.hub.ChannelLock(payload.ChannelID)
	lock.Lock()

	previous := c.hub.JoinChannel(c, payload.ChannelID)
	if previous != "" {
		c.clearTyping(previous)
	}

	history, err := c.chat.RecentMessages(ctx, payload.ChannelID, 0)
	lock.Unlock()

	if err != nil {
		log.Printf("[Chat] History load failed for channel %s: %v", payload.ChannelID, err)
		c.sendEvent(errorEvent("failed to load channel history"))
		return
	}

	// История уходит только подключившемуся, не всей комнате
	c.sendEvent(OutboundEvent{Type: EventChannelHistory, Payload: history})
}

// handleLeave is idempotent: with no active channel it is a no-op.
func (c *Client) handleLeave() {
	left := c.hub.LeaveChannel(c)
	if left != "" {
		c.clearTyping(left)
	}
}

func (c *Client) handleSend(ctx context.Context, payload SendMessagePayload) {
	channel := c.hub.ActiveChannel(c)
	if channel == "" {
		c.sendEvent(errorEvent(services.ErrNoActiveChannel.Error()))
		return
	}

	// Членство проверяется заново: доступ мог быть отозван после join
	if err := c.chat.Authorize(ctx, c.UserID, channel); err != nil {
		c.sendAuthorizationError(err)
		return
	}

	lock := c.hub.ChannelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	message, err := c.chat.SaveMessage(ctx, channel, c.UserID, c.Username, payload.Content, payload.Type)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) || errors.Is(err, services.ErrInvalidType) {
			c.sendEvent(errorEvent(err.Error()))
		} else {
			log.Printf("[Chat] Failed to save message in channel %s: %v", channel, err)
			c.sendEvent(errorEvent("failed to save message"))
		}
		return
	}

	// Отправитель тоже получает событие: единый авторитетный echo
	c.hub.BroadcastToChannel(channel, OutboundEvent{Type: EventMessage, Payload: message})
}

func (c *Client) handleTyping(typing bool) {
	channel := c.hub.ActiveChannel(c)
	if channel == "" {
		c.sendEvent(errorEvent(services.ErrNoActiveChannel.Error()))
		return
	}

	c.presence.SetTyping(channel, c.Username, typing)

	eventType := EventUserTyping
	if !typing {
		eventType = EventUserStopTyping
	}
	c.hub.BroadcastToChannelExcept(channel,
		OutboundEvent{Type: eventType, Payload: UserTypingPayload{Username: c.Username}}, c)
}

// teardown destroys the session when the transport connection closes. Typing
// state added by this connection dies with it.
func (c *Client) teardown() {
	channel := c.hub.ActiveChannel(c)
	if channel != "" {
		c.clearTyping(channel)
	}
	c.hub.Unregister(c)
}

func (c *Client) clearTyping(channelID string) {
	if c.presence.ClearUser(channelID, c.Username) {
		c.hub.BroadcastToChannelExcept(channelID,
			OutboundEvent{Type: EventUserStopTyping, Payload: UserTypingPayload{Username: c.Username}}, c)
	}
}

func (c *Client) sendAuthorizationError(err error) {
	if errors.Is(err, services.ErrNotAMember) {
		c.sendEvent(errorEvent("NOT_A_MEMBER"))
		return
	}
	log.Printf("[Chat] Membership check failed for user %s: %v", c.UserID, err)
	c.sendEvent(errorEvent("membership check failed"))
}

// sendEvent пишет событие только этому соединению
func (c *Client) sendEvent(event OutboundEvent) {
	select {
	case c.send <- event:
	default:
		// Буфер переполнен: соединение будет снято хабом
	}
}
