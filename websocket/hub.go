package websocket

import (
	"log"
	"sync"
)

// Hub maintains the set of active connections and the channel rooms they
// belong to. Вся мутация комнат и сессий проходит через мьютекс хаба.
type Hub struct {
	// Зарегистрированные соединения
	clients map[*Client]bool

	// Комнаты: channel_id -> набор соединений
	rooms map[string]map[*Client]bool

	// Per-channel locks serializing append-then-broadcast, so two concurrent
	// sends on one channel cannot be delivered out of store order. The same
	// lock spans room registration and the history read on join, so a joiner
	// sees every message exactly once: either in the history payload or live.
	channelLocks map[string]*sync.Mutex

	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		rooms:        make(map[string]map[*Client]bool),
		channelLocks: make(map[string]*sync.Mutex),
	}
}

// Register регистрирует новое соединение (еще без канала)
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	log.Printf("[WebSocket] Client registered: %s (user %s)", client.ID, client.UserID)
}

// Unregister removes the connection from its room (if any) and destroys the
// session. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	h.removeFromRoomLocked(client)
	delete(h.clients, client)
	close(client.send)
	log.Printf("[WebSocket] Client unregistered: %s", client.ID)
}

// JoinChannel moves the connection into the channel's room. A connection is
// in at most one room: joining implicitly leaves the previous channel first.
// Returns the channel that was left, if any.
func (h *Hub) JoinChannel(client *Client, channelID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	previous := client.channel
	if previous == channelID {
		return ""
	}

	h.removeFromRoomLocked(client)

	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*Client]bool)
	}
	h.rooms[channelID][client] = true
	client.channel = channelID

	log.Printf("[WebSocket] Client %s joined channel %s", client.ID, channelID)
	return previous
}

// LeaveChannel clears the session's channel. Leaving with no active channel
// is a no-op, not an error.
func (h *Hub) LeaveChannel(client *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	left := client.channel
	h.removeFromRoomLocked(client)
	return left
}

// ActiveChannel returns the channel the connection currently belongs to.
func (h *Hub) ActiveChannel(client *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return client.channel
}

// BroadcastToChannel доставляет событие всем соединениям канала.
func (h *Hub) BroadcastToChannel(channelID string, event OutboundEvent) {
	h.broadcastEvent(channelID, event, nil)
}

// BroadcastToChannelExcept delivers the event to every connection in the
// channel except one (the originator of a typing signal).
func (h *Hub) BroadcastToChannelExcept(channelID string, event OutboundEvent, except *Client) {
	h.broadcastEvent(channelID, event, except)
}

func (h *Hub) broadcastEvent(channelID string, event OutboundEvent, except *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[channelID] {
		if client == except {
			continue
		}
		select {
		case client.send <- event:
		default:
			// Медленный потребитель: отключаем, чтобы не блокировать канал
			log.Printf("[WebSocket] Send buffer full, dropping client %s", client.ID)
			h.removeFromRoomLocked(client)
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ChannelLock returns the per-channel lock used to serialize the
// append-then-broadcast section of Send and the register-then-history
// section of Join.
func (h *Hub) ChannelLock(channelID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.channelLocks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		h.channelLocks[channelID] = lock
	}
	return lock
}

// RoomSize reports how many connections are currently in the channel.
func (h *Hub) RoomSize(channelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[channelID])
}

// removeFromRoomLocked вызывается только под h.mu
func (h *Hub) removeFromRoomLocked(client *Client) {
	if client.channel == "" {
		return
	}

	if room, ok := h.rooms[client.channel]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.channel)
		}
	}
	client.channel = ""
}
