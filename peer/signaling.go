package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 5 * time.Second
	signalWriteWait   = 10 * time.Second
)

// Кадры протокола rendezvous-сервиса
const (
	frameOpen      = "OPEN"
	frameError     = "ERROR"
	frameIDTaken   = "ID-TAKEN"
	frameExpire    = "EXPIRE"
	frameLeave     = "LEAVE"
	frameHeartbeat = "HEARTBEAT"
)

// serverFrame is one JSON frame received from the rendezvous service.
type serverFrame struct {
	Type    string `json:"type"`
	Payload struct {
		Msg string `json:"msg"`
	} `json:"payload"`
}

// WebsocketDialer opens signaling connections against a rendezvous endpoint.
// The endpoint is the bare ws(s) URL; identity, key and a per-connection
// token are appended as query parameters.
type WebsocketDialer struct {
	Endpoint string
	Key      string
}

func (d *WebsocketDialer) Dial(ctx context.Context, identity string) (Conn, error) {
	u, err := url.Parse(d.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid signaling endpoint: %w", err)
	}

	query := u.Query()
	query.Set("key", d.Key)
	query.Set("id", identity)
	query.Set("token", fmt.Sprintf("%d", rand.Int63()))
	u.RawQuery = query.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial signaling service: %w", err)
	}

	conn := &signalingConn{
		dialURL:   u.String(),
		ws:        ws,
		events:    make(chan Event, 16),
		reconnect: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}

	go conn.run()
	go conn.heartbeatLoop()

	return conn, nil
}

// signalingConn is one live websocket connection to the rendezvous service.
type signalingConn struct {
	dialURL string

	mu sync.Mutex // защищает ws при реконнекте
	ws *websocket.Conn

	events    chan Event
	reconnect chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *signalingConn) Events() <-chan Event {
	return c.events
}

// Reconnect signals the run loop to re-establish the transport. Returns
// immediately; the outcome arrives as an open or error event.
func (c *signalingConn) Reconnect() error {
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
	return nil
}

func (c *signalingConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		c.ws.Close()
		c.mu.Unlock()
	})
	return nil
}

// run owns the events channel: reads frames until the transport drops, then
// waits for either a reconnect command or close.
func (c *signalingConn) run() {
	defer close(c.events)

	for {
		readErr := c.readFrames()

		select {
		case <-c.closed:
			c.events <- Event{Type: EventClose}
			return
		default:
		}

		c.events <- Event{Type: EventDisconnected, Message: readErr.Error()}

		select {
		case <-c.closed:
			c.events <- Event{Type: EventClose}
			return
		case <-c.reconnect:
			ws, _, err := websocket.DefaultDialer.Dial(c.dialURL, nil)
			if err != nil {
				c.events <- Event{Type: EventError, Kind: ErrorSocket, Message: err.Error()}
				// Остаемся в ожидании следующей команды
				continue
			}
			c.mu.Lock()
			c.ws = ws
			c.mu.Unlock()
		}
	}
}

// readFrames reads and translates frames until the transport errors out.
func (c *signalingConn) readFrames() error {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()

		_, raw, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var frame serverFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("[Peer] Malformed frame from signaling service: %v", err)
			continue
		}

		switch frame.Type {
		case frameOpen:
			c.events <- Event{Type: EventOpen}

		case frameIDTaken:
			c.events <- Event{Type: EventError, Kind: ErrorIdentityTaken, Message: frame.Payload.Msg}

		case frameExpire:
			c.events <- Event{Type: EventError, Kind: ErrorPeerUnavailable, Message: frame.Payload.Msg}

		case frameError:
			c.events <- Event{Type: EventError, Kind: classifyServerError(frame.Payload.Msg), Message: frame.Payload.Msg}

		case frameLeave, frameHeartbeat:
			// Не относится к жизненному циклу соединения

		default:
			log.Printf("[Peer] Unknown frame type from signaling service: %s", frame.Type)
		}
	}
}

func (c *signalingConn) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			ws := c.ws
			ws.SetWriteDeadline(time.Now().Add(signalWriteWait))
			err := ws.WriteJSON(map[string]string{"type": frameHeartbeat})
			c.mu.Unlock()
			if err != nil {
				log.Printf("[Peer] Heartbeat failed: %v", err)
			}
		}
	}
}

func classifyServerError(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "taken"):
		return ErrorIdentityTaken
	case strings.Contains(lower, "could not get a peer") || strings.Contains(lower, "unavailable"):
		return ErrorPeerUnavailable
	default:
		return ErrorServer
	}
}
