package peer

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultRetryDelay is the fixed delay before a collision retry or a reset
// reconnect.
const DefaultRetryDelay = time.Second

// NotAuthenticatedError is reported via state when Connect is called without
// an authenticated local user.
const NotAuthenticatedError = "NOT_AUTHENTICATED"

// State is a snapshot of the manager for callers that render it.
type State struct {
	Phase     Phase
	Identity  string
	LastError string
}

// Manager владеет одним подключением к сервису сигналинга на процесс.
// Every external event is handled under one mutex, so handlers never
// re-enter each other and a delayed collision retry cannot race a
// user-initiated Disconnect.
type Manager struct {
	dialer Dialer

	// RetryDelay is fixed at one second in production; tests shorten it.
	RetryDelay time.Duration

	mu        sync.Mutex
	phase     Phase
	userID    string
	nonce     string
	candidate string
	identity  string
	lastErr   string
	conn      Conn
	retry     *time.Timer
	// gen invalidates in-flight dials and stale connection events after a
	// teardown or a collision
	gen        uint64
	collisions int
}

func NewManager(dialer Dialer) *Manager {
	return &Manager{
		dialer:     dialer,
		RetryDelay: DefaultRetryDelay,
		phase:      PhaseDisconnected,
	}
}

// SetUser records the authenticated local user identity. An empty id means
// signed out.
func (m *Manager) SetUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
}

// Connect opens the signaling connection. No-op when already connected or
// connecting. Missing authentication is reported via state, not returned.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectLocked()
}

// Disconnect tears the connection down unconditionally, cancels any pending
// retry and clears the recorded identity.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.phase = PhaseDisconnected
}

// Reset disconnects, discards the session nonce entirely (the next connect
// gets a brand-new identity) and schedules a reconnect after the fixed delay.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.phase = PhaseDisconnected
	m.nonce = ""

	// Сравнение по самому таймеру: callback устаревшего таймера (например,
	// коллизионного ретрая, уже ждущего мьютекс) не должен гасить этот.
	var timer *time.Timer
	timer = time.AfterFunc(m.RetryDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.retry != timer {
			return // отменено или заменено другим таймером
		}
		m.retry = nil
		m.connectLocked()
	})
	m.retry = timer
}

// Snapshot returns the current phase, confirmed identity and last error.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Phase: m.phase, Identity: m.identity, LastError: m.lastErr}
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) connectLocked() {
	if m.phase == PhaseConnected || m.phase == PhaseConnecting {
		return
	}

	if m.userID == "" {
		m.phase = PhaseError
		m.lastErr = NotAuthenticatedError
		return
	}

	// Nonce кэшируется на сессию: реконнекты переиспользуют identity
	if m.nonce == "" {
		m.nonce = newSessionNonce()
	}

	if m.conn != nil {
		go m.conn.Close()
		m.conn = nil
	}

	m.phase = PhaseConnecting
	m.lastErr = ""
	m.identity = ""
	m.startAttemptLocked()
}

func (m *Manager) startAttemptLocked() {
	m.candidate = candidateIdentity(m.userID, m.nonce)
	m.gen++
	go m.dial(m.gen, m.candidate)
}

func (m *Manager) dial(gen uint64, candidate string) {
	conn, err := m.dialer.Dial(context.Background(), candidate)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		// Устаревшая попытка: соединение уже никому не нужно
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.phase = PhaseError
		m.lastErr = "network error: " + err.Error()
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.mu.Unlock()

	go m.consume(gen, conn)
}

// consume drains a connection's events until it closes. Stale events are
// dropped by the generation check inside handle.
func (m *Manager) consume(gen uint64, conn Conn) {
	for event := range conn.Events() {
		m.handle(gen, event)
	}
}

func (m *Manager) handle(gen uint64, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	switch event.Type {
	case EventOpen:
		m.phase = PhaseConnected
		m.identity = m.candidate
		m.lastErr = ""
		m.collisions = 0
		log.Printf("[Peer] Connected with identity %s", m.identity)

	case EventError:
		if event.Kind == ErrorIdentityTaken {
			m.handleCollisionLocked()
			return
		}
		m.phase = PhaseError
		m.lastErr = describeError(event)
		log.Printf("[Peer] Signaling error (%s): %s", event.Kind, event.Message)

	case EventDisconnected:
		m.phase = PhaseReconnecting
		log.Printf("[Peer] Transport dropped, reconnecting")
		conn := m.conn
		go func() {
			if err := conn.Reconnect(); err != nil {
				m.handle(gen, Event{Type: EventError, Kind: ErrorSocket, Message: err.Error()})
			}
		}()

	case EventClose:
		m.phase = PhaseDisconnected
		m.identity = ""
		m.conn = nil
		log.Printf("[Peer] Connection closed")
	}
}

// handleCollisionLocked regenerates the session nonce and retries after the
// fixed delay. Коллизия не показывается пользователю: фаза остается
// Connecting. Retries are unbounded; each attempt draws a fresh random
// suffix, so the collision counter in the log is the only way this loop
// is expected to ever be seen.
func (m *Manager) handleCollisionLocked() {
	m.collisions++
	log.Printf("[Peer] Identity %s already taken (collision #%d), regenerating", m.candidate, m.collisions)

	if m.conn != nil {
		go m.conn.Close()
		m.conn = nil
	}
	m.gen++
	m.nonce = newSessionNonce()

	if m.retry != nil {
		m.retry.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(m.RetryDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.retry != timer {
			return // отменено Disconnect-ом или Reset-ом
		}
		m.retry = nil
		if m.phase != PhaseConnecting {
			return
		}
		m.startAttemptLocked()
	})
	m.retry = timer
}

func (m *Manager) teardownLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.gen++
	if m.conn != nil {
		go m.conn.Close()
		m.conn = nil
	}
	m.identity = ""
	m.candidate = ""
	m.lastErr = ""
	m.collisions = 0
}

func describeError(event Event) string {
	switch event.Kind {
	case ErrorPeerUnavailable:
		return "peer unavailable: " + event.Message
	case ErrorNetwork:
		return "network error: " + event.Message
	case ErrorServer:
		return "signaling server error: " + event.Message
	case ErrorSocket:
		return "socket error: " + event.Message
	case ErrorSocketClosed:
		return "socket closed: " + event.Message
	default:
		return "signaling error: " + event.Message
	}
}
