// Package peer maintains the client's connection to the signaling rendezvous
// service used to establish direct peer media sessions. It owns no chat state:
// only the connection lifecycle, the assigned identity, and the retry logic
// around identity collisions.
package peer

import (
	"context"
)

// Phase is the connection phase of the lifecycle manager.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseReconnecting
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind categorizes failures reported by the signaling service.
type ErrorKind string

const (
	ErrorPeerUnavailable ErrorKind = "peer-unavailable"
	ErrorNetwork         ErrorKind = "network"
	ErrorServer          ErrorKind = "server-error"
	ErrorSocket          ErrorKind = "socket-error"
	ErrorSocketClosed    ErrorKind = "socket-closed"
	ErrorIdentityTaken   ErrorKind = "identity-taken"
	ErrorOther           ErrorKind = "other"
)

// EventType перечисляет события жизненного цикла от сервиса сигналинга.
type EventType string

const (
	EventOpen         EventType = "open"         // identity подтверждена
	EventError        EventType = "error"        // категоризированная ошибка
	EventDisconnected EventType = "disconnected" // транспорт упал, ожидается reconnect
	EventClose        EventType = "close"        // терминальное закрытие
)

// Event is one discrete lifecycle event from a signaling connection.
type Event struct {
	Type    EventType
	Kind    ErrorKind
	Message string
}

// Conn is one live connection to the signaling rendezvous service.
type Conn interface {
	// Events yields lifecycle events in order. The channel is closed after
	// the terminal close event.
	Events() <-chan Event
	// Reconnect asks the connection to re-establish its transport after a
	// disconnected event.
	Reconnect() error
	Close() error
}

// Dialer opens a signaling connection registered under a candidate identity.
type Dialer interface {
	Dial(ctx context.Context, identity string) (Conn, error)
}
