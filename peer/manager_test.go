package peer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRetryDelay = 5 * time.Millisecond

// fakeSignalingConn — управляемое тестом соединение с сервисом сигналинга
type fakeSignalingConn struct {
	events     chan Event
	closeOnce  sync.Once
	mu         sync.Mutex
	reconnects int
}

func newFakeSignalingConn() *fakeSignalingConn {
	return &fakeSignalingConn{events: make(chan Event, 16)}
}

func (c *fakeSignalingConn) Events() <-chan Event { return c.events }

func (c *fakeSignalingConn) Reconnect() error {
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
	// Реконнект успешен: сервис снова подтверждает identity
	c.emit(Event{Type: EventOpen})
	return nil
}

func (c *fakeSignalingConn) Close() error {
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

func (c *fakeSignalingConn) emit(event Event) {
	c.events <- event
}

func (c *fakeSignalingConn) reconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

// fakeDialer записывает identity каждой попытки. Первые collisions попыток
// получают ID-TAKEN, остальные — OPEN.
type fakeDialer struct {
	mu         sync.Mutex
	identities []string
	conns      []*fakeSignalingConn
	collisions int
}

func (d *fakeDialer) Dial(ctx context.Context, identity string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn := newFakeSignalingConn()
	d.identities = append(d.identities, identity)
	d.conns = append(d.conns, conn)

	if len(d.identities) <= d.collisions {
		conn.events <- Event{Type: EventError, Kind: ErrorIdentityTaken, Message: "ID is taken"}
	} else {
		conn.events <- Event{Type: EventOpen}
	}
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.identities)
}

func (d *fakeDialer) identity(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identities[i]
}

func (d *fakeDialer) lastConn() *fakeSignalingConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

func newTestManager(dialer Dialer) *Manager {
	manager := NewManager(dialer)
	manager.RetryDelay = testRetryDelay
	return manager
}

func waitForPhase(t *testing.T, manager *Manager, phase Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return manager.Phase() == phase
	}, time.Second, time.Millisecond, "expected phase %s, got %s", phase, manager.Phase())
}

func TestConnectRequiresAuthenticatedUser(t *testing.T) {
	manager := newTestManager(&fakeDialer{})

	manager.Connect()

	state := manager.Snapshot()
	assert.Equal(t, PhaseError, state.Phase)
	assert.Equal(t, NotAuthenticatedError, state.LastError)
}

func TestConnectReachesConnected(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	state := manager.Snapshot()
	assert.True(t, strings.HasPrefix(state.Identity, "u1_"))
	assert.Empty(t, state.LastError)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestConnectIsNoopWhenAlreadyConnected(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	manager.Connect()
	time.Sleep(3 * testRetryDelay)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestIdentityReusedWithinSession(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)
	first := manager.Identity()

	manager.Disconnect()
	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	// Nonce кэшируется на сессию: повторный коннект дает ту же identity
	assert.Equal(t, first, manager.Identity())
}

func TestCollisionRegeneratesIdentityAndConverges(t *testing.T) {
	dialer := &fakeDialer{collisions: 3}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	require.Equal(t, 4, dialer.dialCount())

	// Каждая попытка после коллизии идет с новой identity
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		identity := dialer.identity(i)
		assert.True(t, strings.HasPrefix(identity, "u1_"))
		seen[identity] = true
	}
	assert.Len(t, seen, 4)
}

func TestCollisionIsNotSurfacedAsError(t *testing.T) {
	dialer := &fakeDialer{collisions: 5}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()

	// Пока идут коллизии, фаза остается Connecting, не Error
	require.Eventually(t, func() bool {
		return dialer.dialCount() >= 3
	}, time.Second, time.Millisecond)
	assert.NotEqual(t, PhaseError, manager.Phase())

	waitForPhase(t, manager, PhaseConnected)
	assert.Empty(t, manager.LastError())
}

func TestDisconnectCancelsPendingCollisionRetry(t *testing.T) {
	dialer := &fakeDialer{collisions: 1000}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	require.Eventually(t, func() bool {
		return dialer.dialCount() >= 1
	}, time.Second, time.Millisecond)

	manager.Disconnect()
	attempts := dialer.dialCount()

	// Отложенный ретрай не должен воскресить соединение
	time.Sleep(5 * testRetryDelay)
	assert.Equal(t, attempts, dialer.dialCount())
	assert.Equal(t, PhaseDisconnected, manager.Phase())
	assert.Empty(t, manager.Identity())
}

func TestResetForcesBrandNewIdentity(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)
	first := manager.Identity()

	manager.Reset()
	waitForPhase(t, manager, PhaseConnected)

	assert.NotEqual(t, first, manager.Identity())
	assert.True(t, strings.HasPrefix(manager.Identity(), "u1_"))
}

func TestResetDuringCollisionRetryStillReconnects(t *testing.T) {
	dialer := &fakeDialer{collisions: 1}
	manager := newTestManager(dialer)
	// Задержка с запасом: Reset должен успеть до коллизионного ретрая
	manager.RetryDelay = 50 * time.Millisecond
	manager.SetUser("u1")

	manager.Connect()
	require.Eventually(t, func() bool {
		return dialer.dialCount() >= 1
	}, time.Second, time.Millisecond)

	// Reset замещает отложенный коллизионный ретрай своим таймером.
	// Callback старого таймера не должен погасить таймер Reset-а.
	manager.Reset()
	waitForPhase(t, manager, PhaseConnected)

	assert.Equal(t, 2, dialer.dialCount())
	assert.True(t, strings.HasPrefix(manager.Identity(), "u1_"))
}

func TestDisconnectCancelsResetReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	manager.Reset()
	manager.Disconnect()

	time.Sleep(5 * testRetryDelay)
	assert.Equal(t, 1, dialer.dialCount())
	assert.Equal(t, PhaseDisconnected, manager.Phase())
}

func TestTransportDropTriggersReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	conn := dialer.lastConn()
	conn.emit(Event{Type: EventDisconnected, Message: "transport dropped"})

	require.Eventually(t, func() bool {
		return conn.reconnectCount() == 1
	}, time.Second, time.Millisecond)

	waitForPhase(t, manager, PhaseConnected)
	// Реконнект идет через примитив сервиса, без нового dial
	assert.Equal(t, 1, dialer.dialCount())
}

func TestServiceCloseIsTerminal(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	dialer.lastConn().emit(Event{Type: EventClose})

	waitForPhase(t, manager, PhaseDisconnected)
	assert.Empty(t, manager.Identity())
}

func TestServerErrorSurfacedAsState(t *testing.T) {
	dialer := &fakeDialer{}
	manager := newTestManager(dialer)
	manager.SetUser("u1")

	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)

	dialer.lastConn().emit(Event{Type: EventError, Kind: ErrorServer, Message: "boom"})

	waitForPhase(t, manager, PhaseError)
	assert.Contains(t, manager.LastError(), "signaling server error")

	// Явный Connect выводит из Error
	manager.Connect()
	waitForPhase(t, manager, PhaseConnected)
}

func TestSessionNonceFormat(t *testing.T) {
	first := newSessionNonce()
	second := newSessionNonce()

	assert.NotEmpty(t, first)
	assert.Equal(t, "u1_"+first, candidateIdentity("u1", first))
	// Два вызова практически никогда не совпадают
	if first == second {
		t.Logf("nonce collision in test run: %s", first)
	}
}
