package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"pairchat/internal/models"
	"pairchat/internal/realtime"
	"pairchat/internal/session"
)

// MockBackend implements session.Backend with testify mocks. Context arguments
// are dropped from the expectations; tests match on the meaningful values.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateSession(_ context.Context, displayName string) (models.SessionResponse, error) {
	args := m.Called(displayName)
	return args.Get(0).(models.SessionResponse), args.Error(1)
}

func (m *MockBackend) JoinQueue(_ context.Context, token string) (models.QueueResponse, error) {
	args := m.Called(token)
	return args.Get(0).(models.QueueResponse), args.Error(1)
}

func (m *MockBackend) Heartbeat(_ context.Context, token string) (models.HeartbeatResponse, error) {
	args := m.Called(token)
	return args.Get(0).(models.HeartbeatResponse), args.Error(1)
}

func (m *MockBackend) ListMessages(_ context.Context, token, roomID string) ([]models.WireMessage, error) {
	args := m.Called(token, roomID)
	return args.Get(0).([]models.WireMessage), args.Error(1)
}

func (m *MockBackend) SendMessage(_ context.Context, token, roomID, content string) (models.WireMessage, error) {
	args := m.Called(token, roomID, content)
	return args.Get(0).(models.WireMessage), args.Error(1)
}

func (m *MockBackend) LeaveRoom(_ context.Context, token, roomID string) error {
	args := m.Called(token, roomID)
	return args.Error(0)
}

// fakeSub is an in-memory room subscription tests push events into.
type fakeSub struct {
	roomID string
	events chan realtime.Event
	once   sync.Once
	closed chan struct{}
}

func (s *fakeSub) Events() <-chan realtime.Event { return s.events }

func (s *fakeSub) Close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.events)
	})
}

func (s *fakeSub) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeConn is an in-memory realtime connection. It deliberately does not
// suppress own-sender events, so tests exercise the controller's own guard.
type fakeConn struct {
	mu             sync.Mutex
	subs           map[string]*fakeSub
	subscribeCount int
	closed         bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{subs: make(map[string]*fakeSub)}
}

func (c *fakeConn) Subscribe(roomID string, _ int64) (session.RoomSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, realtime.ErrConnClosed
	}
	sub := &fakeSub{
		roomID: roomID,
		events: make(chan realtime.Event, 16),
		closed: make(chan struct{}),
	}
	c.subs[roomID] = sub
	c.subscribeCount++
	return sub, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, sub := range c.subs {
		sub.Close()
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribeCount
}

// push delivers an event on the room's subscription, if one exists.
func (c *fakeConn) push(roomID string, ev realtime.Event) bool {
	c.mu.Lock()
	sub, ok := c.subs[roomID]
	c.mu.Unlock()
	if !ok || sub.isClosed() {
		return false
	}
	sub.events <- ev
	return true
}

// pushMessage delivers a message.sent event for the room.
func (c *fakeConn) pushMessage(roomID string, msg models.WireMessage) bool {
	return c.push(roomID, realtime.Event{Kind: models.EventMessageSent, Message: msg})
}

// fakeDialer hands out fakeConns and records the tokens it was dialled with.
type fakeDialer struct {
	mu     sync.Mutex
	err    error
	conns  []*fakeConn
	tokens []string
}

func (d *fakeDialer) Dial(_ context.Context, token string) (session.RealtimeConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	d.tokens = append(d.tokens, token)
	return conn, nil
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// newTestController builds and starts a controller with a fast poll interval.
func newTestController(t *testing.T, backend session.Backend, dialer session.RealtimeDialer) *session.Controller {
	t.Helper()
	ctrl := session.New(backend, dialer, zerolog.Nop())
	ctrl.PollInterval = 20 * time.Millisecond
	go ctrl.Run()
	t.Cleanup(ctrl.Close)
	return ctrl
}

// waitForView polls the controller snapshot until cond holds or the deadline
// expires.
func waitForView(t *testing.T, ctrl *session.Controller, msg string, cond func(session.View) bool) session.View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := ctrl.View()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (phase=%s, messages=%d)", msg, v.Phase, len(v.Messages))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForPhase waits until the controller reaches the given phase.
func waitForPhase(t *testing.T, ctrl *session.Controller, phase models.Phase) session.View {
	t.Helper()
	return waitForView(t, ctrl, "phase "+phase.String(), func(v session.View) bool {
		return v.Phase == phase
	})
}

// sessionResponse is the standard fixture: token T1, guest 7.
func sessionResponse() models.SessionResponse {
	return models.SessionResponse{
		Token: "T1",
		Guest: models.Guest{ID: 7, PublicID: "g-7", DisplayName: "Alex"},
	}
}

func waitingQueue() models.QueueResponse {
	return models.QueueResponse{Status: models.MatchStatusWaiting}
}

func matchedQueue(roomID, partner string) models.QueueResponse {
	return models.QueueResponse{
		Status:      models.MatchStatusMatched,
		Room:        &models.RoomPayload{PublicID: roomID},
		PartnerName: partner,
	}
}

func waitingHeartbeat() models.HeartbeatResponse {
	return models.HeartbeatResponse{Status: models.MatchStatusWaiting}
}

func matchedHeartbeat(roomID, partner string) models.HeartbeatResponse {
	return models.HeartbeatResponse{
		Status:       models.MatchStatusMatched,
		RoomPublicID: roomID,
		PartnerName:  partner,
	}
}

func wireMessage(id, sender int64, body string) models.WireMessage {
	return models.WireMessage{
		ID:            id,
		RoomPublicID:  "r-1",
		SenderGuestID: sender,
		Type:          models.MessageTypeText,
		Content:       body,
		CreatedAt:     time.Now(),
	}
}
