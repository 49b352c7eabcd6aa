package session

import (
	"context"

	"github.com/rs/zerolog"

	"pairchat/internal/models"
	"pairchat/internal/realtime"
)

// Backend is the REST contract the coordinator consumes. *api.Client satisfies
// it; tests substitute a mock.
type Backend interface {
	CreateSession(ctx context.Context, displayName string) (models.SessionResponse, error)
	JoinQueue(ctx context.Context, token string) (models.QueueResponse, error)
	Heartbeat(ctx context.Context, token string) (models.HeartbeatResponse, error)
	ListMessages(ctx context.Context, token, roomID string) ([]models.WireMessage, error)
	SendMessage(ctx context.Context, token, roomID, content string) (models.WireMessage, error)
	LeaveRoom(ctx context.Context, token, roomID string) error
}

// Event aliases the realtime event type consumed by the controller.
type Event = realtime.Event

// RoomSubscription is a room-scoped realtime event stream.
type RoomSubscription interface {
	Events() <-chan realtime.Event
	Close()
}

// RealtimeConn is a per-session realtime connection.
type RealtimeConn interface {
	Subscribe(roomID string, selfGuestID int64) (RoomSubscription, error)
	Close() error
}

// RealtimeDialer opens realtime connections for a session token.
type RealtimeDialer interface {
	Dial(ctx context.Context, token string) (RealtimeConn, error)
}

// wsDialer adapts the realtime package to the controller's interfaces.
type wsDialer struct {
	url string
	log zerolog.Logger
}

// NewRealtimeDialer returns a dialer connecting to the given websocket URL.
func NewRealtimeDialer(url string, log zerolog.Logger) RealtimeDialer {
	return &wsDialer{url: url, log: log}
}

func (d *wsDialer) Dial(ctx context.Context, token string) (RealtimeConn, error) {
	conn, err := realtime.Dial(ctx, d.url, token, d.log)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *realtime.Conn
}

func (c *wsConn) Subscribe(roomID string, selfGuestID int64) (RoomSubscription, error) {
	return c.conn.Subscribe(roomID, selfGuestID)
}

func (c *wsConn) Close() error { return c.conn.Close() }
