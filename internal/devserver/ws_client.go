package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pairchat/internal/config"
	"pairchat/internal/models"
)

// WSClient is one realtime socket. The read pump handles the client's
// subscribe/unsubscribe frames; the write pump delivers event frames routed by
// the hub.
type WSClient struct {
	GuestID int64

	hub  *Hub
	conn *websocket.Conn
	send chan models.Frame
	log  zerolog.Logger

	// channels the socket is subscribed to; hub-loop owned.
	channels map[string]struct{}

	closeOnce sync.Once
}

// NewWSClient wraps an upgraded connection for the hub.
func NewWSClient(hub *Hub, conn *websocket.Conn, guestID int64, log zerolog.Logger) *WSClient {
	return &WSClient{
		GuestID:  guestID,
		hub:      hub,
		conn:     conn,
		send:     make(chan models.Frame, config.SendBufferSize),
		channels: make(map[string]struct{}),
		log:      log.With().Str("component", "ws").Int64("guest", guestID).Logger(),
	}
}

// Run starts the read and write pumps.
func (c *WSClient) Run() {
	go c.writePump()
	go c.readPump()
}

// close stops the write pump, which closes the underlying connection.
func (c *WSClient) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.UnregisterCh <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("read error")
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Debug().Err(err).Msg("dropping undecodable frame")
			continue
		}

		switch frame.Event {
		case models.EventSubscribe:
			c.hub.subscribeCh <- subRequest{client: c, channel: frame.Channel, subscribe: true}
		case models.EventUnsubscribe:
			c.hub.subscribeCh <- subRequest{client: c, channel: frame.Channel, subscribe: false}
		default:
			// Clients only send control frames.
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeRelayedFrame parses a frame relayed through the event bus.
func decodeRelayedFrame(payload []byte) (models.Frame, bool) {
	var frame models.Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return models.Frame{}, false
	}
	return frame, frame.Event != ""
}
