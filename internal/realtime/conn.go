// Package realtime maintains the per-session websocket connection and the
// room-scoped event subscriptions riding on it.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pairchat/internal/config"
	"pairchat/internal/models"
)

// ErrConnClosed is returned when subscribing on a connection that has already
// shut down.
var ErrConnClosed = errors.New("realtime: connection closed")

// Conn is one authenticated realtime connection. It is opened as soon as a
// session exists, before matching completes, so matched-room events are not
// missed. Room subscriptions are multiplexed over it by channel name.
type Conn struct {
	ws  *websocket.Conn
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool

	sendCh chan models.Frame
	done   chan struct{}
}

// Dialer opens realtime connections. Satisfied by Dial via DialerFunc.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (*Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url, token string) (*Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url, token string) (*Conn, error) {
	return f(ctx, url, token)
}

// Dial opens a websocket connection to the realtime endpoint, authenticating
// with the session bearer token, and starts its read and write pumps.
func Dial(ctx context.Context, url, token string, log zerolog.Logger) (*Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Conn{
		ws:     ws,
		log:    log.With().Str("component", "realtime").Logger(),
		subs:   make(map[string]*Subscription),
		sendCh: make(chan models.Frame, config.SendBufferSize),
		done:   make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// Subscribe opens the event stream for a room. Events whose sender matches
// selfGuestID are suppressed: the caller's own sends are already reflected
// through the optimistic path.
func (c *Conn) Subscribe(roomID string, selfGuestID int64) (*Subscription, error) {
	channel := models.RoomChannel(roomID)
	sub := &Subscription{
		conn:    c,
		channel: channel,
		selfID:  selfGuestID,
		events:  make(chan Event, config.SendBufferSize),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.subs[channel] = sub
	c.mu.Unlock()

	c.enqueue(models.Frame{Event: models.EventSubscribe, Channel: channel})
	return sub, nil
}

// Close tears down the connection and every live subscription. Safe to call
// more than once.
func (c *Conn) Close() error {
	subs, first := c.detachAll()
	for _, sub := range subs {
		sub.release()
	}
	if first {
		close(c.done)
	}
	return c.ws.Close()
}

func (c *Conn) detachAll() ([]*Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true
	detached := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		detached = append(detached, sub)
	}
	c.subs = make(map[string]*Subscription)
	return detached, true
}

// detach removes a single subscription route. Dispatch holds the same lock
// while delivering, so once detach returns no further event reaches the
// subscription.
func (c *Conn) detach(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[channel]; !ok {
		return false
	}
	delete(c.subs, channel)
	return true
}

func (c *Conn) enqueue(frame models.Frame) {
	select {
	case c.sendCh <- frame:
	case <-c.done:
	}
}

func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(config.MaxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read pump stopped")
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Debug().Err(err).Msg("dropping undecodable frame")
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame models.Frame) {
	var ev Event
	switch frame.Event {
	case models.EventMessageSent:
		msg, ok := models.DecodePushedMessage(frame.Data)
		if !ok {
			c.log.Debug().Str("channel", frame.Channel).Msg("dropping pushed message without id")
			return
		}
		ev = Event{Kind: models.EventMessageSent, Message: msg}
	case models.EventRoomClosed:
		ev = Event{Kind: models.EventRoomClosed}
	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[frame.Channel]
	if !ok {
		return
	}
	if ev.Kind == models.EventMessageSent && ev.Message.SenderGuestID == sub.selfID {
		return
	}
	select {
	case sub.events <- ev:
	default:
		c.log.Warn().Str("channel", frame.Channel).Msg("subscription buffer full, dropping event")
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.sendCh:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
