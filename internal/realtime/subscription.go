package realtime

import (
	"sync"

	"pairchat/internal/models"
)

// Event is one realtime notification delivered on a room subscription.
type Event struct {
	// Kind is models.EventMessageSent or models.EventRoomClosed.
	Kind string
	// Message is set for message.sent events.
	Message models.WireMessage
}

// Subscription is the event stream for a single room. Events stop the moment
// Close returns; the channel returned by Events is closed on teardown.
type Subscription struct {
	conn    *Conn
	channel string
	selfID  int64
	events  chan Event
	once    sync.Once
}

// Events returns the stream of room events, oldest first.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from the connection before releasing it, so
// no event is delivered after Close returns, then tells the server to stop
// sending for this channel.
func (s *Subscription) Close() {
	if s.conn.detach(s.channel) {
		s.conn.enqueue(models.Frame{Event: models.EventUnsubscribe, Channel: s.channel})
	}
	s.release()
}

func (s *Subscription) release() {
	s.once.Do(func() { close(s.events) })
}
