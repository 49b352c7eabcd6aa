package devserver

import (
	"github.com/rs/zerolog"

	"pairchat/internal/models"
)

// SubscribeAuthorizer decides whether a guest may subscribe to a channel.
type SubscribeAuthorizer func(guestID int64, channel string) bool

type subRequest struct {
	client    *WSClient
	channel   string
	subscribe bool
}

// Hub owns every live realtime socket and fans room event frames out to the
// sockets subscribed to their channel. All bookkeeping happens on the Run
// goroutine; other goroutines talk to it through the channels.
type Hub struct {
	RegisterCh   chan *WSClient
	UnregisterCh chan *WSClient
	BroadcastCh  chan models.Frame

	subscribeCh chan subRequest
	clients     map[*WSClient]struct{}
	authorize   SubscribeAuthorizer
	log         zerolog.Logger
}

// NewHub creates a hub. authorize may be nil, allowing every subscription.
func NewHub(authorize SubscribeAuthorizer, log zerolog.Logger) *Hub {
	return &Hub{
		RegisterCh:   make(chan *WSClient),
		UnregisterCh: make(chan *WSClient),
		BroadcastCh:  make(chan models.Frame, 64),
		subscribeCh:  make(chan subRequest, 64),
		clients:      make(map[*WSClient]struct{}),
		authorize:    authorize,
		log:          log.With().Str("component", "hub").Logger(),
	}
}

// Run is the hub's main loop. Start it with go.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.RegisterCh:
			h.clients[c] = struct{}{}
			h.log.Debug().Int64("guest", c.GuestID).Msg("client registered")

		case c := <-h.UnregisterCh:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				h.log.Debug().Int64("guest", c.GuestID).Msg("client unregistered")
			}

		case req := <-h.subscribeCh:
			h.handleSubscribe(req)

		case frame := <-h.BroadcastCh:
			h.broadcast(frame)
		}
	}
}

func (h *Hub) handleSubscribe(req subRequest) {
	if _, ok := h.clients[req.client]; !ok {
		return
	}
	if !req.subscribe {
		delete(req.client.channels, req.channel)
		return
	}
	if h.authorize != nil && !h.authorize(req.client.GuestID, req.channel) {
		h.log.Warn().Int64("guest", req.client.GuestID).Str("channel", req.channel).
			Msg("subscription refused")
		return
	}
	req.client.channels[req.channel] = struct{}{}
}

func (h *Hub) broadcast(frame models.Frame) {
	for c := range h.clients {
		if _, ok := c.channels[frame.Channel]; !ok {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop the socket rather than block the hub.
			delete(h.clients, c)
			c.close()
		}
	}
}

// Relay pumps frames from the storage subscription into the hub. Start it
// with go; it returns when the subscription channel closes.
func (h *Hub) Relay(store Storage) {
	pubsub := store.SubscribeFrames()
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		frame, ok := decodeRelayedFrame([]byte(msg.Payload))
		if !ok {
			h.log.Warn().Str("channel", msg.Channel).Msg("dropping undecodable relay payload")
			continue
		}
		h.BroadcastCh <- frame
	}
}
