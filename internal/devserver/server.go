// Package devserver is a development backend implementing the matchmaking
// REST contract and the realtime channel the client coordinator consumes.
package devserver

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pairchat/internal/models"
)

// Server bundles the handlers with their dependencies.
type Server struct {
	store     Storage
	hub       *Hub
	matcher   *Matchmaker
	jwtSecret []byte
	log       zerolog.Logger
}

// New creates a server. The caller starts hub.Run and hub.Relay.
func New(store Storage, hub *Hub, jwtSecret string, log zerolog.Logger) *Server {
	return &Server{
		store:     store,
		hub:       hub,
		matcher:   NewMatchmaker(store, log),
		jwtSecret: []byte(jwtSecret),
		log:       log.With().Str("component", "devserver").Logger(),
	}
}

// NewHubFor builds a hub whose subscriptions are authorized against room
// membership in the given storage.
func NewHubFor(store Storage, log zerolog.Logger) *Hub {
	return NewHub(func(guestID int64, channel string) bool {
		roomID, ok := roomIDFromChannel(channel)
		if !ok {
			return false
		}
		room, err := store.GetRoom(roomID)
		if err != nil {
			return false
		}
		return room.Has(guestID)
	}, log)
}

// RegisterRoutes mounts the API under /api.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/session", s.CreateSession)

	authed := api.Group("", s.authGuest)
	authed.POST("/queue/join", s.JoinQueue)
	authed.POST("/heartbeat", s.Heartbeat)
	authed.GET("/rooms/:roomID/messages", s.ListMessages)
	authed.POST("/rooms/:roomID/messages", s.SendMessage)
	authed.POST("/rooms/:roomID/leave", s.LeaveRoom)
	authed.GET("/realtime", s.ServeRealtime)
}

func roomIDFromChannel(channel string) (string, bool) {
	const prefix = "room."
	if len(channel) <= len(prefix) || channel[:len(prefix)] != prefix {
		return "", false
	}
	return channel[len(prefix):], true
}

// publishRoomEvent pushes a frame onto the room's channel through the relay.
func (s *Server) publishRoomEvent(roomID, event string, data any) {
	frame := models.Frame{Event: event, Channel: models.RoomChannel(roomID)}
	if data != nil {
		encoded, err := encodeJSON(data)
		if err != nil {
			s.log.Error().Err(err).Str("room", roomID).Msg("encoding room event")
			return
		}
		frame.Data = encoded
	}
	if err := s.store.PublishFrame(frame.Channel, frame); err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Str("event", event).
			Msg("publishing room event failed")
	}
}
