package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/internal/config"
	"pairchat/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Development server; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CreateSession registers an anonymous guest and issues its bearer token.
func (s *Server) CreateSession(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "display name is required"})
		return
	}

	guest := &GuestRecord{
		PublicID:    uuid.New().String(),
		DisplayName: name,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateGuest(guest); err != nil {
		s.log.Error().Err(err).Msg("creating guest")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create session"})
		return
	}

	token, err := s.generateToken(guest.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("minting token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{
		Token: token,
		Guest: models.Guest{
			ID:          guest.ID,
			PublicID:    guest.PublicID,
			DisplayName: guest.DisplayName,
		},
	})
}

// JoinQueue enters the guest into matchmaking. Responds with the room when a
// partner was already waiting, otherwise with waiting.
func (s *Server) JoinQueue(c *gin.Context) {
	guest := currentGuest(c)

	room, err := s.matcher.Join(guest.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("guest", guest.ID).Msg("queue join")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "matchmaking failed"})
		return
	}
	if room == nil {
		c.JSON(http.StatusOK, models.QueueResponse{Status: models.MatchStatusWaiting})
		return
	}

	c.JSON(http.StatusOK, models.QueueResponse{
		Status:      models.MatchStatusMatched,
		Room:        &models.RoomPayload{PublicID: room.PublicID},
		PartnerName: s.partnerName(room, guest.ID),
	})
}

// Heartbeat reports matchmaking progress for a waiting guest.
func (s *Server) Heartbeat(c *gin.Context) {
	guest := currentGuest(c)

	room, err := s.matcher.Status(guest.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("guest", guest.ID).Msg("heartbeat")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "matchmaking failed"})
		return
	}
	if room == nil {
		c.JSON(http.StatusOK, models.HeartbeatResponse{Status: models.MatchStatusWaiting})
		return
	}

	c.JSON(http.StatusOK, models.HeartbeatResponse{
		Status:       models.MatchStatusMatched,
		RoomPublicID: room.PublicID,
		PartnerName:  s.partnerName(room, guest.ID),
	})
}

// ListMessages returns the room history, oldest first.
func (s *Server) ListMessages(c *gin.Context) {
	guest := currentGuest(c)
	room, ok := s.roomForGuest(c, guest)
	if !ok {
		return
	}

	records, err := s.store.ListMessages(room.PublicID)
	if err != nil {
		s.log.Error().Err(err).Str("room", room.PublicID).Msg("listing messages")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load messages"})
		return
	}

	out := models.MessagesResponse{Data: make([]models.WireMessage, 0, len(records))}
	for i := range records {
		out.Data = append(out.Data, records[i].Wire())
	}
	c.JSON(http.StatusOK, out)
}

// SendMessage persists a message and pushes it to the room channel.
func (s *Server) SendMessage(c *gin.Context) {
	guest := currentGuest(c)
	room, ok := s.roomForGuest(c, guest)
	if !ok {
		return
	}
	if !room.IsActive {
		c.JSON(http.StatusConflict, gin.H{"message": "room is closed"})
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "message content is required"})
		return
	}
	if len(content) > config.MaxMessageLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "message content too long"})
		return
	}

	record := &MessageRecord{
		RoomPublicID:  room.PublicID,
		SenderGuestID: guest.ID,
		Type:          models.MessageTypeText,
		Content:       content,
		CreatedAt:     time.Now(),
	}
	if err := s.store.SaveMessage(record); err != nil {
		s.log.Error().Err(err).Str("room", room.PublicID).Msg("saving message")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to send message"})
		return
	}

	wire := record.Wire()
	s.publishRoomEvent(room.PublicID, models.EventMessageSent, gin.H{"message": wire})
	c.JSON(http.StatusCreated, models.SendMessageResponse{Data: wire})
}

// LeaveRoom closes the room and notifies the partner.
func (s *Server) LeaveRoom(c *gin.Context) {
	guest := currentGuest(c)
	room, ok := s.roomForGuest(c, guest)
	if !ok {
		return
	}

	if room.IsActive {
		if err := s.store.CloseRoom(room.PublicID, "left"); err != nil {
			s.log.Error().Err(err).Str("room", room.PublicID).Msg("closing room")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to leave room"})
			return
		}
		s.publishRoomEvent(room.PublicID, models.EventRoomClosed, nil)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ServeRealtime upgrades the connection and hands it to the hub.
func (s *Server) ServeRealtime(c *gin.Context) {
	guest := currentGuest(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewWSClient(s.hub, conn, guest.ID, s.log)
	s.hub.RegisterCh <- client
	client.Run()
}

// roomForGuest loads the room from the path and verifies membership. Writes
// the error response itself when it returns ok=false.
func (s *Server) roomForGuest(c *gin.Context, guest *GuestRecord) (*RoomRecord, bool) {
	roomID := c.Param("roomID")
	room, err := s.store.GetRoom(roomID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "room not found"})
		return nil, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("room", roomID).Msg("loading room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load room"})
		return nil, false
	}
	if !room.Has(guest.ID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "not a participant of this room"})
		return nil, false
	}
	return room, true
}

func (s *Server) partnerName(room *RoomRecord, guestID int64) string {
	partner, err := s.store.GetGuest(room.Other(guestID))
	if err != nil {
		return "Anonymous"
	}
	return partner.DisplayName
}

func encodeJSON(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
