package models

import "time"

// Message type values carried on the wire.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// ChatMessage is one entry in the client's message view. ID is the dedup key,
// assigned by the backend; Mine is derived locally by comparing SenderID to the
// session's guest id and is never sent over the wire.
type ChatMessage struct {
	ID       int64
	Body     string
	SenderID int64
	SentAt   time.Time
	Mine     bool
}

// WireMessage is the message shape used by the REST API and the realtime
// channel.
type WireMessage struct {
	ID            int64     `json:"id"`
	RoomPublicID  string    `json:"room_public_id"`
	SenderGuestID int64     `json:"sender_guest_id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToChatMessage converts a wire message into the local view shape, deriving
// ownership from the caller's guest id.
func (m WireMessage) ToChatMessage(myGuestID int64) ChatMessage {
	return ChatMessage{
		ID:       m.ID,
		Body:     m.Content,
		SenderID: m.SenderGuestID,
		SentAt:   m.CreatedAt,
		Mine:     m.SenderGuestID == myGuestID,
	}
}
