package models

// Matchmaking status values returned by the queue-join and heartbeat calls.
const (
	MatchStatusWaiting = "waiting"
	MatchStatusMatched = "matched"
)

// Guest is the identity block inside a session response.
type Guest struct {
	ID          int64  `json:"id"`
	PublicID    string `json:"public_id"`
	DisplayName string `json:"display_name"`
}

// SessionResponse is the create-session response body.
type SessionResponse struct {
	Token string `json:"token"`
	Guest Guest  `json:"guest"`
}

// RoomPayload is the room block inside a queue-join response.
type RoomPayload struct {
	PublicID string `json:"public_id"`
	Status   string `json:"status,omitempty"`
}

// QueueResponse is the queue-join response body. Room and PartnerName are only
// present when Status is "matched".
type QueueResponse struct {
	Status      string       `json:"status"`
	Room        *RoomPayload `json:"room,omitempty"`
	PartnerName string       `json:"partner_name,omitempty"`
}

// HeartbeatResponse is the matchmaking status-check response body.
type HeartbeatResponse struct {
	Status       string `json:"status"`
	RoomPublicID string `json:"room_public_id,omitempty"`
	PartnerName  string `json:"partner_name,omitempty"`
}

// MessagesResponse is the list-messages response body, ordered oldest first.
type MessagesResponse struct {
	Data []WireMessage `json:"data"`
}

// SendMessageResponse is the send-message response body carrying the created
// message with its server-assigned id.
type SendMessageResponse struct {
	Data WireMessage `json:"data"`
}
