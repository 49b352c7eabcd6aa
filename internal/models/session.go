package models

// Phase is the coarse lifecycle stage of a chat session. Exactly one phase is
// active at a time; the session controller is the only writer.
type Phase int

const (
	PhaseNameEntry Phase = iota
	PhaseWaiting
	PhaseChatting
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNameEntry:
		return "name-entry"
	case PhaseWaiting:
		return "waiting"
	case PhaseChatting:
		return "chatting"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// Session holds the credentials issued for one anonymous participant.
// It is created once per name submission and stays immutable until the
// controller resets it on cancel, stop, or a fatal matchmaking error.
type Session struct {
	// Token is the bearer token authenticating every backend call and the
	// realtime connection.
	Token string
	// GuestID is the numeric guest identifier; incoming messages are compared
	// against it to decide ownership.
	GuestID int64
	// DisplayName is the name the user submitted.
	DisplayName string
}

// Room is the ephemeral two-party conversation context created on a match.
type Room struct {
	// RoomID is the room's public identifier (UUID).
	RoomID string
	// PartnerName is the matched partner's display name.
	PartnerName string
	// PartnerLeft flips to true when a room.closed event arrives.
	PartnerLeft bool
}
