package models

import "encoding/json"

// Realtime event names delivered on a room channel.
const (
	EventMessageSent = "message.sent"
	EventRoomClosed  = "room.closed"
)

// Control event names exchanged between client and realtime endpoint.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// Frame is the envelope for every realtime payload: subscription control
// frames sent by the client and event frames pushed by the server.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RoomChannel returns the channel name for a room's event stream.
func RoomChannel(roomID string) string {
	return "room." + roomID
}

// DecodePushedMessage extracts a message from a message.sent payload. The
// payload may be wrapped ({"message": {...}}) or flat ({...}); either way a
// message without a positive numeric id is rejected.
func DecodePushedMessage(data json.RawMessage) (WireMessage, bool) {
	var wrapped struct {
		Message *WireMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Message != nil && wrapped.Message.ID > 0 {
		return *wrapped.Message, true
	}

	var flat WireMessage
	if err := json.Unmarshal(data, &flat); err != nil || flat.ID <= 0 {
		return WireMessage{}, false
	}
	return flat, true
}
