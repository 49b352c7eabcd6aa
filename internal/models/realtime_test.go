package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomChannel(t *testing.T) {
	assert.Equal(t, "room.r-1", RoomChannel("r-1"))
}

func TestDecodePushedMessageWrapped(t *testing.T) {
	payload := json.RawMessage(`{"message":{"id":5,"room_public_id":"r-1","sender_guest_id":7,"type":"text","content":"hi"}}`)

	msg, ok := DecodePushedMessage(payload)
	assert.True(t, ok)
	assert.Equal(t, int64(5), msg.ID)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, int64(7), msg.SenderGuestID)
}

func TestDecodePushedMessageFlat(t *testing.T) {
	payload := json.RawMessage(`{"id":5,"room_public_id":"r-1","sender_guest_id":7,"content":"hi"}`)

	msg, ok := DecodePushedMessage(payload)
	assert.True(t, ok)
	assert.Equal(t, int64(5), msg.ID)
}

func TestDecodePushedMessageRejectsMissingID(t *testing.T) {
	for _, payload := range []string{
		`{"message":{"content":"no id"}}`,
		`{"content":"no id"}`,
		`{"message":{"id":0,"content":"zero"}}`,
		`{"id":-1,"content":"negative"}`,
		`not json`,
		`{}`,
	} {
		_, ok := DecodePushedMessage(json.RawMessage(payload))
		assert.False(t, ok, "payload %s", payload)
	}
}

func TestFrameRoundtripOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Frame{Event: EventSubscribe, Channel: "room.r-1"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"event":"subscribe","channel":"room.r-1"}`, string(raw))
}
