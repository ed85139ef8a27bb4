package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/internal/session"
)

func TestUpdateFrameMapping(t *testing.T) {
	snap := room.Snapshot{
		ID:       "ABCDE",
		HostID:   "host",
		Members:  []room.Participant{{ID: "host", DisplayName: "Host"}},
		Capacity: 4,
		Status:   room.StatusOpen,
		Kind:     room.KindStudy,
	}

	frame := updateFrame(session.Update{Kind: session.UpdateRoom, Room: &snap})
	assert.Equal(t, TypeRoomState, frame.Type)
	state, ok := frame.Data.(RoomStateData)
	require.True(t, ok)
	assert.Equal(t, "ABCDE", state.ID)
	assert.Equal(t, "host", state.HostID)
	assert.Len(t, state.Members, 1)
	assert.Equal(t, "open", state.Status)

	msg := room.Message{
		ID:        uuid.New(),
		Sender:    room.Participant{ID: "host", DisplayName: "Host"},
		Body:      "hello",
		Kind:      room.MessageKindText,
		Timestamp: time.Now(),
	}
	frame = updateFrame(session.Update{Kind: session.UpdateMessage, Message: &msg})
	assert.Equal(t, TypeNewMessage, frame.Type)
	data, ok := frame.Data.(MessageData)
	require.True(t, ok)
	assert.Equal(t, "hello", data.Body)
	assert.Equal(t, "host", data.SenderID)

	frame = updateFrame(session.Update{Kind: session.UpdateLeft})
	assert.Equal(t, TypeRoomLeft, frame.Type)
	assert.Nil(t, frame.Data)
}

func TestServerFrameJSONOmitsEmptyData(t *testing.T) {
	frame := NewRoomLeft()
	data, err := frame.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeRoomLeft, decoded["type"])
	assert.NotContains(t, decoded, "data")
}

func TestClientMessageEnvelopeDecodes(t *testing.T) {
	raw := []byte(`{"type":"send_message","data":{"body":"hi","recipient_id":"p2"}}`)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, TypeSendMessage, msg.Type)

	var data SendMessageData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "hi", data.Body)
	assert.Equal(t, "p2", data.RecipientID)
	assert.Empty(t, data.Kind)
}

func TestSendRateLimit(t *testing.T) {
	c := &Client{}

	assert.True(t, c.canSendMessage())
	assert.False(t, c.canSendMessage())

	c.mu.Lock()
	c.lastMessageTime = time.Now().Add(-2 * time.Second)
	c.mu.Unlock()

	assert.True(t, c.canSendMessage())
}
