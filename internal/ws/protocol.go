package ws

import (
	"encoding/json"
	"time"

	"github.com/brainplay/roomsync/internal/room"
)

// ClientMessage is the envelope for commands sent by the browser.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client command types
const (
	TypeCreateRoom     = "create_room"
	TypeJoinRoom       = "join_room"
	TypeLeaveRoom      = "leave_room"
	TypeSendMessage    = "send_message"
	TypeStartActivity  = "start_activity"
	TypeFinishActivity = "finish_activity"
)

// CreateRoomData carries the create_room command payload
type CreateRoomData struct {
	Kind string `json:"kind"`
}

// JoinRoomData carries the join_room command payload
type JoinRoomData struct {
	RoomID string `json:"room_id"`
}

// SendMessageData carries the send_message command payload
type SendMessageData struct {
	Body        string `json:"body"`
	Kind        string `json:"kind,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}

// ServerMessage is the envelope for frames pushed to the browser.
type ServerMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Server frame types
const (
	TypeConnected  = "connected"
	TypeRoomState  = "room_state"
	TypeRoomLeft   = "room_left"
	TypeNewMessage = "new_message"
	TypeError      = "error"
)

// ParticipantData is the wire shape of a room member
type ParticipantData struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarSpec  string `json:"avatar_spec,omitempty"`
}

// RoomStateData is the wire shape of a room snapshot
type RoomStateData struct {
	ID       string            `json:"id"`
	HostID   string            `json:"host_id"`
	Members  []ParticipantData `json:"members"`
	Capacity int               `json:"capacity"`
	Status   string            `json:"status"`
	Kind     string            `json:"kind"`
}

// MessageData is the wire shape of a chat message
type MessageData struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	RecipientID string    `json:"recipient_id,omitempty"`
}

// ErrorData carries a user-facing failure
type ErrorData struct {
	Message string `json:"message"`
}

func participantData(p room.Participant) ParticipantData {
	return ParticipantData{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarSpec:  p.AvatarSpec,
	}
}

func roomStateData(snap room.Snapshot) RoomStateData {
	members := make([]ParticipantData, 0, len(snap.Members))
	for _, m := range snap.Members {
		members = append(members, participantData(m))
	}
	return RoomStateData{
		ID:       snap.ID,
		HostID:   snap.HostID,
		Members:  members,
		Capacity: snap.Capacity,
		Status:   string(snap.Status),
		Kind:     string(snap.Kind),
	}
}

func messageData(msg room.Message) MessageData {
	return MessageData{
		ID:          msg.ID.String(),
		SenderID:    msg.Sender.ID,
		SenderName:  msg.Sender.DisplayName,
		Body:        msg.Body,
		Kind:        msg.Kind,
		Timestamp:   msg.Timestamp,
		RecipientID: msg.RecipientID,
	}
}

// NewConnected confirms a successful connection
func NewConnected(p room.Participant) ServerMessage {
	return ServerMessage{
		Type:      TypeConnected,
		Data:      participantData(p),
		Timestamp: time.Now().Unix(),
	}
}

// NewRoomState pushes the participant's room view
func NewRoomState(snap room.Snapshot) ServerMessage {
	return ServerMessage{
		Type:      TypeRoomState,
		Data:      roomStateData(snap),
		Timestamp: time.Now().Unix(),
	}
}

// NewRoomLeft reports that the participant is no longer in a room
func NewRoomLeft() ServerMessage {
	return ServerMessage{
		Type:      TypeRoomLeft,
		Timestamp: time.Now().Unix(),
	}
}

// NewMessageFrame pushes a chat message
func NewMessageFrame(msg room.Message) ServerMessage {
	return ServerMessage{
		Type:      TypeNewMessage,
		Data:      messageData(msg),
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorFrame reports a failure
func NewErrorFrame(message string) ServerMessage {
	return ServerMessage{
		Type:      TypeError,
		Data:      ErrorData{Message: message},
		Timestamp: time.Now().Unix(),
	}
}

// ToJSON converts a frame to JSON bytes
func (m *ServerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
