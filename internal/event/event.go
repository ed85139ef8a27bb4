// Package event is the asynchronous pub/sub transport between session
// controllers and the room registry. Payloads are typed per event name,
// so a payload cannot be published under the wrong name.
package event

import "github.com/brainplay/roomsync/internal/room"

// Name identifies an event stream on the channel.
type Name string

// Command events, published by session controllers.
const (
	NameCreateRoom     Name = "create-room"
	NameJoinRoom       Name = "join-room"
	NameLeaveRoom      Name = "leave-room"
	NameSendMessage    Name = "send-message"
	NameStartActivity  Name = "start-activity"
	NameFinishActivity Name = "finish-activity"
)

// Registry events, published by the room registry.
const (
	NameRoomCreated      Name = "room-created"
	NameRoomJoined       Name = "room-joined"
	NameRoomFull         Name = "room-full"
	NameRoomNotFound     Name = "room-not-found"
	NamePlayerJoined     Name = "player-joined"
	NamePlayerLeft       Name = "player-left"
	NameNewMessage       Name = "new-message"
	NameActivityStarted  Name = "activity-started"
	NameActivityFinished Name = "activity-finished"
	NameOpRejected       Name = "op-rejected"
)

// Event is anything the channel can carry. Each payload struct reports
// a fixed name, which keeps name and payload shape coupled at compile
// time rather than by convention.
type Event interface {
	EventName() Name
}

// CreateRoom asks the registry to allocate a room. If RequestedID names
// a live room the registry joins the creator to it instead of erroring.
type CreateRoom struct {
	RequestedID string
	Creator     room.Participant
	Kind        room.Kind
}

func (CreateRoom) EventName() Name { return NameCreateRoom }

// JoinRoom asks the registry to append a participant to a room. If no
// room exists for the id, one is created with the joiner as host.
type JoinRoom struct {
	RoomID      string
	Participant room.Participant
}

func (JoinRoom) EventName() Name { return NameJoinRoom }

// LeaveRoom removes a participant from a room.
type LeaveRoom struct {
	RoomID        string
	ParticipantID string
}

func (LeaveRoom) EventName() Name { return NameLeaveRoom }

// SendMessage hands a message to the registry for delivery. The
// registry stamps the timestamp; any value set here is ignored.
type SendMessage struct {
	RoomID  string
	Message room.Message
}

func (SendMessage) EventName() Name { return NameSendMessage }

// StartActivity transitions a room from open to active. Host only.
type StartActivity struct {
	RoomID        string
	ParticipantID string
}

func (StartActivity) EventName() Name { return NameStartActivity }

// FinishActivity transitions a room from active to closed. Host only.
type FinishActivity struct {
	RoomID        string
	ParticipantID string
}

func (FinishActivity) EventName() Name { return NameFinishActivity }

// RoomCreated acknowledges a successful create to its creator and
// carries the initial room snapshot.
type RoomCreated struct {
	Room      room.Snapshot
	CreatorID string
}

func (RoomCreated) EventName() Name { return NameRoomCreated }

// RoomJoined acknowledges a successful join to the joiner.
type RoomJoined struct {
	Room          room.Snapshot
	ParticipantID string
}

func (RoomJoined) EventName() Name { return NameRoomJoined }

// RoomFull reports a join rejected at capacity. Room state is
// unchanged.
type RoomFull struct {
	RoomID        string
	ParticipantID string
}

func (RoomFull) EventName() Name { return NameRoomFull }

// RoomNotFound reports an operation addressed to a room the registry
// has no live record of. Op names the rejected command.
type RoomNotFound struct {
	RoomID        string
	ParticipantID string
	Op            Name
}

func (RoomNotFound) EventName() Name { return NameRoomNotFound }

// PlayerJoined tells everyone in the room about a new (or re-joining)
// member. The snapshot carries converged membership and host.
type PlayerJoined struct {
	Room        room.Snapshot
	Participant room.Participant
}

func (PlayerJoined) EventName() Name { return NamePlayerJoined }

// PlayerLeft tells the remaining members about a departure and any host
// reassignment that came with it.
type PlayerLeft struct {
	Room          room.Snapshot
	ParticipantID string
}

func (PlayerLeft) EventName() Name { return NamePlayerLeft }

// NewMessage delivers one message. Routing (broadcast vs directed) is
// decided per receiving participant by the message router.
type NewMessage struct {
	RoomID  string
	Message room.Message
}

func (NewMessage) EventName() Name { return NameNewMessage }

// OpRejected reports a command refused for reasons other than capacity
// or a missing room, e.g. a non-host trying to start an activity.
type OpRejected struct {
	RoomID        string
	ParticipantID string
	Op            Name
	Reason        string
}

func (OpRejected) EventName() Name { return NameOpRejected }

// ActivityStarted announces an open -> active transition.
type ActivityStarted struct {
	Room room.Snapshot
}

func (ActivityStarted) EventName() Name { return NameActivityStarted }

// ActivityFinished announces an active -> closed transition.
type ActivityFinished struct {
	Room room.Snapshot
}

func (ActivityFinished) EventName() Name { return NameActivityFinished }
