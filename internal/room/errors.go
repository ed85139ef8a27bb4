package room

import "errors"

var (
	// ErrRoomFull rejects a join when the room is at capacity. Room
	// state is unchanged; the caller may retry another room.
	ErrRoomFull = errors.New("room is full")

	// ErrRoomNotFound covers operations addressed to a room id the
	// registry has no live record of.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotMember rejects sends from a participant who is not in the
	// room (and is not the system pseudo-participant).
	ErrNotMember = errors.New("sender is not a room member")

	// ErrNotHost rejects host-only transitions issued by non-hosts.
	ErrNotHost = errors.New("only the host may do that")

	// ErrBadStatus rejects a transition the current status does not
	// allow (e.g. starting an already-closed room).
	ErrBadStatus = errors.New("room status does not allow that")

	// ErrAlreadyInRoom rejects create/join while the session already
	// has a current room. Leave first.
	ErrAlreadyInRoom = errors.New("already in a room")

	// ErrMessageTooLong rejects a message body over the configured
	// limit before it reaches delivery.
	ErrMessageTooLong = errors.New("message body too long")
)
