package room

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes what a room is used for. It only affects the
// default capacity and which activities may run inside it.
type Kind string

const (
	KindStudy Kind = "study"
	KindGame  Kind = "game"
)

// Status is the room lifecycle state.
type Status string

const (
	// StatusOpen accepts joins, no activity selected yet.
	StatusOpen Status = "open"

	// StatusActive means an activity is running. Joins are still
	// accepted until capacity is reached.
	StatusActive Status = "active"

	// StatusClosed is terminal. The room lingers only so remaining
	// members can observe the outcome, then vanishes with the last leave.
	StatusClosed Status = "closed"
)

// Participant identifies one user inside a room. Immutable for the
// lifetime of a membership; the coordination layer never interprets
// AvatarSpec.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarSpec  string `json:"avatar_spec,omitempty"`
}

// SystemSenderID is the reserved pseudo-participant id used for
// membership announcements and other synthesized messages.
const SystemSenderID = "system"

// System is the pseudo-participant attached to synthesized messages.
var System = Participant{ID: SystemSenderID, DisplayName: "System"}

// MessageKind tags what a message carries. The coordination layer treats
// it as opaque; game modules and the chat UI attach their own kinds.
const (
	MessageKindText        = "text"
	MessageKindSystem      = "system"
	MessageKindAchievement = "achievement"
)

// Message is one chat or system event attached to a room. Append-only:
// once delivered it is never mutated or deleted.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	Sender      Participant `json:"sender"`
	Body        string      `json:"body"`
	Kind        string      `json:"kind"`
	Timestamp   time.Time   `json:"timestamp"`
	RecipientID string      `json:"recipient_id,omitempty"`
}

// Directed reports whether the message is addressed to a single
// recipient rather than the whole room.
func (m Message) Directed() bool {
	return m.RecipientID != ""
}

// Room is the canonical state of one shared session. It is owned and
// mutated exclusively by the registry; everyone else sees copies.
type Room struct {
	ID       string
	HostID   string
	Members  []Participant
	Capacity int
	Status   Status
	Kind     Kind
}

// Snapshot is an immutable copy of room state handed to controllers and
// the lobby. Mutating a snapshot never affects registry state.
type Snapshot struct {
	ID       string        `json:"id"`
	HostID   string        `json:"host_id,omitempty"`
	Members  []Participant `json:"members"`
	Capacity int           `json:"capacity"`
	Status   Status        `json:"status"`
	Kind     Kind          `json:"kind"`
}

// Snapshot returns a defensive copy of the room.
func (r *Room) Snapshot() Snapshot {
	members := make([]Participant, len(r.Members))
	copy(members, r.Members)

	return Snapshot{
		ID:       r.ID,
		HostID:   r.HostID,
		Members:  members,
		Capacity: r.Capacity,
		Status:   r.Status,
		Kind:     r.Kind,
	}
}

// Member returns the member with the given id, if present.
func (r *Room) Member(id string) (Participant, bool) {
	for _, m := range r.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Participant{}, false
}

// IsMember reports whether id is a current member or the system
// pseudo-participant.
func (r *Room) IsMember(id string) bool {
	if id == SystemSenderID {
		return true
	}
	_, ok := r.Member(id)
	return ok
}

// Full reports whether the room is at capacity.
func (r *Room) Full() bool {
	return len(r.Members) >= r.Capacity
}

// AddMember appends a participant in join order. Appending an existing
// member is a no-op.
func (r *Room) AddMember(p Participant) {
	if _, ok := r.Member(p.ID); ok {
		return
	}
	r.Members = append(r.Members, p)
}

// RemoveMember removes a participant and, if it was the host, promotes
// the earliest-joined remaining member. Returns whether the participant
// was present.
func (r *Room) RemoveMember(id string) bool {
	for i, m := range r.Members {
		if m.ID == id {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			if r.HostID == id {
				if len(r.Members) > 0 {
					r.HostID = r.Members[0].ID
				} else {
					r.HostID = ""
				}
			}
			return true
		}
	}
	return false
}

// Empty reports whether the room has no members left. An empty room is
// not addressable and must be destroyed by the registry.
func (r *Room) Empty() bool {
	return len(r.Members) == 0
}
