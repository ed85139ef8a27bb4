// Package registry owns the canonical state of every live room. It is
// the only mutator of room state; session controllers talk to it
// exclusively through command events on the channel.
package registry

import (
	"sort"
	"sync"

	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/logger"
)

// Config tunes registry policy.
type Config struct {
	// Capacities maps room kind to maximum members. Kinds without an
	// entry fall back to DefaultCapacity.
	Capacities map[room.Kind]int

	// MaxMessageBody bounds message length; longer bodies are rejected
	// before delivery. Zero disables the check.
	MaxMessageBody int
}

// DefaultCapacity applies to kinds without a configured capacity.
const DefaultCapacity = 4

// Registry validates commands, mutates room state and publishes the
// resulting events. Construct one per process (or per test); it is
// deliberately not a package-level singleton.
type Registry struct {
	ch  *event.Channel
	cfg Config
	log *logger.Logger

	mu    sync.Mutex
	rooms map[string]*roomLoop
	subs  []*event.Subscription
}

// New creates a registry bound to the given channel.
func New(ch *event.Channel, cfg Config, log *logger.Logger) *Registry {
	return &Registry{
		ch:    ch,
		cfg:   cfg,
		log:   log,
		rooms: make(map[string]*roomLoop),
	}
}

// Start subscribes the registry to the command streams. Commands
// arriving before Start are lost, which is the documented behavior of
// publishing to a channel with no subscribers.
func (r *Registry) Start() {
	r.subs = []*event.Subscription{
		r.ch.Subscribe(event.NameCreateRoom, r.onCreateRoom),
		r.ch.Subscribe(event.NameJoinRoom, r.onJoinRoom),
		r.ch.Subscribe(event.NameLeaveRoom, r.onRoomCommand),
		r.ch.Subscribe(event.NameSendMessage, r.onRoomCommand),
		r.ch.Subscribe(event.NameStartActivity, r.onRoomCommand),
		r.ch.Subscribe(event.NameFinishActivity, r.onRoomCommand),
	}
}

// Stop detaches the registry from the channel and stops all room
// loops. Rooms and their members are discarded.
func (r *Registry) Stop() {
	for _, s := range r.subs {
		r.ch.Unsubscribe(s)
	}
	r.subs = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.rooms {
		l.stop()
		delete(r.rooms, id)
	}
}

func (r *Registry) capacity(kind room.Kind) int {
	if c, ok := r.cfg.Capacities[kind]; ok && c > 0 {
		return c
	}
	return DefaultCapacity
}

// onCreateRoom allocates a new room with the creator as sole member and
// host. A requested id colliding with a live room joins it instead;
// callers must expect that.
func (r *Registry) onCreateRoom(evt event.Event) {
	cmd, ok := evt.(event.CreateRoom)
	if !ok {
		return
	}

	id := room.NormalizeCode(cmd.RequestedID)

	r.mu.Lock()
	for id != "" {
		l, live := r.rooms[id]
		if !live {
			break
		}
		r.mu.Unlock()
		if l.enqueue(event.JoinRoom{RoomID: id, Participant: cmd.Creator}) {
			return
		}
		// The colliding room died between lookup and enqueue. Retry so
		// the create lands fresh, not as a resurrection.
		r.mu.Lock()
	}
	if id == "" {
		id = r.freeCodeLocked()
	}

	kind := cmd.Kind
	if kind == "" {
		kind = room.KindStudy
	}

	l := newRoomLoop(r, &room.Room{
		ID:       id,
		HostID:   cmd.Creator.ID,
		Members:  []room.Participant{cmd.Creator},
		Capacity: r.capacity(kind),
		Status:   room.StatusOpen,
		Kind:     kind,
	})
	r.rooms[id] = l
	snap := l.snapshot()
	r.mu.Unlock()

	r.log.Info("room created",
		"room_id", id,
		"kind", string(kind),
		"host_id", cmd.Creator.ID,
	)

	r.publish(event.RoomCreated{Room: snap, CreatorID: cmd.Creator.ID})
}

// onJoinRoom routes a join to the room's loop. Joining a room that does
// not exist creates it with the joiner as sole member and host.
func (r *Registry) onJoinRoom(evt event.Event) {
	cmd, ok := evt.(event.JoinRoom)
	if !ok {
		return
	}
	cmd.RoomID = room.NormalizeCode(cmd.RoomID)

	for {
		r.mu.Lock()
		l, live := r.rooms[cmd.RoomID]
		if !live {
			l = newRoomLoop(r, &room.Room{
				ID:       cmd.RoomID,
				HostID:   cmd.Participant.ID,
				Members:  []room.Participant{cmd.Participant},
				Capacity: r.capacity(room.KindStudy),
				Status:   room.StatusOpen,
				Kind:     room.KindStudy,
			})
			r.rooms[cmd.RoomID] = l
			snap := l.snapshot()
			r.mu.Unlock()

			r.log.Info("room created by join",
				"room_id", cmd.RoomID,
				"host_id", cmd.Participant.ID,
			)

			r.publish(event.RoomJoined{Room: snap, ParticipantID: cmd.Participant.ID})
			r.publish(event.PlayerJoined{Room: snap, Participant: cmd.Participant})
			return
		}
		r.mu.Unlock()

		if l.enqueue(cmd) {
			return
		}
		// The loop died between lookup and enqueue (last member left).
		// Retry so the join lands as a fresh create, not a resurrection.
	}
}

// onRoomCommand routes leave/send/start/finish to the room's loop.
func (r *Registry) onRoomCommand(evt event.Event) {
	var roomID, participantID string
	switch cmd := evt.(type) {
	case event.LeaveRoom:
		roomID, participantID = cmd.RoomID, cmd.ParticipantID
	case event.SendMessage:
		roomID, participantID = cmd.RoomID, cmd.Message.Sender.ID
	case event.StartActivity:
		roomID, participantID = cmd.RoomID, cmd.ParticipantID
	case event.FinishActivity:
		roomID, participantID = cmd.RoomID, cmd.ParticipantID
	default:
		return
	}

	for {
		r.mu.Lock()
		l, live := r.rooms[roomID]
		r.mu.Unlock()

		if !live {
			break
		}
		if l.enqueue(evt) {
			return
		}
		// The loop died between lookup and enqueue; look up again in
		// case the room was recreated in the meantime.
	}

	// Leaving a room that is already gone is an idempotent no-op; the
	// other commands get an explicit signal rather than a silent drop.
	if _, isLeave := evt.(event.LeaveRoom); isLeave {
		return
	}

	r.publish(event.RoomNotFound{
		RoomID:        roomID,
		ParticipantID: participantID,
		Op:            evt.EventName(),
	})
}

// drop removes a loop from the table if it is still the registered one
// for its id.
func (r *Registry) drop(id string, l *roomLoop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[id] == l {
		delete(r.rooms, id)
	}
}

// freeCodeLocked generates a room code not currently in use. Caller
// holds r.mu.
func (r *Registry) freeCodeLocked() string {
	for {
		code := room.NewCode()
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}

func (r *Registry) publish(evt event.Event) {
	if err := r.ch.Publish(evt); err != nil {
		r.log.Warn("registry publish failed",
			"event", string(evt.EventName()),
			"error", err,
		)
	}
}

// ListRooms returns snapshots of every live room, ordered by id, for
// lobby discovery.
func (r *Registry) ListRooms() []room.Snapshot {
	r.mu.Lock()
	loops := make([]*roomLoop, 0, len(r.rooms))
	for _, l := range r.rooms {
		loops = append(loops, l)
	}
	r.mu.Unlock()

	snaps := make([]room.Snapshot, 0, len(loops))
	for _, l := range loops {
		snaps = append(snaps, l.snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// GetRoom returns a snapshot of one room.
func (r *Registry) GetRoom(id string) (room.Snapshot, bool) {
	r.mu.Lock()
	l, ok := r.rooms[room.NormalizeCode(id)]
	r.mu.Unlock()
	if !ok {
		return room.Snapshot{}, false
	}
	return l.snapshot(), true
}
