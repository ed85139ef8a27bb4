package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/room"
)

// cmdQueueSize bounds buffered per-room commands. The loop drains fast
// (publishing never blocks), so the queue is effectively never full.
const cmdQueueSize = 128

// roomLoop serializes all operations on one room. Every mutation goes
// through the loop goroutine, which removes the join/send reordering
// hazard between command streams.
type roomLoop struct {
	reg  *Registry
	cmds chan event.Event
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	stopped bool
	state   *room.Room
	lastTS  time.Time
}

func newRoomLoop(reg *Registry, state *room.Room) *roomLoop {
	l := &roomLoop{
		reg:   reg,
		cmds:  make(chan event.Event, cmdQueueSize),
		done:  make(chan struct{}),
		state: state,
	}
	go l.run()
	return l
}

// enqueue hands a command to the loop in arrival order. Returns false
// if the loop already stopped (room destroyed) or cannot accept the
// command, so the caller re-dispatches against the current room table.
// The stopped check and the send share one critical section: once stop
// has run, every enqueue observes it.
func (l *roomLoop) enqueue(evt event.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return false
	}
	select {
	case l.cmds <- evt:
		return true
	default:
		// Queue full. Refuse instead of blocking under the lock; the
		// caller retries.
		return false
	}
}

func (l *roomLoop) stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *roomLoop) snapshot() room.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Snapshot()
}

func (l *roomLoop) run() {
	for {
		// Check shutdown before taking more work, so a command never
		// applies to a room the registry no longer tracks.
		select {
		case <-l.done:
			l.flush()
			return
		default:
		}

		select {
		case <-l.done:
			l.flush()
			return
		case evt := <-l.cmds:
			l.dispatch(evt)
		}
	}
}

func (l *roomLoop) dispatch(evt event.Event) {
	switch cmd := evt.(type) {
	case event.JoinRoom:
		l.handleJoin(cmd)
	case event.LeaveRoom:
		l.handleLeave(cmd)
	case event.SendMessage:
		l.handleSend(cmd)
	case event.StartActivity:
		l.handleStart(cmd)
	case event.FinishActivity:
		l.handleFinish(cmd)
	}
}

// flush re-publishes commands still buffered when the loop stopped.
// They re-enter the registry through the channel and get routed against
// the current room table, so a join buffered during destruction lands
// as a fresh create instead of vanishing.
func (l *roomLoop) flush() {
	for {
		select {
		case evt := <-l.cmds:
			l.reg.publish(evt)
		default:
			return
		}
	}
}

func (l *roomLoop) handleJoin(cmd event.JoinRoom) {
	l.mu.Lock()
	st := l.state

	if st.Status == room.StatusClosed {
		l.mu.Unlock()
		// A closed room is terminal; for joiners it may as well not
		// exist.
		l.reg.publish(event.RoomNotFound{
			RoomID:        st.ID,
			ParticipantID: cmd.Participant.ID,
			Op:            event.NameJoinRoom,
		})
		return
	}

	if _, already := st.Member(cmd.Participant.ID); already {
		snap := st.Snapshot()
		l.mu.Unlock()
		// Re-join by a member leaves state untouched but still
		// notifies, so a reconnecting client re-converges its view.
		l.reg.publish(event.RoomJoined{Room: snap, ParticipantID: cmd.Participant.ID})
		l.reg.publish(event.PlayerJoined{Room: snap, Participant: cmd.Participant})
		return
	}

	if st.Full() {
		id := st.ID
		l.mu.Unlock()
		l.reg.publish(event.RoomFull{RoomID: id, ParticipantID: cmd.Participant.ID})
		return
	}

	st.AddMember(cmd.Participant)
	snap := st.Snapshot()
	l.mu.Unlock()

	l.reg.publish(event.RoomJoined{Room: snap, ParticipantID: cmd.Participant.ID})
	l.reg.publish(event.PlayerJoined{Room: snap, Participant: cmd.Participant})
}

func (l *roomLoop) handleLeave(cmd event.LeaveRoom) {
	l.mu.Lock()
	st := l.state

	if !st.RemoveMember(cmd.ParticipantID) {
		l.mu.Unlock()
		return
	}

	if st.Empty() {
		id := st.ID
		l.mu.Unlock()
		l.reg.drop(id, l)
		l.stop()
		l.reg.log.Info("room destroyed", "room_id", id)
		return
	}

	snap := st.Snapshot()
	l.mu.Unlock()

	l.reg.publish(event.PlayerLeft{Room: snap, ParticipantID: cmd.ParticipantID})
}

func (l *roomLoop) handleSend(cmd event.SendMessage) {
	msg := cmd.Message

	l.mu.Lock()
	st := l.state

	if !st.IsMember(msg.Sender.ID) {
		id := st.ID
		l.mu.Unlock()
		l.reg.publish(event.OpRejected{
			RoomID:        id,
			ParticipantID: msg.Sender.ID,
			Op:            event.NameSendMessage,
			Reason:        room.ErrNotMember.Error(),
		})
		return
	}

	if max := l.reg.cfg.MaxMessageBody; max > 0 && len(msg.Body) > max {
		id := st.ID
		l.mu.Unlock()
		l.reg.publish(event.OpRejected{
			RoomID:        id,
			ParticipantID: msg.Sender.ID,
			Op:            event.NameSendMessage,
			Reason:        room.ErrMessageTooLong.Error(),
		})
		return
	}

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.Timestamp = l.stamp()
	id := st.ID
	l.mu.Unlock()

	l.reg.publish(event.NewMessage{RoomID: id, Message: msg})
}

func (l *roomLoop) handleStart(cmd event.StartActivity) {
	l.mu.Lock()
	st := l.state

	if reason, ok := l.transitionCheck(cmd.ParticipantID, room.StatusOpen); !ok {
		id := st.ID
		l.mu.Unlock()
		l.reg.publish(event.OpRejected{
			RoomID:        id,
			ParticipantID: cmd.ParticipantID,
			Op:            event.NameStartActivity,
			Reason:        reason,
		})
		return
	}

	st.Status = room.StatusActive
	snap := st.Snapshot()
	l.mu.Unlock()

	l.reg.publish(event.ActivityStarted{Room: snap})
}

func (l *roomLoop) handleFinish(cmd event.FinishActivity) {
	l.mu.Lock()
	st := l.state

	if reason, ok := l.transitionCheck(cmd.ParticipantID, room.StatusActive); !ok {
		id := st.ID
		l.mu.Unlock()
		l.reg.publish(event.OpRejected{
			RoomID:        id,
			ParticipantID: cmd.ParticipantID,
			Op:            event.NameFinishActivity,
			Reason:        reason,
		})
		return
	}

	st.Status = room.StatusClosed
	snap := st.Snapshot()
	l.mu.Unlock()

	l.reg.publish(event.ActivityFinished{Room: snap})
}

// transitionCheck validates a host-only status transition. Caller holds
// l.mu.
func (l *roomLoop) transitionCheck(participantID string, from room.Status) (string, bool) {
	if l.state.HostID != participantID {
		return room.ErrNotHost.Error(), false
	}
	if l.state.Status != from {
		return room.ErrBadStatus.Error(), false
	}
	return "", true
}

// stamp assigns a per-room monotonically non-decreasing timestamp.
// Caller holds l.mu.
func (l *roomLoop) stamp() time.Time {
	ts := time.Now()
	if ts.Before(l.lastTS) {
		ts = l.lastTS
	}
	l.lastTS = ts
	return ts
}
