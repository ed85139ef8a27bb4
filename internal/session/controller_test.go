package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/registry"
	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/logger"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	ch  *event.Channel
	reg *registry.Registry
	log *logger.Logger
}

func newFixture(t *testing.T, cfg registry.Config) *fixture {
	t.Helper()

	log := logger.Discard()
	ch := event.NewChannel(0, 0, log.Logger)
	t.Cleanup(ch.Shutdown)

	reg := registry.New(ch, cfg, log)
	reg.Start()
	t.Cleanup(reg.Stop)

	return &fixture{ch: ch, reg: reg, log: log}
}

func (f *fixture) controller(t *testing.T, id string) *Controller {
	t.Helper()
	c := New(f.ch, room.Participant{ID: id, DisplayName: "user-" + id}, time.Second, f.log)
	t.Cleanup(c.Close)
	return c
}

func waitForRoom(t *testing.T, c *Controller) room.Snapshot {
	t.Helper()
	var snap room.Snapshot
	require.Eventually(t, func() bool {
		s, ok := c.CurrentRoom()
		snap = s
		return ok
	}, waitFor, tick)
	return snap
}

func waitForMembers(t *testing.T, c *Controller, n int) room.Snapshot {
	t.Helper()
	var snap room.Snapshot
	require.Eventually(t, func() bool {
		s, ok := c.CurrentRoom()
		snap = s
		return ok && len(s.Members) == n
	}, waitFor, tick)
	return snap
}

func historyBodies(c *Controller, kind string) []string {
	var bodies []string
	for _, m := range c.History() {
		if kind == "" || m.Kind == kind {
			bodies = append(bodies, m.Body)
		}
	}
	return bodies
}

func waitForError(t *testing.T, c *Controller) error {
	t.Helper()
	select {
	case err := <-c.Errors():
		return err
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for controller error")
		return nil
	}
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	b := f.controller(t, "b")

	// A creates a room and observes it asynchronously.
	require.NoError(t, a.CreateRoom(room.KindStudy))
	snapA := waitForRoom(t, a)
	assert.Equal(t, "a", snapA.HostID)
	require.Len(t, snapA.Members, 1)

	// B joins; both views converge to [a, b] with A as host.
	require.NoError(t, b.JoinRoom(snapA.ID))
	snapB := waitForMembers(t, b, 2)
	snapA = waitForMembers(t, a, 2)
	assert.Equal(t, "a", snapA.HostID)
	assert.Equal(t, "a", snapB.HostID)
	assert.Equal(t, "a", snapA.Members[0].ID)
	assert.Equal(t, "b", snapA.Members[1].ID)

	// A broadcasts; both eventually observe exactly one copy.
	require.NoError(t, a.SendMessage("hello", "", ""))
	for _, c := range []*Controller{a, b} {
		require.Eventually(t, func() bool {
			return len(historyBodies(c, room.MessageKindText)) == 1
		}, waitFor, tick)
		msgs := historyBodies(c, room.MessageKindText)
		assert.Equal(t, []string{"hello"}, msgs)
	}
	for _, m := range b.History() {
		if m.Kind == room.MessageKindText {
			assert.Empty(t, m.RecipientID)
		}
	}

	// A leaves; B's view converges to itself as host.
	require.NoError(t, a.LeaveRoom())
	_, ok := a.CurrentRoom()
	assert.False(t, ok, "leave clears the local view immediately")

	require.Eventually(t, func() bool {
		s, ok := b.CurrentRoom()
		return ok && len(s.Members) == 1 && s.HostID == "b"
	}, waitFor, tick)
}

func TestDirectedMessageVisibility(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	b := f.controller(t, "b")
	c := f.controller(t, "c")

	require.NoError(t, a.CreateRoom(room.KindStudy))
	snap := waitForRoom(t, a)
	require.NoError(t, b.JoinRoom(snap.ID))
	waitForRoom(t, b)
	require.NoError(t, c.JoinRoom(snap.ID))
	waitForRoom(t, c)
	waitForMembers(t, a, 3)

	require.NoError(t, a.SendMessage("psst", "", "b"))

	// Sender retains its own copy immediately, without a round trip.
	assert.Equal(t, []string{"psst"}, historyBodies(a, room.MessageKindText))

	// Recipient receives it through the channel.
	require.Eventually(t, func() bool {
		return len(historyBodies(b, room.MessageKindText)) == 1
	}, waitFor, tick)

	// A third party never sees it, and the sender never duplicates it.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, historyBodies(c, room.MessageKindText))
	assert.Equal(t, []string{"psst"}, historyBodies(a, room.MessageKindText))
}

func TestLateJoinerGetsNoHistory(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	b := f.controller(t, "b")

	require.NoError(t, a.CreateRoom(room.KindStudy))
	snap := waitForRoom(t, a)

	require.NoError(t, a.SendMessage("before", "", ""))
	require.Eventually(t, func() bool {
		return len(historyBodies(a, room.MessageKindText)) == 1
	}, waitFor, tick)

	require.NoError(t, b.JoinRoom(snap.ID))
	waitForRoom(t, b)

	require.NoError(t, a.SendMessage("after", "", ""))
	require.Eventually(t, func() bool {
		return len(historyBodies(b, room.MessageKindText)) == 1
	}, waitFor, tick)

	assert.Equal(t, []string{"after"}, historyBodies(b, room.MessageKindText),
		"chat is live-only; joiners never see messages published before they joined")
}

func TestJoinWhileInRoomRejected(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")

	require.NoError(t, a.CreateRoom(room.KindStudy))
	waitForRoom(t, a)

	err := a.JoinRoom("QQQQQ")
	require.ErrorIs(t, err, room.ErrAlreadyInRoom)

	err = a.CreateRoom(room.KindGame)
	require.ErrorIs(t, err, room.ErrAlreadyInRoom)
}

func TestJoinInvalidCode(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")

	err := a.JoinRoom("not a code")
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestJoinFullRoomSurfacesErrorAndLeavesViewUnchanged(t *testing.T) {
	f := newFixture(t, registry.Config{Capacities: map[room.Kind]int{room.KindStudy: 1}})
	a := f.controller(t, "a")
	b := f.controller(t, "b")

	require.NoError(t, a.CreateRoom(room.KindStudy))
	snap := waitForRoom(t, a)

	require.NoError(t, b.JoinRoom(snap.ID))

	err := waitForError(t, b)
	require.ErrorIs(t, err, room.ErrRoomFull)

	_, ok := b.CurrentRoom()
	assert.False(t, ok)
	assert.Empty(t, b.History())
}

func TestLeaveWithoutRoomIsNoOp(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	require.NoError(t, a.LeaveRoom())
}

func TestSendWithoutRoomIsNoOp(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	require.NoError(t, a.SendMessage("into the void", "", ""))
	assert.Empty(t, a.History())
}

func TestMembershipChangesSynthesizeSystemMessages(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	b := f.controller(t, "b")

	require.NoError(t, a.CreateRoom(room.KindStudy))
	snap := waitForRoom(t, a)

	require.NoError(t, b.JoinRoom(snap.ID))
	waitForMembers(t, a, 2)

	require.Eventually(t, func() bool {
		return len(historyBodies(a, room.MessageKindSystem)) == 1
	}, waitFor, tick)
	assert.Equal(t, []string{"user-b joined the room"}, historyBodies(a, room.MessageKindSystem))

	require.NoError(t, b.LeaveRoom())

	require.Eventually(t, func() bool {
		return len(historyBodies(a, room.MessageKindSystem)) == 2
	}, waitFor, tick)
	assert.Equal(t, "user-b left the room", historyBodies(a, room.MessageKindSystem)[1])
}

func TestActivityLifecycleThroughControllers(t *testing.T) {
	f := newFixture(t, registry.Config{})
	a := f.controller(t, "a")
	b := f.controller(t, "b")

	require.NoError(t, a.CreateRoom(room.KindGame))
	snap := waitForRoom(t, a)
	require.NoError(t, b.JoinRoom(snap.ID))
	waitForMembers(t, a, 2)

	// Non-host start surfaces a rejection, status unchanged.
	require.NoError(t, b.StartActivity())
	err := waitForError(t, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host")

	// Host start converges both views to active.
	require.NoError(t, a.StartActivity())
	for _, c := range []*Controller{a, b} {
		require.Eventually(t, func() bool {
			s, ok := c.CurrentRoom()
			return ok && s.Status == room.StatusActive
		}, waitFor, tick)
	}

	require.NoError(t, a.FinishActivity())
	for _, c := range []*Controller{a, b} {
		require.Eventually(t, func() bool {
			s, ok := c.CurrentRoom()
			return ok && s.Status == room.StatusClosed
		}, waitFor, tick)
	}
}

func TestCommandTimeoutWhenRegistryUnreachable(t *testing.T) {
	// No registry subscribed: the create command is published into the
	// void and the completion event never arrives.
	log := logger.Discard()
	ch := event.NewChannel(0, 0, log.Logger)
	t.Cleanup(ch.Shutdown)

	a := New(ch, room.Participant{ID: "a", DisplayName: "user-a"}, 50*time.Millisecond, log)
	t.Cleanup(a.Close)

	require.NoError(t, a.CreateRoom(room.KindStudy))

	err := waitForError(t, a)
	require.ErrorIs(t, err, ErrCommandTimeout)

	_, ok := a.CurrentRoom()
	assert.False(t, ok)
}

func TestCommandPendingRejectsOverlap(t *testing.T) {
	log := logger.Discard()
	ch := event.NewChannel(0, 0, log.Logger)
	t.Cleanup(ch.Shutdown)

	a := New(ch, room.Participant{ID: "a", DisplayName: "user-a"}, time.Second, log)
	t.Cleanup(a.Close)

	require.NoError(t, a.CreateRoom(room.KindStudy))
	err := a.CreateRoom(room.KindStudy)
	require.ErrorIs(t, err, ErrCommandPending)
}

func TestChannelShutdownFailsFast(t *testing.T) {
	log := logger.Discard()
	ch := event.NewChannel(0, 0, log.Logger)

	a := New(ch, room.Participant{ID: "a", DisplayName: "user-a"}, time.Second, log)
	t.Cleanup(a.Close)

	ch.Shutdown()

	err := a.CreateRoom(room.KindStudy)
	require.ErrorIs(t, err, event.ErrChannelClosed)
}

func TestSimulatedLatencyStillConverges(t *testing.T) {
	log := logger.Discard()
	ch := event.NewChannel(5*time.Millisecond, 20*time.Millisecond, log.Logger)
	t.Cleanup(ch.Shutdown)

	reg := registry.New(ch, registry.Config{}, log)
	reg.Start()
	t.Cleanup(reg.Stop)

	a := New(ch, room.Participant{ID: "a", DisplayName: "user-a"}, 2*time.Second, log)
	t.Cleanup(a.Close)
	b := New(ch, room.Participant{ID: "b", DisplayName: "user-b"}, 2*time.Second, log)
	t.Cleanup(b.Close)

	require.NoError(t, a.CreateRoom(room.KindStudy))
	snap := waitForRoom(t, a)

	require.NoError(t, b.JoinRoom(snap.ID))
	waitForMembers(t, a, 2)
	waitForMembers(t, b, 2)

	require.NoError(t, a.SendMessage("slow hello", "", ""))
	require.Eventually(t, func() bool {
		return len(historyBodies(b, room.MessageKindText)) == 1
	}, waitFor, tick)
}

func TestRouterShouldAppend(t *testing.T) {
	r := Router{}
	broadcast := room.Message{Sender: room.Participant{ID: "a"}, Body: "hi"}
	directed := room.Message{Sender: room.Participant{ID: "a"}, Body: "psst", RecipientID: "b"}

	tests := []struct {
		name    string
		msg     room.Message
		localID string
		want    bool
	}{
		{"broadcast to sender", broadcast, "a", true},
		{"broadcast to member", broadcast, "b", true},
		{"directed to recipient", directed, "b", true},
		{"directed to third party", directed, "c", false},
		{"directed back to sender", directed, "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ShouldAppend(tt.msg, tt.localID))
		})
	}

	assert.True(t, r.RetainForSender(directed))
	assert.False(t, r.RetainForSender(broadcast))
}
