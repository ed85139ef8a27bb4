package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/logger"
)

func newTestChannel(t *testing.T, min, max time.Duration) *Channel {
	t.Helper()
	ch := NewChannel(min, max, logger.Discard().Logger)
	t.Cleanup(ch.Shutdown)
	return ch
}

// collector accumulates delivered events behind a mutex, since handlers
// run on dispatch goroutines.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestChannelDeliversToSubscriber(t *testing.T) {
	ch := newTestChannel(t, 0, 0)
	col := &collector{}

	ch.Subscribe(NameNewMessage, col.handle)

	msg := NewMessage{RoomID: "ABCDE", Message: room.Message{Body: "hi"}}
	require.NoError(t, ch.Publish(msg))

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, msg, col.snapshot()[0])
}

func TestChannelNoSubscribersIsNoOp(t *testing.T) {
	ch := newTestChannel(t, 0, 0)
	require.NoError(t, ch.Publish(NewMessage{RoomID: "ABCDE"}))
}

func TestChannelFIFOPerName(t *testing.T) {
	ch := newTestChannel(t, 0, 0)
	col := &collector{}
	ch.Subscribe(NameNewMessage, col.handle)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, ch.Publish(NewMessage{RoomID: "ABCDE", Message: room.Message{Body: string(rune('a' + i%26))}}))
	}

	require.Eventually(t, func() bool { return col.count() == n }, 2*time.Second, 5*time.Millisecond)

	got := col.snapshot()
	for i, evt := range got {
		assert.Equal(t, string(rune('a'+i%26)), evt.(NewMessage).Message.Body, "delivery %d out of order", i)
	}
}

func TestChannelHandlerOrderIsRegistrationOrder(t *testing.T) {
	ch := newTestChannel(t, 0, 0)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		ch.Subscribe(NameRoomCreated, func(Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	require.NoError(t, ch.Publish(RoomCreated{CreatorID: "p1"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestChannelSnapshotSemantics(t *testing.T) {
	// With a 30ms latency there is a window between scheduling and
	// delivery; a subscriber added inside that window must not receive
	// the publish.
	ch := newTestChannel(t, 30*time.Millisecond, 30*time.Millisecond)

	early := &collector{}
	ch.Subscribe(NameNewMessage, early.handle)

	require.NoError(t, ch.Publish(NewMessage{RoomID: "ABCDE"}))

	late := &collector{}
	ch.Subscribe(NameNewMessage, late.handle)

	require.Eventually(t, func() bool { return early.count() == 1 }, time.Second, 5*time.Millisecond)

	// Give the dispatcher a chance to misbehave before asserting.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, late.count(), "late subscriber received a publish scheduled before it registered")
}

func TestChannelUnsubscribe(t *testing.T) {
	ch := newTestChannel(t, 0, 0)

	kept := &collector{}
	dropped := &collector{}
	ch.Subscribe(NameNewMessage, kept.handle)
	sub := ch.Subscribe(NameNewMessage, dropped.handle)

	ch.Unsubscribe(sub)
	ch.Unsubscribe(sub) // idempotent
	ch.Unsubscribe(nil)

	require.NoError(t, ch.Publish(NewMessage{RoomID: "ABCDE"}))

	require.Eventually(t, func() bool { return kept.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, dropped.count())
}

func TestChannelShutdown(t *testing.T) {
	ch := NewChannel(0, 0, logger.Discard().Logger)
	col := &collector{}
	ch.Subscribe(NameNewMessage, col.handle)

	ch.Shutdown()
	ch.Shutdown() // safe to repeat

	err := ch.Publish(NewMessage{RoomID: "ABCDE"})
	require.ErrorIs(t, err, ErrChannelClosed)
	assert.Zero(t, col.count())
}

func TestChannelNoOrderingAcrossNamesIsAtLeastDelivered(t *testing.T) {
	// Two names dispatch independently; both must still arrive.
	ch := newTestChannel(t, 0, 5*time.Millisecond)

	joins := &collector{}
	msgs := &collector{}
	ch.Subscribe(NamePlayerJoined, joins.handle)
	ch.Subscribe(NameNewMessage, msgs.handle)

	require.NoError(t, ch.Publish(PlayerJoined{Participant: room.Participant{ID: "p1"}}))
	require.NoError(t, ch.Publish(NewMessage{RoomID: "ABCDE"}))

	require.Eventually(t, func() bool {
		return joins.count() == 1 && msgs.count() == 1
	}, time.Second, 5*time.Millisecond)
}
