package event

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrChannelClosed is returned by Publish after Shutdown. Commands must
// fail fast rather than vanish into a dead channel.
var ErrChannelClosed = errors.New("event channel closed")

// Handler consumes one delivered event.
type Handler func(Event)

// Subscription is the token returned by Subscribe, used to remove
// exactly that registration.
type Subscription struct {
	name    Name
	handler Handler
}

// queueSize bounds scheduled-but-undelivered events per name. A full
// queue drops the publish, matching the best-effort delivery model.
const queueSize = 256

type delivery struct {
	evt      Event
	handlers []*Subscription
}

// Channel is an in-process pub/sub transport with simulated delivery
// latency. Deliveries of the same event name preserve publish order;
// no ordering holds across names. Handlers registered after a publish
// was scheduled do not receive that publish.
type Channel struct {
	latencyMin time.Duration
	latencyMax time.Duration
	log        *slog.Logger

	mu     sync.Mutex
	subs   map[Name][]*Subscription
	queues map[Name]chan delivery
	done   chan struct{}
	closed bool
}

// NewChannel creates a channel whose deliveries are delayed by a random
// duration in [latencyMin, latencyMax]. Zero bounds deliver as fast as
// the scheduler allows, which is what tests want.
func NewChannel(latencyMin, latencyMax time.Duration, log *slog.Logger) *Channel {
	if latencyMax < latencyMin {
		latencyMax = latencyMin
	}
	return &Channel{
		latencyMin: latencyMin,
		latencyMax: latencyMax,
		log:        log,
		subs:       make(map[Name][]*Subscription),
		queues:     make(map[Name]chan delivery),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a handler for every future publish of name.
// Handlers for one name run in registration order on that name's
// dispatch goroutine.
func (c *Channel) Subscribe(name Name, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &Subscription{name: name, handler: h}
	}

	sub := &Subscription{name: name, handler: h}
	c.subs[name] = append(c.subs[name], sub)
	return sub
}

// Unsubscribe removes one registration. Unknown or already-removed
// subscriptions are ignored.
func (c *Channel) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subs[sub.name]
	for i, s := range subs {
		if s == sub {
			c.subs[sub.name] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish schedules asynchronous delivery of evt to the handlers
// registered for its name at this moment. Publishing with no
// subscribers is a silent no-op.
func (c *Channel) Publish(evt Event) error {
	name := evt.EventName()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}

	subs := c.subs[name]
	if len(subs) == 0 {
		c.mu.Unlock()
		return nil
	}

	// Snapshot so late subscribers miss this publish.
	handlers := make([]*Subscription, len(subs))
	copy(handlers, subs)

	q, ok := c.queues[name]
	if !ok {
		q = make(chan delivery, queueSize)
		c.queues[name] = q
		go c.dispatch(q)
	}
	c.mu.Unlock()

	select {
	case q <- delivery{evt: evt, handlers: handlers}:
		return nil
	default:
		c.log.Warn("event dropped, dispatch queue full", "event", string(name))
		return nil
	}
}

// dispatch drains one name's queue in FIFO order, sleeping the
// simulated latency before each delivery.
func (c *Channel) dispatch(q chan delivery) {
	for {
		select {
		case <-c.done:
			return
		case d := <-q:
			if !c.sleep(c.latency()) {
				return
			}
			for _, sub := range d.handlers {
				sub.handler(d.evt)
			}
		}
	}
}

// sleep waits for dur unless the channel shuts down first. In-flight
// deliveries are dropped on shutdown.
func (c *Channel) sleep(dur time.Duration) bool {
	if dur <= 0 {
		return true
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-c.done:
		return false
	case <-t.C:
		return true
	}
}

func (c *Channel) latency() time.Duration {
	if c.latencyMax <= c.latencyMin {
		return c.latencyMin
	}
	return c.latencyMin + rand.N(c.latencyMax-c.latencyMin)
}

// Shutdown clears all registrations and stops dispatching. The channel
// is not reusable afterwards; Publish returns ErrChannelClosed.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.subs = make(map[Name][]*Subscription)
	close(c.done)
}
