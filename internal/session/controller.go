// Package session holds the participant-facing façade over the event
// channel: it turns intent (create, join, leave, speak) into command
// publishes and maintains a participant-local materialized view of room
// state and message history from the registry's events.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/logger"
)

var (
	// ErrCommandTimeout reports a command whose completion event never
	// arrived within the configured window.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrCommandPending rejects a new room-state command while an
	// earlier one is still awaiting its completion event.
	ErrCommandPending = errors.New("another command is in flight")
)

// errStreamSize bounds buffered, not-yet-consumed controller errors.
const errStreamSize = 16

// updateStreamSize bounds buffered view updates awaiting a transport.
const updateStreamSize = 64

// Update kinds delivered on Updates().
const (
	UpdateRoom    = "room"    // the room snapshot changed
	UpdateLeft    = "left"    // the participant is no longer in a room
	UpdateMessage = "message" // a message was appended to history
)

// Update is one change to the participant-local view, for transports
// that push state to a remote client.
type Update struct {
	Kind    string
	Room    *room.Snapshot
	Message *room.Message
}

// pendingCmd tracks one in-flight room-state command and its deadline.
type pendingCmd struct {
	op    event.Name
	timer *time.Timer
}

// Controller is one participant's session. All commands are
// fire-and-forget: completion is observable only through the view
// converging or an error on Errors().
type Controller struct {
	ch      *event.Channel
	self    room.Participant
	router  Router
	timeout time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	current *room.Snapshot
	history []room.Message
	pending *pendingCmd
	subs    []*event.Subscription
	errs    chan error
	updates chan Update
}

// New creates a controller for one participant and subscribes it to the
// registry's event streams. timeout bounds how long create/join and
// status transitions may stay unresolved before ErrCommandTimeout is
// reported.
func New(ch *event.Channel, self room.Participant, timeout time.Duration, log *logger.Logger) *Controller {
	c := &Controller{
		ch:      ch,
		self:    self,
		timeout: timeout,
		log:     log.With("participant_id", self.ID),
		errs:    make(chan error, errStreamSize),
		updates: make(chan Update, updateStreamSize),
	}

	c.subs = []*event.Subscription{
		ch.Subscribe(event.NameRoomCreated, c.onRoomCreated),
		ch.Subscribe(event.NameRoomJoined, c.onRoomJoined),
		ch.Subscribe(event.NameRoomFull, c.onRoomFull),
		ch.Subscribe(event.NameRoomNotFound, c.onRoomNotFound),
		ch.Subscribe(event.NamePlayerJoined, c.onPlayerJoined),
		ch.Subscribe(event.NamePlayerLeft, c.onPlayerLeft),
		ch.Subscribe(event.NameNewMessage, c.onNewMessage),
		ch.Subscribe(event.NameActivityStarted, c.onActivityStarted),
		ch.Subscribe(event.NameActivityFinished, c.onActivityFinished),
		ch.Subscribe(event.NameOpRejected, c.onOpRejected),
	}

	return c
}

// Close detaches the controller from the channel. It does not leave the
// room; call LeaveRoom first if the participant is quitting cleanly.
func (c *Controller) Close() {
	for _, s := range c.subs {
		c.ch.Unsubscribe(s)
	}
	c.subs = nil

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvePendingLocked()
}

// Self returns the participant this controller speaks for.
func (c *Controller) Self() room.Participant {
	return c.self
}

// Errors is the controller's error stream: capacity failures, unknown
// rooms, rejections and timeouts arrive here for the UI to render.
func (c *Controller) Errors() <-chan error {
	return c.errs
}

// Updates is the controller's view-change stream for push transports.
// A consumer that falls behind loses updates; the next room snapshot
// resynchronizes it.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// CurrentRoom returns a copy of the local room view, if any.
func (c *Controller) CurrentRoom() (room.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return room.Snapshot{}, false
	}
	snap := *c.current
	snap.Members = append([]room.Participant(nil), c.current.Members...)
	return snap, true
}

// History returns a copy of the local message history.
func (c *Controller) History() []room.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]room.Message(nil), c.history...)
}

// CreateRoom asks the registry for a new room of the given kind. The
// local view updates only when room-created is delivered.
func (c *Controller) CreateRoom(kind room.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return room.ErrAlreadyInRoom
	}
	if c.pending != nil {
		return ErrCommandPending
	}

	if err := c.ch.Publish(event.CreateRoom{Creator: c.self, Kind: kind}); err != nil {
		return err
	}
	c.armPendingLocked(event.NameCreateRoom)
	return nil
}

// JoinRoom asks the registry to add this participant to roomID. While a
// current room exists the call is rejected with ErrAlreadyInRoom; leave
// first.
func (c *Controller) JoinRoom(roomID string) error {
	code := room.NormalizeCode(roomID)
	if !room.ValidCode(code) {
		return fmt.Errorf("%q: %w", roomID, room.ErrRoomNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return room.ErrAlreadyInRoom
	}
	if c.pending != nil {
		return ErrCommandPending
	}

	if err := c.ch.Publish(event.JoinRoom{RoomID: code, Participant: c.self}); err != nil {
		return err
	}
	c.armPendingLocked(event.NameJoinRoom)
	return nil
}

// LeaveRoom issues the leave command and clears the local view
// immediately, without waiting for the event. The optimistic clear
// keeps the UI responsive on a slow channel; the next event round trip
// reconciles any divergence. No-op when there is no current room.
func (c *Controller) LeaveRoom() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	roomID := c.current.ID

	c.current = nil
	c.history = nil
	c.resolvePendingLocked()
	c.notifyRoomLocked()

	return c.ch.Publish(event.LeaveRoom{RoomID: roomID, ParticipantID: c.self.ID})
}

// SendMessage publishes a message to the current room. kind defaults to
// text; a non-empty recipientID makes the message directed. There is no
// local echo for broadcasts — the sender observes its own message when
// the channel delivers it back. Directed messages are the exception:
// the sender's copy is appended here, since delivery goes only to the
// recipient. No-op when there is no current room.
func (c *Controller) SendMessage(body, kind, recipientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	if kind == "" {
		kind = room.MessageKindText
	}

	msg := room.Message{
		ID:          uuid.New(),
		Sender:      c.self,
		Body:        body,
		Kind:        kind,
		RecipientID: recipientID,
	}

	if err := c.ch.Publish(event.SendMessage{RoomID: c.current.ID, Message: msg}); err != nil {
		return err
	}

	if c.router.RetainForSender(msg) {
		retained := msg
		retained.Timestamp = time.Now()
		c.history = append(c.history, retained)
		c.notifyMessage(retained)
	}
	return nil
}

// StartActivity asks the registry to move the current room from open to
// active. The registry enforces that only the host may do this.
func (c *Controller) StartActivity() error {
	return c.transition(event.NameStartActivity)
}

// FinishActivity asks the registry to close the current room.
func (c *Controller) FinishActivity() error {
	return c.transition(event.NameFinishActivity)
}

func (c *Controller) transition(op event.Name) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return room.ErrRoomNotFound
	}
	if c.pending != nil {
		return ErrCommandPending
	}

	var cmd event.Event
	if op == event.NameStartActivity {
		cmd = event.StartActivity{RoomID: c.current.ID, ParticipantID: c.self.ID}
	} else {
		cmd = event.FinishActivity{RoomID: c.current.ID, ParticipantID: c.self.ID}
	}

	if err := c.ch.Publish(cmd); err != nil {
		return err
	}
	c.armPendingLocked(op)
	return nil
}

func (c *Controller) armPendingLocked(op event.Name) {
	if c.timeout <= 0 {
		return
	}
	p := &pendingCmd{op: op}
	p.timer = time.AfterFunc(c.timeout, func() { c.expire(p) })
	c.pending = p
}

func (c *Controller) expire(p *pendingCmd) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	c.reportErr(fmt.Errorf("%s: %w", p.op, ErrCommandTimeout))
}

// resolvePendingLocked clears the in-flight command, if any. Caller
// holds c.mu.
func (c *Controller) resolvePendingLocked() {
	if c.pending == nil {
		return
	}
	if c.pending.timer != nil {
		c.pending.timer.Stop()
	}
	c.pending = nil
}

func (c *Controller) reportErr(err error) {
	select {
	case c.errs <- err:
	default:
		c.log.Warn("controller error stream full, dropping", "error", err)
	}
}

func (c *Controller) notify(u Update) {
	select {
	case c.updates <- u:
	default:
		c.log.Warn("controller update stream full, dropping", "kind", u.Kind)
	}
}

// notifyRoomLocked pushes the current view snapshot, or an UpdateLeft
// when there is none. Caller holds c.mu.
func (c *Controller) notifyRoomLocked() {
	if c.current == nil {
		c.notify(Update{Kind: UpdateLeft})
		return
	}
	snap := *c.current
	snap.Members = append([]room.Participant(nil), c.current.Members...)
	c.notify(Update{Kind: UpdateRoom, Room: &snap})
}

func (c *Controller) notifyMessage(msg room.Message) {
	c.notify(Update{Kind: UpdateMessage, Message: &msg})
}

func (c *Controller) onRoomCreated(evt event.Event) {
	e, ok := evt.(event.RoomCreated)
	if !ok || e.CreatorID != c.self.ID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resolvePendingLocked()
	snap := e.Room
	c.current = &snap
	c.history = nil
	c.notifyRoomLocked()
}

func (c *Controller) onRoomJoined(evt event.Event) {
	e, ok := evt.(event.RoomJoined)
	if !ok || e.ParticipantID != c.self.ID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resolvePendingLocked()
	snap := e.Room
	if c.current != nil && c.current.ID == snap.ID {
		// Re-join ack for a room we already track: converge only.
		c.current = &snap
		c.notifyRoomLocked()
		return
	}
	c.current = &snap
	// Chat is live-only: no history replay for late joiners.
	c.history = nil
	c.notifyRoomLocked()
}

func (c *Controller) onRoomFull(evt event.Event) {
	e, ok := evt.(event.RoomFull)
	if !ok || e.ParticipantID != c.self.ID {
		return
	}

	c.mu.Lock()
	c.resolvePendingLocked()
	c.mu.Unlock()

	c.reportErr(fmt.Errorf("join %s: %w", e.RoomID, room.ErrRoomFull))
}

func (c *Controller) onRoomNotFound(evt event.Event) {
	e, ok := evt.(event.RoomNotFound)
	if !ok || e.ParticipantID != c.self.ID {
		return
	}

	c.mu.Lock()
	c.resolvePendingLocked()
	c.mu.Unlock()

	c.reportErr(fmt.Errorf("%s %s: %w", e.Op, e.RoomID, room.ErrRoomNotFound))
}

func (c *Controller) onOpRejected(evt event.Event) {
	e, ok := evt.(event.OpRejected)
	if !ok || e.ParticipantID != c.self.ID {
		return
	}

	c.mu.Lock()
	c.resolvePendingLocked()
	c.mu.Unlock()

	c.reportErr(fmt.Errorf("%s %s rejected: %s", e.Op, e.RoomID, e.Reason))
}

func (c *Controller) onPlayerJoined(evt event.Event) {
	e, ok := evt.(event.PlayerJoined)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != e.Room.ID {
		return
	}

	snap := e.Room
	c.current = &snap
	c.notifyRoomLocked()

	if e.Participant.ID != c.self.ID {
		c.appendSystemLocked(fmt.Sprintf("%s joined the room", e.Participant.DisplayName))
	}
}

func (c *Controller) onPlayerLeft(evt event.Event) {
	e, ok := evt.(event.PlayerLeft)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != e.Room.ID {
		return
	}

	left := e.ParticipantID
	for _, m := range c.current.Members {
		if m.ID == left {
			left = m.DisplayName
			break
		}
	}

	snap := e.Room
	c.current = &snap
	c.notifyRoomLocked()
	c.appendSystemLocked(fmt.Sprintf("%s left the room", left))
}

func (c *Controller) onNewMessage(evt event.Event) {
	e, ok := evt.(event.NewMessage)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != e.RoomID {
		return
	}
	if !c.router.ShouldAppend(e.Message, c.self.ID) {
		return
	}
	c.history = append(c.history, e.Message)
	c.notifyMessage(e.Message)
}

func (c *Controller) onActivityStarted(evt event.Event) {
	e, ok := evt.(event.ActivityStarted)
	if !ok {
		return
	}
	c.updateRoom(e.Room)
}

func (c *Controller) onActivityFinished(evt event.Event) {
	e, ok := evt.(event.ActivityFinished)
	if !ok {
		return
	}
	c.updateRoom(e.Room)
}

func (c *Controller) updateRoom(snap room.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != snap.ID {
		return
	}
	if c.pending != nil &&
		(c.pending.op == event.NameStartActivity || c.pending.op == event.NameFinishActivity) {
		c.resolvePendingLocked()
	}
	c.current = &snap
	c.notifyRoomLocked()
}

// appendSystemLocked synthesizes a system message announcing a
// membership change. Caller holds c.mu.
func (c *Controller) appendSystemLocked(body string) {
	msg := room.Message{
		ID:        uuid.New(),
		Sender:    room.System,
		Body:      body,
		Kind:      room.MessageKindSystem,
		Timestamp: time.Now(),
	}
	c.history = append(c.history, msg)
	c.notifyMessage(msg)
}
