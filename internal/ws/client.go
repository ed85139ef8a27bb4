package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/internal/session"
	"github.com/brainplay/roomsync/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 30 * time.Second

	// Maximum command size allowed from peer
	maxMessageSize = 4096
)

// Client bridges one WebSocket connection to its session controller:
// commands flow in through readPump, view updates flow out through
// writePump.
type Client struct {
	participant room.Participant
	conn        *websocket.Conn
	ctrl        *session.Controller
	log         *logger.Logger

	mu              sync.Mutex
	lastMessageTime time.Time
}

// NewClient creates a new client instance
func NewClient(
	participant room.Participant,
	conn *websocket.Conn,
	ctrl *session.Controller,
	log *logger.Logger,
) *Client {
	return &Client{
		participant: participant,
		conn:        conn,
		ctrl:        ctrl,
		log:         log.With("participant_id", participant.ID),
	}
}

// readPump pumps commands from the WebSocket connection to the session
// controller. The application runs readPump in a per-connection
// goroutine.
func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				c.log.Debug("client disconnected normally")
			} else if ctx.Err() == nil {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(ctx, "malformed command")
			continue
		}

		if err := c.dispatch(msg); err != nil {
			c.sendError(ctx, err.Error())
		}
	}
}

// dispatch routes one parsed command to the controller.
func (c *Client) dispatch(msg ClientMessage) error {
	switch msg.Type {
	case TypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return err
		}
		return c.ctrl.CreateRoom(room.Kind(data.Kind))

	case TypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return err
		}
		return c.ctrl.JoinRoom(data.RoomID)

	case TypeLeaveRoom:
		return c.ctrl.LeaveRoom()

	case TypeSendMessage:
		var data SendMessageData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return err
		}
		if !c.canSendMessage() {
			c.log.Debug("message rate limited")
			return nil
		}
		return c.ctrl.SendMessage(data.Body, data.Kind, data.RecipientID)

	case TypeStartActivity:
		return c.ctrl.StartActivity()

	case TypeFinishActivity:
		return c.ctrl.FinishActivity()

	default:
		c.log.Debug("unknown command type", "type", msg.Type)
		return nil
	}
}

// writePump pumps controller updates to the WebSocket connection. The
// application runs writePump in a per-connection goroutine.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	if err := c.writeFrame(ctx, NewConnected(c.participant)); err != nil {
		return
	}

	for {
		select {
		case update := <-c.ctrl.Updates():
			if err := c.writeFrame(ctx, updateFrame(update)); err != nil {
				c.log.Error("failed to write update", "error", err)
				return
			}

		case err := <-c.ctrl.Errors():
			if werr := c.writeFrame(ctx, NewErrorFrame(err.Error())); werr != nil {
				c.log.Error("failed to write error frame", "error", werr)
				return
			}

		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				c.log.Warn("failed to send ping", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func updateFrame(u session.Update) ServerMessage {
	switch u.Kind {
	case session.UpdateRoom:
		return NewRoomState(*u.Room)
	case session.UpdateMessage:
		return NewMessageFrame(*u.Message)
	default:
		return NewRoomLeft()
	}
}

// writeFrame writes a frame to the WebSocket connection
func (c *Client) writeFrame(ctx context.Context, frame ServerMessage) error {
	data, err := frame.ToJSON()
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

func (c *Client) sendError(ctx context.Context, message string) {
	if err := c.writeFrame(ctx, NewErrorFrame(message)); err != nil {
		c.log.Warn("failed to send error frame", "error", err)
	}
}

// canSendMessage checks rate limiting (max 1 message per second)
func (c *Client) canSendMessage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastMessageTime) < time.Second {
		return false
	}

	c.lastMessageTime = now
	return true
}
