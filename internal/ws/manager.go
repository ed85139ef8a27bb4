// Package ws exposes the room coordination layer to browsers over
// WebSocket: each connection gets its own session controller, commands
// come in as JSON envelopes and view changes go out as server frames.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/internal/session"
	"github.com/brainplay/roomsync/pkg/logger"
)

// Manager owns all live WebSocket connections.
type Manager struct {
	ch         *event.Channel
	cmdTimeout time.Duration
	log        *logger.Logger

	mu      sync.Mutex
	clients map[*Client]bool
}

func NewManager(ch *event.Channel, cmdTimeout time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		ch:         ch,
		cmdTimeout: cmdTimeout,
		log:        log,
		clients:    make(map[*Client]bool),
	}
}

// ServeWS upgrades the request and runs the connection's pumps until it
// closes. The participant leaves any room it was in when the connection
// drops.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, participant room.Participant) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		m.log.Warn("websocket upgrade failed",
			"participant_id", participant.ID,
			"error", err,
		)
		return
	}

	ctrl := session.New(m.ch, participant, m.cmdTimeout, m.log)
	client := NewClient(participant, conn, ctrl, m.log)

	m.add(client)
	defer func() {
		m.remove(client)
		if err := ctrl.LeaveRoom(); err != nil {
			m.log.Warn("leave on disconnect failed",
				"participant_id", participant.ID,
				"error", err,
			)
		}
		ctrl.Close()
	}()

	m.log.Info("websocket connection established",
		"participant_id", participant.ID,
		"display_name", participant.DisplayName,
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go client.writePump(ctx, cancel)
	client.readPump(ctx, cancel)
}

func (m *Manager) add(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c] = true
}

func (m *Manager) remove(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, c)
}

// ClientCount reports the number of live connections.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Shutdown closes every live connection.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	m.log.Info("websocket manager stopped", "closed_connections", len(clients))
}
