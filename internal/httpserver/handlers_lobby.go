package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/httputil"
)

// Handles listing all live rooms for the lobby screen
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) error {
	rooms := s.registry.ListRooms()

	responses := make([]RoomResponse, 0, len(rooms))
	for _, snap := range rooms {
		responses = append(responses, roomResponse(snap))
	}

	return httputil.RespondJSON(w, http.StatusOK, responses)
}

// Handles liveness, with a connection gauge for quick inspection
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return httputil.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Rooms:       len(s.registry.ListRooms()),
		Connections: s.wsHandler.ClientCount(),
	})
}

// Handles looking up one room by its code
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) error {
	code := room.NormalizeCode(chi.URLParam(r, "code"))
	if !room.ValidCode(code) {
		return httputil.BadRequest("Invalid room code")
	}

	snap, ok := s.registry.GetRoom(code)
	if !ok {
		return httputil.NotFound("Room not found")
	}

	return httputil.RespondJSON(w, http.StatusOK, roomResponse(snap))
}
