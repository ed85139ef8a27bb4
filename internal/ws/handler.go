package ws

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brainplay/roomsync/internal/identity"
	"github.com/brainplay/roomsync/pkg/logger"
)

type Handler struct {
	manager  *Manager
	identity *identity.Service
	log      *logger.Logger
}

func NewHandler(manager *Manager, identitySvc *identity.Service, log *logger.Logger) *Handler {
	return &Handler{
		manager:  manager,
		identity: identitySvc,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleConnection)
}

// ClientCount reports live connections, for health reporting.
func (h *Handler) ClientCount() int {
	return h.manager.ClientCount()
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	// Try to get token from Authorization header first
	token := r.Header.Get("Authorization")
	if token != "" {
		token = strings.TrimPrefix(token, "Bearer ")
	}

	// If not in header, try query param (browsers can't set headers on
	// WebSocket upgrades)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if token == "" {
		http.Error(w, "Missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := h.identity.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	h.log.Info("establishing websocket connection",
		"participant_id", claims.ParticipantID,
		"display_name", claims.DisplayName,
	)

	h.manager.ServeWS(w, r, claims.Participant())
}
