package httpserver

import (
	"errors"
	"net/http"

	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/pkg/httputil"
)

// Handles minting a guest identity with a session token
func (s *Server) handleCreateGuest(w http.ResponseWriter, r *http.Request) error {
	guest := s.identity.NewGuest()

	// Persist the generated profile so the name survives reconnects.
	p := &profile.Profile{
		DisplayName: guest.DisplayName,
		AvatarSpec:  guest.AvatarSpec,
	}
	if err := s.profiles.CreateProfile(r.Context(), p); err != nil {
		return httputil.Internal(err)
	}

	// The token identifies the participant by the stored profile ID.
	guest.ID = p.ID.String()
	token, err := s.identity.GenerateToken(guest)
	if err != nil {
		return httputil.Internal(err)
	}

	s.log.Info(
		"Guest created",
		"participant_id", guest.ID,
		"display_name", guest.DisplayName,
	)

	return httputil.RespondJSON(w, http.StatusCreated, GuestResponse{
		ID:          guest.ID,
		DisplayName: guest.DisplayName,
		AvatarSpec:  guest.AvatarSpec,
		Token:       token,
	})
}

// profileStoreErr maps store errors to HTTP errors
func profileStoreErr(err error) error {
	if errors.Is(err, profile.ErrNotFound) {
		return httputil.NotFound("Profile not found")
	}
	return httputil.Internal(err)
}
