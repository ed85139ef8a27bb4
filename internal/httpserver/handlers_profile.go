package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/pkg/httputil"
)

const maxDisplayNameLen = 32

// Handles creating a new profile
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) error {
	req := new(CreateProfileRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if err := validateDisplayName(req.DisplayName); err != nil {
		return err
	}

	p := &profile.Profile{
		DisplayName: strings.TrimSpace(req.DisplayName),
		AvatarSpec:  req.AvatarSpec,
	}

	if err := s.profiles.CreateProfile(r.Context(), p); err != nil {
		return httputil.Internal(err)
	}

	s.log.Info(
		"Profile created",
		"profile_id", p.ID,
		"display_name", p.DisplayName,
	)

	return httputil.RespondJSON(w, http.StatusCreated, profileResponse(p))
}

// Handles getting a profile by its ID
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	p, err := s.profiles.GetProfileByID(r.Context(), id)
	if err != nil {
		return profileStoreErr(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, profileResponse(p))
}

// Handles listing profiles with pagination
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) error {
	limit := 10
	offset := 0

	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			limit = parsed
			// To prevent abuse
			if limit > 100 {
				limit = 100
			}
		}
	}

	if q := r.URL.Query().Get("offset"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	profiles, err := s.profiles.ListProfiles(r.Context(), limit, offset)
	if err != nil {
		return httputil.Internal(err)
	}

	responses := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		responses = append(responses, profileResponse(p))
	}

	return httputil.RespondJSON(w, http.StatusOK, responses)
}

// Handles updating a profile
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	req := new(UpdateProfileRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if err := validateDisplayName(req.DisplayName); err != nil {
		return err
	}

	p, err := s.profiles.GetProfileByID(r.Context(), id)
	if err != nil {
		return profileStoreErr(err)
	}

	p.DisplayName = strings.TrimSpace(req.DisplayName)
	p.AvatarSpec = req.AvatarSpec

	if err := s.profiles.UpdateProfile(r.Context(), p); err != nil {
		return profileStoreErr(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, profileResponse(p))
}

// Handles deleting a profile
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	if err := s.profiles.DeleteProfile(r.Context(), id); err != nil {
		return profileStoreErr(err)
	}

	s.log.Info("Profile deleted", "profile_id", id)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func validateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return httputil.BadRequest("display_name is required")
	}
	if len(name) > maxDisplayNameLen {
		return httputil.BadRequest("display_name is too long")
	}
	return nil
}
