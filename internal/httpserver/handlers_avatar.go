package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/brainplay/roomsync/internal/avatar"
	"github.com/brainplay/roomsync/internal/identity"
	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/pkg/httputil"
)

const presignedURLExpiry = 15 * time.Minute

// Handles uploading a custom avatar image for the caller
func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) error {
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		return httputil.Unauthorized("authorization required")
	}

	if err := r.ParseMultipartForm(avatar.MaxImageSize); err != nil {
		return httputil.BadRequest("Invalid multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return httputil.BadRequest("image file is required")
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		return httputil.BadRequest("format is required")
	}

	objectName, err := s.avatars.Upload(
		r.Context(),
		claims.ParticipantID,
		file,
		header.Size,
		format,
	)
	if err != nil {
		if errors.Is(err, avatar.ErrUnsupportedFormat) {
			return httputil.BadRequest("Unsupported image format")
		}
		return httputil.Internal(err)
	}

	// Point the profile's avatar spec at the uploaded image.
	p, err := s.profiles.GetProfileByID(r.Context(), claims.ParticipantID)
	if err == nil {
		p.AvatarSpec = "custom:" + objectName
		if err := s.profiles.UpdateProfile(r.Context(), p); err != nil {
			s.log.Warn("Failed to update avatar spec", "profile_id", p.ID, "error", err)
		}
	} else if !errors.Is(err, profile.ErrNotFound) {
		return httputil.Internal(err)
	}

	s.log.Info(
		"Avatar uploaded",
		"participant_id", claims.ParticipantID,
		"object", objectName,
	)

	return httputil.RespondJSON(w, http.StatusCreated, AvatarResponse{
		ObjectName: objectName,
	})
}

// Handles resolving a participant's avatar to a presigned download URL
func (s *Server) handleGetAvatarURL(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	p, err := s.profiles.GetProfileByID(r.Context(), id)
	if err != nil {
		return profileStoreErr(err)
	}

	objectName, ok := customAvatarObject(p.AvatarSpec)
	if !ok {
		return httputil.NotFound("Participant has no custom avatar")
	}

	url, err := s.avatars.PresignedURL(r.Context(), objectName, presignedURLExpiry)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, AvatarURLResponse{
		URL:       url,
		ExpiresIn: int(presignedURLExpiry.Seconds()),
	})
}

// Handles removing the caller's custom avatar
func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) error {
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		return httputil.Unauthorized("authorization required")
	}

	p, err := s.profiles.GetProfileByID(r.Context(), claims.ParticipantID)
	if err != nil {
		return profileStoreErr(err)
	}

	objectName, ok := customAvatarObject(p.AvatarSpec)
	if !ok {
		return httputil.NotFound("No custom avatar to delete")
	}

	if err := s.avatars.Delete(r.Context(), objectName); err != nil {
		return httputil.Internal(err)
	}

	p.AvatarSpec = ""
	if err := s.profiles.UpdateProfile(r.Context(), p); err != nil {
		return profileStoreErr(err)
	}

	s.log.Info(
		"Avatar deleted",
		"participant_id", claims.ParticipantID,
		"object", objectName,
	)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Handles serving a participant's avatar image directly, for clients
// that cannot follow presigned URLs
func (s *Server) handleDownloadAvatar(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	p, err := s.profiles.GetProfileByID(r.Context(), id)
	if err != nil {
		return profileStoreErr(err)
	}

	objectName, ok := customAvatarObject(p.AvatarSpec)
	if !ok {
		return httputil.NotFound("Participant has no custom avatar")
	}

	data, err := s.avatars.Download(r.Context(), objectName)
	if err != nil {
		return httputil.Internal(err)
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

// customAvatarObject extracts the object name from a "custom:" avatar
// spec.
func customAvatarObject(spec string) (string, bool) {
	const prefix = "custom:"
	if len(spec) <= len(prefix) || spec[:len(prefix)] != prefix {
		return "", false
	}
	return spec[len(prefix):], true
}
