package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/internal/room"
)

// GuestResponse carries a freshly minted guest identity
type GuestResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarSpec  string `json:"avatar_spec,omitempty"`
	Token       string `json:"token"`
}

// CreateProfileRequest is the payload for creating a profile
type CreateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarSpec  string `json:"avatar_spec,omitempty"`
}

// UpdateProfileRequest is the payload for updating a profile
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarSpec  string `json:"avatar_spec,omitempty"`
}

// ProfileResponse is the wire shape of a stored profile
type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarSpec  string    `json:"avatar_spec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvatarResponse confirms an avatar upload
type AvatarResponse struct {
	ObjectName string `json:"object_name"`
}

// AvatarURLResponse carries a presigned avatar download URL
type AvatarURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// RoomResponse is the lobby's view of one room
type RoomResponse struct {
	ID       string `json:"id"`
	HostID   string `json:"host_id,omitempty"`
	Members  int    `json:"members"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
	Kind     string `json:"kind"`
}

func profileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarSpec:  p.AvatarSpec,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func roomResponse(snap room.Snapshot) RoomResponse {
	return RoomResponse{
		ID:       snap.ID,
		HostID:   snap.HostID,
		Members:  len(snap.Members),
		Capacity: snap.Capacity,
		Status:   string(snap.Status),
		Kind:     string(snap.Kind),
	}
}
