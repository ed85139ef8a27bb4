// Package profile is the identity-provider boundary: it stores
// participant records for registered users and hands the coordination
// core a Participant. The core never authenticates this data.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brainplay/roomsync/internal/room"
)

// ErrNotFound reports a missing profile.
var ErrNotFound = errors.New("profile not found")

// Profile is one registered user's record.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarSpec  string    `json:"avatar_spec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participant converts a profile into the identity the coordination
// layer works with.
func (p *Profile) Participant() room.Participant {
	return room.Participant{
		ID:          p.ID.String(),
		DisplayName: p.DisplayName,
		AvatarSpec:  p.AvatarSpec,
	}
}

// Store defines what storage operations profiles have.
type Store interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}
