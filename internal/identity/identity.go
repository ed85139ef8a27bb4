package identity

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brainplay/roomsync/internal/room"
)

// Claims carried by a guest session token.
type Claims struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	AvatarSpec    string    `json:"avatar_spec"`
	jwt.RegisteredClaims
}

type Service struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewService creates a new guest identity service
func NewService(secretKey string, tokenDuration time.Duration) *Service {
	return &Service{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// NewGuest mints a fresh anonymous participant with a generated
// display name and avatar spec.
func (s *Service) NewGuest() room.Participant {
	return room.Participant{
		ID:          uuid.New().String(),
		DisplayName: randomDisplayName(),
		AvatarSpec:  randomAvatarSpec(),
	}
}

// GenerateToken creates a session token for a participant
func (s *Service) GenerateToken(p room.Participant) (string, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return "", fmt.Errorf("invalid participant ID: %w", err)
	}

	claims := Claims{
		ParticipantID: id,
		DisplayName:   p.DisplayName,
		AvatarSpec:    p.AvatarSpec,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates and parses a session token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	if claims.ParticipantID == uuid.Nil {
		return nil, fmt.Errorf("invalid session token: missing participant_id")
	}

	if claims.DisplayName == "" {
		return nil, fmt.Errorf("invalid session token: missing display_name")
	}

	return claims, nil
}

// Participant rebuilds the participant described by validated claims.
func (c *Claims) Participant() room.Participant {
	return room.Participant{
		ID:          c.ParticipantID.String(),
		DisplayName: c.DisplayName,
		AvatarSpec:  c.AvatarSpec,
	}
}

var nameAdjectives = []string{
	"brave", "bright", "calm", "clever", "curious", "eager",
	"gentle", "happy", "keen", "lively", "lucky", "merry",
	"nimble", "quick", "quiet", "sunny", "swift", "witty",
}

var nameAnimals = []string{
	"badger", "beaver", "falcon", "fox", "hare", "hedgehog",
	"heron", "lynx", "marten", "otter", "owl", "puffin",
	"raven", "seal", "squirrel", "stoat", "swan", "wren",
}

var avatarPalettes = []string{
	"coral", "indigo", "jade", "amber", "slate", "rose", "teal", "plum",
}

func randomDisplayName() string {
	adj := nameAdjectives[rand.IntN(len(nameAdjectives))]
	animal := nameAnimals[rand.IntN(len(nameAnimals))]
	return fmt.Sprintf("%s-%s-%02d", adj, animal, rand.IntN(100))
}

func randomAvatarSpec() string {
	palette := avatarPalettes[rand.IntN(len(avatarPalettes))]
	return fmt.Sprintf("%s/%s:v1", nameAnimals[rand.IntN(len(nameAnimals))], palette)
}
