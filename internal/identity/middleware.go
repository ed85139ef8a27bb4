package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/pkg/httputil"
	"github.com/brainplay/roomsync/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "identity_claims"

// Middleware authenticates requests with a Bearer session token. The
// token may also ride the "token" query parameter so websocket upgrades
// from browsers can authenticate without custom headers.
func Middleware(svc *Service, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				httputil.RespondError(w, r, httputil.Unauthorized("authorization required"), log)
				return
			}

			claims, err := svc.ValidateToken(tokenString)
			if err != nil {
				httputil.RespondError(w, r, httputil.Unauthorized("invalid token"), log)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// FromContext extracts validated claims placed by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// ParticipantFromContext is a convenience for handlers that only need
// the participant.
func ParticipantFromContext(ctx context.Context) (room.Participant, bool) {
	claims, ok := FromContext(ctx)
	if !ok {
		return room.Participant{}, false
	}
	return claims.Participant(), true
}
