package httpserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brainplay/roomsync/internal/identity"
	"github.com/brainplay/roomsync/pkg/httputil"
)

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))

	authed := identity.Middleware(s.identity, s.log)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public: mint a guest identity and session token
		r.Post("/guest", httputil.Handler(s.handleCreateGuest, s.log))

		// Protected profile routes
		r.Route("/profiles", func(r chi.Router) {
			r.Use(authed)

			r.Get("/", httputil.Handler(s.handleListProfiles, s.log))
			r.Post("/", httputil.Handler(s.handleCreateProfile, s.log))
			r.Get("/{id}", httputil.Handler(s.handleGetProfile, s.log))
			r.Put("/{id}", httputil.Handler(s.handleUpdateProfile, s.log))
			r.Delete("/{id}", httputil.Handler(s.handleDeleteProfile, s.log))
		})

		// Protected avatar routes
		r.Route("/avatar", func(r chi.Router) {
			r.Use(authed)

			r.Post("/", httputil.Handler(s.handleUploadAvatar, s.log))
			r.Delete("/", httputil.Handler(s.handleDeleteAvatar, s.log))
			r.Get("/{id}", httputil.Handler(s.handleGetAvatarURL, s.log))
			r.Get("/{id}/image", httputil.Handler(s.handleDownloadAvatar, s.log))
		})

		// Protected lobby routes
		r.Route("/lobby", func(r chi.Router) {
			r.Use(authed)

			r.Get("/", httputil.Handler(s.handleListRooms, s.log))
			r.Get("/{code}", httputil.Handler(s.handleGetRoom, s.log))
		})
	})

	// WebSocket endpoint does its own token validation so browsers can
	// pass the token as a query parameter.
	r.Route("/ws", s.wsHandler.RegisterRoutes)

	r.Get("/health", httputil.Handler(s.handleHealth, s.log))

	return r
}
