// Package httpserver carries the REST surface around the realtime
// layer: guest identities, profiles, avatars and the room lobby.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brainplay/roomsync/internal/avatar"
	"github.com/brainplay/roomsync/internal/identity"
	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/internal/registry"
	"github.com/brainplay/roomsync/internal/ws"
	"github.com/brainplay/roomsync/pkg/logger"
)

type Server struct {
	profiles   profile.Store
	avatars    *avatar.MinIOStore
	identity   *identity.Service
	registry   *registry.Registry
	wsHandler  *ws.Handler
	log        *logger.Logger
	httpServer *http.Server
}

func New(
	addr string,
	profiles profile.Store,
	avatars *avatar.MinIOStore,
	identitySvc *identity.Service,
	reg *registry.Registry,
	wsHandler *ws.Handler,
	log *logger.Logger,
) *Server {
	s := &Server{
		profiles:  profiles,
		avatars:   avatars,
		identity:  identitySvc,
		registry:  reg,
		wsHandler: wsHandler,
		log:       log,
	}

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.log.Info(
		"Starting HTTP server",
		"addr", s.httpServer.Addr,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(
		"Server shutting down gracefully...",
		"addr", s.httpServer.Addr,
	)
	return s.httpServer.Shutdown(ctx)
}
