package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainplay/roomsync/internal/avatar"
	"github.com/brainplay/roomsync/internal/config"
	"github.com/brainplay/roomsync/internal/event"
	"github.com/brainplay/roomsync/internal/httpserver"
	"github.com/brainplay/roomsync/internal/identity"
	"github.com/brainplay/roomsync/internal/profile"
	"github.com/brainplay/roomsync/internal/registry"
	"github.com/brainplay/roomsync/internal/room"
	"github.com/brainplay/roomsync/internal/ws"
	"github.com/brainplay/roomsync/pkg/logger"
)

func main() {
	// Initializing and validating config
	cm, err := config.NewConfigManager("internal/config/config.yaml")
	if err != nil {
		fmt.Printf("Error getting config file: %v", err)
		os.Exit(1)
	}
	c := cm.GetConfig()
	if err := c.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Initializing logger
	log, err := logger.New(logger.Config{
		Env:       c.GeneralParams.Env,
		AddSource: false,
	})
	if err != nil {
		fmt.Printf("Failed to create logger: %v", err)
		os.Exit(1)
	}

	log.Info(
		"Config loaded successfully!",
		"env", c.GeneralParams.Env,
		"http_server_port", c.HttpServerParams.Port,
		"http_server_address", c.HttpServerParams.Address,
		"database", c.MainDBParams.Name,
	)

	// Global context with cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Creating database connection and init Postgres
	pool, err := profile.CreatePostgresPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		log.Error(
			"Failed to create postgres pool",
			"error", err,
			"db", c.MainDBParams.Name,
		)
		os.Exit(1)
	}
	defer pool.Close()

	log.Info(
		"Database connection established",
		"db", c.MainDBParams.Name,
	)

	profileStore := profile.NewPostgresStore(pool)

	// Object storage for custom avatars
	minioClient, err := avatar.NewClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.UseSSL,
	)
	if err != nil {
		log.Error("Failed to create minio client", "error", err)
		os.Exit(1)
	}

	if err := avatar.EnsureBucket(ctx, minioClient, c.S3Params.BucketName); err != nil {
		log.Error("Failed to ensure bucket", "error", err)
		os.Exit(1)
	}

	avatarStore := avatar.NewMinIOStore(minioClient, c.S3Params.BucketName)

	// Guest identity service
	identityService := identity.NewService(
		c.GeneralParams.SecretKey,
		c.GeneralParams.TokenTTL,
	)

	// The event channel and the room registry behind it
	channel := event.NewChannel(
		c.RoomParams.LatencyMin,
		c.RoomParams.LatencyMax,
		log.Logger,
	)

	reg := registry.New(channel, registry.Config{
		Capacities: map[room.Kind]int{
			room.KindStudy: c.RoomParams.StudyCapacity,
			room.KindGame:  c.RoomParams.GameCapacity,
		},
		MaxMessageBody: c.RoomParams.MaxMessageBody,
	}, log)
	reg.Start()

	// WebSocket layer
	wsManager := ws.NewManager(channel, c.RoomParams.CommandTimeout, log)
	wsHandler := ws.NewHandler(wsManager, identityService, log)

	// Creates HTTP server
	server := httpserver.New(
		c.HttpServerParams.GetAddress(),
		profileStore,
		avatarStore,
		identityService,
		reg,
		wsHandler,
		log,
	)

	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		log.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		log.Info("Shutting down HTTP server...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}

		wsManager.Shutdown()
		reg.Stop()
		channel.Shutdown()
	}
}
