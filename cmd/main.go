/*
Package main is the entry point for the HM Space server.

It is responsible for loading configuration, initializing the global logging system, wiring
the room catalog, presence store, database and WebSocket hub, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a
smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/connect"
	"hmspace/internal/app/db"
	"hmspace/internal/app/fanout"
	"hmspace/internal/app/groups"
	"hmspace/internal/app/kv"
	"hmspace/internal/app/linkparse"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/app/storage"
	"hmspace/internal/app/user"
	"hmspace/internal/app/videochat"
	"hmspace/internal/configs"
	"hmspace/internal/handler"
	"hmspace/internal/pkg/logx"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("presence_backend", cfg.PresenceBackend).
		Int("video_chat_max_size", cfg.VideoChatMaxSize).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms, err := loadCatalog(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to load room catalog")
	}
	logx.Info("Room catalog loaded", "rooms", len(rooms.IDs()))

	store, users, closeStore, err := openPresence(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open presence store")
	}
	defer closeStore()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	queries := db.New(pool)
	for _, id := range cfg.ModeratorIDs {
		if err := queries.GrantModerator(ctx, id); err != nil {
			logx.Fatal(err, "Failed to grant moderator", "user_id", id)
		}
	}

	noteService := notes.NewService(rooms, queries)

	deps := &handler.AppDeps{
		Config:   cfg,
		Catalog:  rooms,
		Presence: store,
		Notes:    noteService,
		Parser:   linkparse.NewParser(linkparse.DefaultActions()),
	}
	deps.Orchestrator = connect.NewOrchestrator(connect.Deps{
		Catalog:  rooms,
		Presence: store,
		Users:    users,
		Groups:   groups.NewManager(rooms, queries),
		Notes:    noteService,
		Video:    videochat.NewGate(rooms, cfg.VideoChatMaxSize),
	})
	deps.Hub = fanout.NewHub(handler.SessionCallbacks(deps))

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler.Router(ctx, deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("HM Space Server starting", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Closing the hub first removes every connected user from presence before the stores close.
	deps.Hub.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}

// loadCatalog reads the room catalog from S3 when configured, or the embedded document otherwise.
func loadCatalog(ctx context.Context, cfg *configs.AppConfig) (*catalog.Catalog, error) {
	if !cfg.CatalogFromS3() {
		return catalog.Embedded()
	}

	svc, err := storage.NewStorageService(ctx, storage.ServiceConfig{
		S3BucketName:      cfg.RoomsS3Bucket,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	meta, err := svc.GetObjectMetadata(ctx, cfg.RoomsS3Key)
	if err != nil {
		return nil, err
	}
	logx.Info("Fetching room catalog from object storage",
		"bucket", cfg.RoomsS3Bucket,
		"key", cfg.RoomsS3Key,
		"content_length", meta["Content-Length"],
	)

	return catalog.FromObject(ctx, svc, cfg.RoomsS3Key)
}

// openPresence returns the presence store and profile directory for the configured backend.
func openPresence(ctx context.Context, cfg *configs.AppConfig) (presence.Store, user.Directory, func(), error) {
	if cfg.PresenceBackend == configs.PresenceBackendMemory {
		logx.Warn("Using in-memory presence; state is lost on restart")
		return presence.NewMemoryStore(), user.NewMemoryDirectory(), func() {}, nil
	}

	client, err := kv.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	closeClient := func() {
		if err := client.Close(); err != nil {
			logx.Error(err, "Failed to close Redis client")
		}
	}
	return presence.NewRedisStore(client), user.NewRedisDirectory(client), closeClient, nil
}
