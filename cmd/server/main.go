package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/intisor/AnnounceHub/internal/access"
	"github.com/intisor/AnnounceHub/internal/announce"
	"github.com/intisor/AnnounceHub/internal/config"
	"github.com/intisor/AnnounceHub/internal/database"
	"github.com/intisor/AnnounceHub/internal/logging"
	"github.com/intisor/AnnounceHub/internal/redis"
	"github.com/intisor/AnnounceHub/internal/server"
	"github.com/intisor/AnnounceHub/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func seedAdmin(cfg *config.Config, users *database.UserRepo) {
	if cfg.SeedAdminUsername == "" {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash seed admin password", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := users.EnsureAdmin(ctx, cfg.SeedAdminUsername, string(hash)); err != nil {
		slog.Error("Failed to seed admin user", "error", err)
		os.Exit(1)
	}
	slog.Info("Seed admin ensured", "username", cfg.SeedAdminUsername)
}

func runGracefulShutdown(srv *server.Server, registry *websocket.Registry, relay *redis.Relay) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		registry.CloseAll()

		if relay != nil {
			relay.Stop()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	userRepo := database.NewUserRepo(pool, clock)
	seedAdmin(cfg, userRepo)

	store := database.NewAnnouncementRepo(pool, clock, cfg.MaxMessageLength)
	gate := access.NewGate(cfg.PrivilegedUsername)
	registry := websocket.NewRegistry(clock)

	// Redis relay is optional; without it announcements only reach local
	// subscribers, which is correct for single-instance deployments.
	var (
		redisClient *goredis.Client
		relay       *redis.Relay
	)
	if cfg.RedisURL != "" {
		redisClient = setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()
	}

	var hub *announce.Hub
	if redisClient != nil {
		relay = redis.NewRelay(redisClient, func(message string) {
			hub.HandleRemote(message)
		})
		hub = announce.NewHub(gate, store, registry, relay, clock)

		startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := relay.Start(startCtx); err != nil {
			cancel()
			slog.Error("Failed to start relay", "error", err)
			os.Exit(1)
		}
		cancel()
		slog.Info("Cross-instance relay started")
	} else {
		hub = announce.NewHub(gate, store, registry, nil, clock)
	}

	srv := server.NewServer(cfg, hub, userRepo, pool, redisClient, clock)

	done := runGracefulShutdown(srv, registry, relay)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
