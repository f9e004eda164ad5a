package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"focusglobe/internal/chat"
	"focusglobe/internal/config"
	"focusglobe/internal/database"
	"focusglobe/internal/geo"
	"focusglobe/internal/handlers"
	"focusglobe/internal/identity"
	"focusglobe/internal/logging"
	"focusglobe/internal/middleware"
	"focusglobe/internal/models"
	"focusglobe/internal/presence"
	"focusglobe/internal/privacy"
	"focusglobe/internal/repository"
	"focusglobe/internal/repository/postgres"
	"focusglobe/internal/router"
	"focusglobe/internal/scheduler"
	"focusglobe/internal/websocket"
)

type stores struct {
	sessions repository.SessionStore
	chat     repository.ChatStore
	close    func()
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	zapLogger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("✗ Logger initialization failed: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	if err := cfg.Validate(); err != nil {
		logger.Fatalw("✗ Invalid configuration", "error", err)
	}
	logger.Info("🚀 Starting Focus Globe...")

	// ──── Step 2: Connect the Remote Store ────
	st, err := openStores(cfg, zapLogger)
	if err != nil {
		logger.Fatalw("✗ Remote store initialization failed", "error", err)
	}
	defer st.close()

	// ──── Step 3: Local Identity & Location ────
	ids := identity.NewProvider(identity.NewFileStore(cfg.IdentityPath), logger)
	locator := geo.WithTimeout(newLocator(cfg), cfg.GeoTimeout)
	ticker := scheduler.TickerScheduler{}

	// ──── Step 4: Presence, Roster & Chat ────
	session := presence.NewSession(st.sessions, ids, locator, privacy.NewFuzzer(), ticker, logger, presence.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	roster := presence.NewRoster(st.sessions, ticker, logger, presence.RosterOptions{
		PollInterval: cfg.RosterPollInterval,
		ExpiryWindow: cfg.ExpiryWindow,
	})
	roster.Follow(session)

	stream := chat.NewStream(st.chat, session, logger, cfg.ChatHistoryLimit)

	// ──── Step 5: WebSocket Hub ────
	wsHub := websocket.NewHub(cfg.FrontendURL, logger, func() []websocket.Event {
		return []websocket.Event{
			{Type: "presence", Data: session.Status()},
			{Type: "roster", Data: roster.Snapshot()},
			{Type: "chat", Data: models.ChatHistory{Messages: stream.Messages(), UnreadCount: stream.UnreadCount()}},
		}
	})
	session.OnChange(func(presence.State) { wsHub.Broadcast("presence", session.Status()) })
	roster.Subscribe(func(s presence.Snapshot) { wsHub.Broadcast("roster", s) })
	stream.OnMessage(func(m models.ChatMessage) { wsHub.Broadcast("chat", m) })

	roster.Start()
	mountCtx, cancelMount := context.WithTimeout(context.Background(), 10*time.Second)
	if err := stream.Mount(mountCtx); err != nil {
		logger.Warnw("chat history unavailable, continuing with live messages only", "error", err)
	}
	cancelMount()
	logger.Info("✓ Presence roster and chat stream started")

	// ──── Step 6: Start HTTP Server ────
	chatLimiter := middleware.NewRateLimiter(20, time.Minute, ticker, time.Now)
	r := router.New(
		handlers.NewPresenceHandler(session),
		handlers.NewRosterHandler(roster),
		handlers.NewChatHandler(stream),
		chatLimiter,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		session.Unload()
		roster.Stop()
		stream.Close()
		chatLimiter.Stop()
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Infof("✓ Focus Globe ready on http://localhost:%s", cfg.Port)
	logger.Infof("  API: http://localhost:%s/api/v1", cfg.Port)
	logger.Infof("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatalw("Server error", "error", err)
	}
}

func openStores(cfg *config.Config, zapLogger *zap.Logger) (*stores, error) {
	logger := zapLogger.Sugar()
	if cfg.UsesMemoryStore() {
		logger.Warn("DATABASE_URL and REDIS_URL not set, using the in-memory store")
		mem := repository.NewMemory(time.Now)
		return &stores{sessions: mem, chat: mem, close: func() {}}, nil
	}

	pool, err := database.NewPostgresPool(cfg.DatabaseURL, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	logger.Info("✓ PostgreSQL connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("✓ Redis connected")

	if err := database.RunMigrations(pool, logger); err != nil {
		redisClients.Close()
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info("✓ Database migrations applied")

	return &stores{
		sessions: postgres.NewSessionRepo(pool),
		chat:     postgres.NewChatRepo(pool, redisClients.Publish, redisClients.PubSub, logger),
		close: func() {
			redisClients.Close()
			pool.Close()
		},
	}, nil
}

func newLocator(cfg *config.Config) geo.Locator {
	if cfg.GeoLatitude != nil && cfg.GeoLongitude != nil {
		return geo.StaticLocator{Position: &geo.Position{Latitude: *cfg.GeoLatitude, Longitude: *cfg.GeoLongitude}}
	}
	if cfg.GeoLookupURL != "" {
		return geo.NewIPLocator(cfg.GeoLookupURL)
	}
	// No configured source behaves like a refused location prompt.
	return geo.StaticLocator{}
}
