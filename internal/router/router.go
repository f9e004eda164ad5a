package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"focusglobe/internal/handlers"
	"focusglobe/internal/middleware"
	"focusglobe/internal/websocket"
)

func New(
	presenceHandler *handlers.PresenceHandler,
	rosterHandler *handlers.RosterHandler,
	chatHandler *handlers.ChatHandler,
	chatLimiter *middleware.RateLimiter,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/subjects", handlers.ListSubjects)

		// ──── Presence Routes ────
		r.Route("/presence", func(r chi.Router) {
			r.Get("/", presenceHandler.Get)
			r.Post("/start", presenceHandler.Start)
			r.Post("/stop", presenceHandler.Stop)
		})

		r.Get("/roster", rosterHandler.Get)

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Get("/messages", chatHandler.List)
			r.With(chatLimiter.Middleware).Post("/messages", chatHandler.Send)
			r.Post("/read", chatHandler.MarkRead)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
