/*
Package handler provides the HTTP handlers and routing setup for the HM Space server.

This file defines the main Router, applying necessary middleware like logging, CORS,
identity extraction and IP-based rate limiting before delegating requests to specific
handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"hmspace/internal/pkg/auth/jwt"
	"hmspace/internal/pkg/limiter"
	"hmspace/internal/pkg/logx"
	"hmspace/internal/pkg/resp"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 5
	SocketRate   = 0.2
	SocketBurst  = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The rate limiters' cleanup goroutines stop when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	socketLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(SocketRate), SocketBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "HM Space Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		authed.Use(jwt.RequireIdentity)

		authed.Route("/api", func(api chi.Router) {
			api.With(connectLimiter.Middleware).Post("/connect", HandleConnect(deps))
			api.Post("/move", HandleMove(deps))

			api.Post("/item", HandleSetItem(deps))
			api.Delete("/item", HandleClearItem(deps))

			api.Get("/rooms/{roomId}", HandleGetRoom(deps))
			api.Post("/rooms/{roomId}/notes", HandleAddNote(deps))

			api.Post("/videochat/join", HandleJoinVideoChat(deps))
			api.Post("/videochat/leave", HandleLeaveVideoChat(deps))
		})

		authed.With(socketLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))
	})

	return r
}
