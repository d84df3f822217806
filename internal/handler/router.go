/*
Package handler provides the HTTP handlers and routing setup for the relay.

This file defines the main Router, applying middleware like CORS, request IDs and
structured request logging before delegating to the WebSocket endpoint and the small
JSON presence API.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"wsrelay/internal/pkg/errs"
	"wsrelay/internal/pkg/logx"
	"wsrelay/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The WebSocket endpoint is served at "/" (the reference client connects with no
// path) and at "/ws".
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins(deps),
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	upgrader := newUpgrader(deps)
	ws := HandleWebSocket(upgrader, deps)

	r.Get("/", ws)
	r.Get("/ws", ws)
	r.Get("/health", HandleHealth(deps))

	r.Route("/api", func(api chi.Router) {
		api.Get("/users", HandleListUsers(deps))
	})

	return r
}

// corsOrigins allows everything in development and the configured list otherwise.
func corsOrigins(deps *AppDeps) []string {
	if deps.Config.IsDevelopment() {
		return []string{"*"}
	}
	return deps.Config.AllowedOrigins
}

// newUpgrader builds the WebSocket upgrader and its origin policy.
func newUpgrader(deps *AppDeps) websocket.Upgrader {
	allowedOrigins := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			if status == http.StatusForbidden {
				resp.RespondError(w, r, errs.NewError(errs.ErrOriginNotAllowed))
				return
			}
			zerolog.Ctx(r.Context()).Info().Err(reason).Int("http_status", status).Msg("WebSocket handshake rejected")
			resp.RespondJSON(w, r, status, resp.JSONResponse{
				Code:    errs.ErrInvalidParams,
				Message: errs.NewError(errs.ErrInvalidParams).Message,
			})
		},
	}
}
