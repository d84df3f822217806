package handler

import (
	"net/http"

	"wsrelay/internal/pkg/resp"
)

// HandleHealth reports liveness, the number of registered clients, and the number
// of open connections.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "wsrelay",
			"online":      deps.Registry.Len(),
			"connections": deps.Clients.Len(),
		})
	}
}

// HandleListUsers returns the names currently registered, in sorted order.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"users": deps.Registry.SnapshotNames(),
		})
	}
}
