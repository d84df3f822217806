/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket upgrades the request and hands the connection to a chat.Client. The
client starts unregistered; naming happens in-band with a register envelope.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wsrelay/internal/app/chat"
	"wsrelay/internal/pkg/errs"
	"wsrelay/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the connection and
// runs the client's pumps until it closes.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if !websocket.IsWebSocketUpgrade(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUpgradeRequired))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already written the HTTP error response
			logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(conn, deps.Dispatcher, chat.ClientOptions{
			SendQueueSize: deps.Config.SendQueueSize,
			MaxFrameBytes: deps.Config.MaxFrameBytes,
		})

		logger.Info().Str("conn_id", client.ID()).Msg("WebSocket connection established")

		deps.Clients.Serve(client)
	}
}
