package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"wsrelay/internal/app/chat"
	"wsrelay/internal/configs"
	"wsrelay/internal/pkg/errs"
	"wsrelay/internal/pkg/resp"
)

type stubConn struct{}

func (stubConn) Send([]byte) error { return nil }
func (stubConn) Close()            {}

func newTestDeps(environment string, origins ...string) *AppDeps {
	registry := chat.NewRegistry()
	return &AppDeps{
		Registry:   registry,
		Dispatcher: chat.NewDispatcher(registry),
		Clients:    chat.NewClientGroup(),
		Config: &configs.AppConfig{
			Environment:    environment,
			Port:           configs.DefaultPort,
			AllowedOrigins: origins,
			SendQueueSize:  configs.DefaultSendQueueSize,
			TimeLayout:     configs.DefaultTimeLayout,
		},
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) resp.JSONResponse {
	t.Helper()

	var body resp.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	deps := newTestDeps("production")
	deps.Registry.Register("alice", stubConn{})

	rec := httptest.NewRecorder()
	Router(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	require.Equal(t, 0, body.Code)
	require.Equal(t, map[string]any{
		"status":      "ok",
		"service":     "wsrelay",
		"online":      float64(1),
		"connections": float64(0),
	}, body.Data)
}

func TestRouter_ListUsers(t *testing.T) {
	deps := newTestDeps("production")
	for _, name := range []string{"carol", "alice"} {
		deps.Registry.Register(name, stubConn{})
	}

	rec := httptest.NewRecorder()
	Router(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"users": []any{"alice", "carol"}}, decodeResponse(t, rec).Data)
}

func TestRouter_PlainRequestToSocketEndpoint(t *testing.T) {
	router := Router(newTestDeps("production"))

	for _, path := range []string{"/", "/ws"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusUpgradeRequired, rec.Code, path)
		require.Equal(t, errs.ErrUpgradeRequired, decodeResponse(t, rec).Code, path)
	}
}

func TestRouter_WebSocketSession(t *testing.T) {
	deps := newTestDeps("development")
	server := httptest.NewServer(Router(deps))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "register", "from": "alice"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var users chat.Outbound
	require.NoError(t, conn.ReadJSON(&users))
	require.Equal(t, chat.TypeUsers, users.Type)
	require.Equal(t, []string{"alice"}, users.Users)

	rec := httptest.NewRecorder()
	Router(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, map[string]any{"users": []any{"alice"}}, decodeResponse(t, rec).Data)
}

func TestRouter_OriginPolicy(t *testing.T) {
	server := httptest.NewServer(Router(newTestDeps("production", "https://chat.example.com")))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, res, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	var body resp.JSONResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, errs.ErrOriginNotAllowed, body.Code)

	header = http.Header{"Origin": []string{"https://chat.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}
