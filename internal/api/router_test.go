package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
	tetrisservice "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

func newTestServer(t *testing.T, auth *middleware.Authenticator) *httptest.Server {
	t.Helper()
	sm := tetrisservice.NewSessionManager(tetris.DefaultCatalog(), tetrisservice.SessionConfig{
		Settings:      tetrisservice.DefaultSettings(),
		FrameInterval: 5 * time.Millisecond,
	})
	srv := httptest.NewServer(NewRouter(sm, auth, []string{"http://localhost:3000"}))
	t.Cleanup(func() {
		srv.Close()
		sm.Shutdown()
	})
	return srv
}

func do(t *testing.T, method, url, user string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createGame(t *testing.T, srv *httptest.Server, user string) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/games", user)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["room_id"])
	return body["room_id"]
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("secret", false))

	resp := do(t, http.MethodGet, srv.URL+"/api/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestGamesRequireAuth(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("secret", false))

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, srv.URL+"/api/games", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, srv.URL+"/api/games", "forged").StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	createGame(t, srv, token)
}

func TestGameLifecycle(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("", true))
	roomID := createGame(t, srv, "alice")

	resp := do(t, http.MethodGet, srv.URL+"/api/games/"+roomID, "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap tetrisservice.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, roomID, snap.ID)
	assert.Equal(t, "alice", snap.OwnerID)
	assert.Equal(t, tetrisservice.StatusWaiting, snap.Status)
	require.NotNil(t, snap.Game)
	assert.Len(t, snap.Game.Board, tetris.BoardHeight)
	assert.Len(t, snap.Game.Upcoming, tetrisservice.DefaultLookahead)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/api/games/missing", "alice").StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodDelete, srv.URL+"/api/games/"+roomID, "bob").StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/api/games/"+roomID, "alice").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/api/games/"+roomID, "alice").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, srv.URL+"/api/games/"+roomID, "alice").StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("secret", false))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/games", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dialGame(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	require.NoError(t, conn.ReadJSON(v))
}

func TestWebSocketPlay(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("", true))
	roomID := createGame(t, srv, "alice")
	conn := dialGame(t, srv, roomID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "alice"}))
	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_success", ack["type"])
	assert.Equal(t, "alice", ack["user_id"])

	var snap tetrisservice.SessionSnapshot
	readJSON(t, conn, &snap)
	assert.Equal(t, tetrisservice.StatusPlaying, snap.Status)
	startX := snap.Game.CurrentPiece.X

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "move_right"}))
	moved := false
	for i := 0; i < 20 && !moved; i++ {
		readJSON(t, conn, &snap)
		moved = snap.Game.CurrentPiece.X == startX+1
	}
	assert.True(t, moved, "move_right never showed up in a frame")
}

func TestWebSocketRejectsStranger(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("", true))
	roomID := createGame(t, srv, "alice")
	conn := dialGame(t, srv, roomID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "mallory"}))
	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_success", ack["type"])

	var rejection map[string]string
	readJSON(t, conn, &rejection)
	assert.Equal(t, "not the owner of this game", rejection["error"])
}

func TestWebSocketRequiresAuthMessage(t *testing.T) {
	srv := newTestServer(t, middleware.NewAuthenticator("secret", false))
	roomID := createGame(t, srv, signedToken(t, "alice"))
	conn := dialGame(t, srv, roomID)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "move_left"}))
	var rejection map[string]string
	readJSON(t, conn, &rejection)
	assert.Equal(t, "expected auth message", rejection["error"])

	conn = dialGame(t, srv, roomID)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "forged"}))
	readJSON(t, conn, &rejection)
	assert.Equal(t, "invalid token", rejection["error"])
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}
