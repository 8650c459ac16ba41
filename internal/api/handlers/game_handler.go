package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

const authTimeout = 10 * time.Second

// upgrader はどの Origin も受け入れます。ブラウザからのアクセスは REST では CORS で、
// ここでは認証メッセージで制限します。
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionService はハンドラが使うセッションマネージャの機能です。
type SessionService interface {
	CreateSession(userID string) (string, error)
	GetSnapshot(roomID string) (*tetris.SessionSnapshot, error)
	EndGameSession(roomID string) error
	RegisterClient(roomID, userID string, conn *websocket.Conn) error
}

// GameHandler はゲームの REST ルートと WebSocket を処理します。
type GameHandler struct {
	sessions SessionService
	auth     *middleware.Authenticator
}

// NewGameHandler は GameHandler を作成します。auth は WebSocket の認証メッセージを検証し、
// REST ルートは auth.Middleware の後ろに置く前提です。
func NewGameHandler(sessions SessionService, auth *middleware.Authenticator) *GameHandler {
	return &GameHandler{
		sessions: sessions,
		auth:     auth,
	}
}

// WriteErrorResponse は statusCode で {"error": message} を書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse は statusCode で data をJSONとして書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[GameHandler] Failed to encode response: %v", err)
	}
}

// CreateGame は呼び出し元がオーナーの新しいセッションを作成します。
// POST /api/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	roomID, err := h.sessions.CreateSession(userID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create room for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, "failed to create game")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"room_id": roomID})
}

// GetGame はセッションの最新の状態を返します。
// GET /api/games/{roomID}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	snap, err := h.sessions.GetSnapshot(roomID)
	if err != nil {
		writeSessionError(w, roomID, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, snap)
}

// EndGame はセッションを終了します。終了できるのはオーナーだけです。
// DELETE /api/games/{roomID}
func (h *GameHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	snap, err := h.sessions.GetSnapshot(roomID)
	if err != nil {
		writeSessionError(w, roomID, err)
		return
	}
	if snap.OwnerID != userID {
		writeSessionError(w, roomID, tetris.ErrNotSessionOwner)
		return
	}
	if err := h.sessions.EndGameSession(roomID); err != nil {
		writeSessionError(w, roomID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeSessionError(w http.ResponseWriter, roomID string, err error) {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "game not found")
	case errors.Is(err, tetris.ErrNotSessionOwner):
		WriteErrorResponse(w, http.StatusForbidden, "not the owner of this game")
	default:
		log.Printf("[GameHandler] Room %s: %v", roomID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleWebSocketConnection はリクエストをアップグレードし、認証メッセージを待ってから
// 接続をセッションマネージャに渡します。
// GET /ws/games/{roomID}
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for room %s: %v", roomID, err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(authTimeout))
	var msg authMessage
	if err := conn.ReadJSON(&msg); err != nil {
		log.Printf("[GameHandler] Failed to read auth message: %v", err)
		conn.Close()
		return
	}
	if msg.Type != "auth" {
		rejectConn(conn, "expected auth message")
		return
	}
	userID, err := h.auth.ParseToken(msg.Token)
	if err != nil {
		log.Printf("[GameHandler] WebSocket auth failed for room %s: %v", roomID, err)
		rejectConn(conn, "invalid token")
		return
	}
	conn.SetReadDeadline(time.Time{})

	if err := conn.WriteJSON(map[string]string{"type": "auth_success", "user_id": userID}); err != nil {
		conn.Close()
		return
	}

	if err := h.sessions.RegisterClient(roomID, userID, conn); err != nil {
		log.Printf("[GameHandler] Failed to register client %s to room %s: %v", userID, roomID, err)
		switch {
		case errors.Is(err, tetris.ErrSessionNotFound):
			rejectConn(conn, "game not found")
		case errors.Is(err, tetris.ErrNotSessionOwner):
			rejectConn(conn, "not the owner of this game")
		default:
			rejectConn(conn, "internal error")
		}
	}
}

func rejectConn(conn *websocket.Conn, message string) {
	conn.WriteJSON(map[string]string{"error": message})
	conn.Close()
}
