package tetris

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/random"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("user does not own this session")
)

// SessionStatus は GameSession のライフサイクルを表します。
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusPlaying  SessionStatus = "playing"
	StatusFinished SessionStatus = "finished"
)

const (
	sendBuffer     = 256
	maxMessageSize = 2048
	pongWait       = 300 * time.Second
	pingPeriod     = 60 * time.Second
	writeWait      = 10 * time.Second
)

// DefaultWaitingTTL はオーナーが接続しないまま待機中のセッションを保持する時間です。
const DefaultWaitingTTL = 5 * time.Minute

// Client はセッションのオーナーのWebSocket接続です。
type Client struct {
	UserID string
	RoomID string
	Conn   *websocket.Conn
	Send   chan []byte
	closed bool
	mu     sync.Mutex
}

// SafeSend はブロックせずにメッセージをキューに積みます。
// チャネルが閉じているか満杯の場合は false を返します。
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// SafeClose は Send チャネルを一度だけ閉じます。
// writePump が残りを送り切ってから接続を閉じます。
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// GameSession は1人用ゲーム1つと、それを駆動する Runner です。
type GameSession struct {
	ID        string
	OwnerID   string
	Status    SessionStatus
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time

	runner *Runner
	ctx    context.Context
	cancel context.CancelFunc
}

// SessionSnapshot はクライアントに送る内容で、セッション情報と最新のゲーム状態です。
type SessionSnapshot struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Game      *Snapshot     `json:"game"`
}

func (gs *GameSession) snapshot() *SessionSnapshot {
	return &SessionSnapshot{
		ID:        gs.ID,
		OwnerID:   gs.OwnerID,
		Status:    gs.Status,
		CreatedAt: gs.CreatedAt,
		StartedAt: gs.StartedAt,
		EndedAt:   gs.EndedAt,
		Game:      gs.runner.Snapshot(),
	}
}

// SessionConfig は新しいセッションごとに渡すゲーム設定です。
// WaitingTTL が0以下なら DefaultWaitingTTL を使います。
type SessionConfig struct {
	Settings      Settings
	FrameInterval time.Duration
	InputBuffer   int
	WaitingTTL    time.Duration
	Clock         Clock
}

type frameEvent struct {
	RoomID  string
	Payload []byte
}

type inputMessage struct {
	Action string `json:"action"`
}

// SessionManager は全てのゲームセッションとそのWebSocketクライアントを管理します。
type SessionManager struct {
	sessions   map[string]*GameSession // roomID -> session
	clients    map[string]*Client      // roomID -> owner's connection
	register   chan *Client
	unregister chan *Client
	broadcast  chan *frameEvent
	quit       chan struct{}
	mu         sync.RWMutex

	catalog   *tetris.Catalog
	cfg       SessionConfig
	newSource func() (Source, error)
	reapEvery time.Duration
	closeOnce sync.Once
}

// NewSessionManager はマネージャを作成し、イベントループを開始します。
//
// Parameters:
//
//	catalog : 全ゲームで共有する検証済みピースカタログ
//	cfg     : 新しいセッションの重力・先読み・フレーム・待機期限の設定
//
// Returns:
//
//	*SessionManager: 起動済みのマネージャ。終了時は Shutdown を呼ぶ
func NewSessionManager(catalog *tetris.Catalog, cfg SessionConfig) *SessionManager {
	if cfg.WaitingTTL <= 0 {
		cfg.WaitingTTL = DefaultWaitingTTL
	}
	sm := &SessionManager{
		sessions:   make(map[string]*GameSession),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *frameEvent, 512),
		quit:       make(chan struct{}),
		catalog:    catalog,
		cfg:        cfg,
		newSource: func() (Source, error) {
			return random.NewRand()
		},
		reapEvery: reapInterval(cfg.WaitingTTL),
	}
	go sm.Run()
	return sm
}

// reapInterval は期限切れの待機セッションを探す間隔です。TTLの半分、最大1分です。
func reapInterval(ttl time.Duration) time.Duration {
	every := ttl / 2
	if every > time.Minute {
		every = time.Minute
	}
	if every <= 0 {
		every = time.Millisecond
	}
	return every
}

// Run はマネージャのイベントループです。
// クライアントの登録と切断、フレームの配信、期限切れの待機セッションの片付けを行います。
func (sm *SessionManager) Run() {
	reaper := time.NewTicker(sm.reapEvery)
	defer reaper.Stop()

	for {
		select {
		case client := <-sm.register:
			// 登録前に readPump が切断を検知していれば、unregister が先に処理されている
			sm.mu.RLock()
			current := sm.clients[client.RoomID] == client
			sm.mu.RUnlock()
			if !current {
				log.Printf("[SessionManager] Client %s left room %s before registering, not starting", client.UserID, client.RoomID)
				continue
			}

			log.Printf("[SessionManager] Client registered: %s (Room: %s)", client.UserID, client.RoomID)
			if err := sm.startSession(client.RoomID); err != nil {
				log.Printf("[SessionManager] Could not start room %s: %v", client.RoomID, err)
				continue
			}
			if snap, err := sm.GetSnapshot(client.RoomID); err == nil {
				sm.sendTo(client, snap)
			}

		case client := <-sm.unregister:
			sm.mu.Lock()
			current, ok := sm.clients[client.RoomID]
			if ok && current == client {
				delete(sm.clients, client.RoomID)
			}
			session, hasSession := sm.sessions[client.RoomID]
			playing := hasSession && session.Status == StatusPlaying
			sm.mu.Unlock()

			if !ok || current != client {
				// 新しい接続に置き換え済み
				continue
			}
			client.SafeClose()
			log.Printf("[SessionManager] Client unregistered: %s (Room: %s)", client.UserID, client.RoomID)
			if playing {
				log.Printf("[SessionManager] Player %s left room %s during game. Ending session.", client.UserID, client.RoomID)
				if err := sm.EndGameSession(client.RoomID); err != nil && !errors.Is(err, ErrSessionNotFound) {
					log.Printf("[SessionManager] Error ending room %s: %v", client.RoomID, err)
				}
			}

		case event := <-sm.broadcast:
			sm.mu.RLock()
			client, ok := sm.clients[event.RoomID]
			sm.mu.RUnlock()
			if !ok {
				continue
			}
			if !client.SafeSend(event.Payload) {
				log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
			}

		case now := <-reaper.C:
			sm.reapExpired(now)

		case <-sm.quit:
			log.Printf("[SessionManager] Shutdown signal received, leaving event loop")
			return
		}
	}
}

// reapExpired は now 時点で WaitingTTL を超えて待機中のセッションを終了します。
func (sm *SessionManager) reapExpired(now time.Time) {
	sm.mu.RLock()
	var expired []string
	for roomID, session := range sm.sessions {
		if session.Status == StatusWaiting && now.Sub(session.CreatedAt) > sm.cfg.WaitingTTL {
			expired = append(expired, roomID)
		}
	}
	sm.mu.RUnlock()

	for _, roomID := range expired {
		log.Printf("[SessionManager] Room %s expired before its owner connected", roomID)
		if err := sm.EndGameSession(roomID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Printf("[SessionManager] Error ending room %s: %v", roomID, err)
		}
	}
}

// CreateSession は userID がオーナーの新しいゲームを用意します。
// ピースはオーナーのWebSocketが接続してから落ち始めます。
// WaitingTTL 以内に接続がなければセッションは破棄されます。
//
// Returns:
//
//	string : 新しいルームID
//	error  : 乱数源を初期化できなかった場合
func (sm *SessionManager) CreateSession(userID string) (string, error) {
	src, err := sm.newSource()
	if err != nil {
		return "", fmt.Errorf("failed to seed game: %w", err)
	}

	roomID := uuid.New().String()
	state := NewPlayerGameState(userID, sm.catalog, src, sm.cfg.Settings)
	ctx, cancel := context.WithCancel(context.Background())
	session := &GameSession{
		ID:        roomID,
		OwnerID:   userID,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	session.runner = NewRunner(state, RunnerOptions{
		Clock:         sm.cfg.Clock,
		FrameInterval: sm.cfg.FrameInterval,
		InputBuffer:   sm.cfg.InputBuffer,
		OnFrame: func(*Snapshot, TickResult) {
			sm.BroadcastGameState(roomID)
		},
	})

	sm.mu.Lock()
	sm.sessions[roomID] = session
	sm.mu.Unlock()

	log.Printf("[SessionManager] Created new game session: %s for player %s", roomID, userID)
	return roomID, nil
}

// startSession は待機中のセッションをプレイ中にし、Runner を起動します。
// すでにプレイ中のセッションには何もしません。
func (sm *SessionManager) startSession(roomID string) error {
	sm.mu.Lock()
	session, ok := sm.sessions[roomID]
	if !ok {
		sm.mu.Unlock()
		return ErrSessionNotFound
	}
	if session.Status != StatusWaiting {
		sm.mu.Unlock()
		return nil
	}
	session.Status = StatusPlaying
	session.StartedAt = time.Now()
	sm.mu.Unlock()

	go session.runner.Run(session.ctx)
	go sm.watchGameOver(session)
	log.Printf("[SessionManager] Game session %s started for %s", roomID, session.OwnerID)
	return nil
}

// watchGameOver は Runner がゲームオーバーで止まったらセッションを終了します。
func (sm *SessionManager) watchGameOver(session *GameSession) {
	<-session.runner.Done()
	if !session.runner.Snapshot().IsGameOver {
		return
	}
	log.Printf("[SessionManager] Game over in room %s", session.ID)
	if err := sm.EndGameSession(session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		log.Printf("[SessionManager] Error ending room %s: %v", session.ID, err)
	}
}

// RegisterClient はオーナーのWebSocketをセッションに紐づけ、読み書きのポンプを開始します。
// 同じルームへの2本目の接続は1本目を置き換えます。
func (sm *SessionManager) RegisterClient(roomID, userID string, conn *websocket.Conn) error {
	sm.mu.Lock()
	session, ok := sm.sessions[roomID]
	if !ok || session.Status == StatusFinished {
		sm.mu.Unlock()
		return fmt.Errorf("room %s: %w", roomID, ErrSessionNotFound)
	}
	if session.OwnerID != userID {
		sm.mu.Unlock()
		return fmt.Errorf("room %s, user %s: %w", roomID, userID, ErrNotSessionOwner)
	}
	if existing, exists := sm.clients[roomID]; exists {
		log.Printf("[SessionManager] Replacing existing connection for user %s", userID)
		existing.SafeClose()
	}
	client := &Client{
		UserID: userID,
		RoomID: roomID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
	sm.clients[roomID] = client
	sm.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go sm.readPump(client)
	go client.writePump()

	select {
	case sm.register <- client:
	case <-sm.quit:
		return errors.New("session manager is shut down")
	}
	return nil
}

// readPump は受信したWebSocketメッセージを Runner への入力に変換します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SessionManager] WebSocket unexpected close error for user %s: %v", client.UserID, err)
			}
			return
		}
		if len(message) == 0 {
			continue
		}

		var msg inputMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("[SessionManager] Failed to unmarshal input message from %s: %v", client.UserID, err)
			continue
		}
		action, err := ParseAction(msg.Action)
		if err != nil {
			log.Printf("[SessionManager] Dropping input from %s: %v", client.UserID, err)
			continue
		}

		sm.mu.RLock()
		session, ok := sm.sessions[client.RoomID]
		sm.mu.RUnlock()
		if !ok || session.Status != StatusPlaying {
			continue
		}
		session.runner.Submit(action)
	}
}

// writePump は Send チャネルの内容をWebSocketに書き込み、pingで接続を維持します。
// Send が閉じられたら接続を閉じます。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			log.Printf("[Client] Error closing WebSocket connection for user %s: %v", c.UserID, err)
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing message for user %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Client] Error sending ping for user %s: %v", c.UserID, err)
				return
			}
		}
	}
}

// BroadcastGameState はルームの現在の状態をクライアント向けにキューに積みます。
// ブロックはせず、キューが満杯ならそのフレームは捨てます。
func (sm *SessionManager) BroadcastGameState(roomID string) {
	snap, err := sm.GetSnapshot(roomID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[SessionManager] Error marshaling game state for room %s: %v", roomID, err)
		return
	}
	select {
	case sm.broadcast <- &frameEvent{RoomID: roomID, Payload: payload}:
	default:
		log.Printf("[SessionManager] Broadcast channel full, skipping update for room: %s", roomID)
	}
}

func (sm *SessionManager) sendTo(client *Client, snap *SessionSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[SessionManager] Error marshaling game state for room %s: %v", client.RoomID, err)
		return
	}
	if !client.SafeSend(payload) {
		log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
	}
}

// GetSnapshot はルームの最新の公開状態を返します。
func (sm *SessionManager) GetSnapshot(roomID string) (*SessionSnapshot, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrSessionNotFound)
	}
	return session.snapshot(), nil
}

// EndGameSession はルームの Runner を止め、最終状態をクライアントに送ってルームを破棄します。
// 2回目の呼び出しは ErrSessionNotFound を返します。
func (sm *SessionManager) EndGameSession(roomID string) error {
	sm.mu.Lock()
	session, ok := sm.sessions[roomID]
	if !ok {
		sm.mu.Unlock()
		return fmt.Errorf("room %s: %w", roomID, ErrSessionNotFound)
	}
	session.Status = StatusFinished
	session.EndedAt = time.Now()
	session.runner.Stop()
	session.cancel()
	final := session.snapshot()
	client := sm.clients[roomID]
	delete(sm.clients, roomID)
	delete(sm.sessions, roomID)
	sm.mu.Unlock()

	log.Printf("[SessionManager] Game session %s ended with score %d", roomID, final.Game.Score)
	if client != nil {
		sm.sendTo(client, final)
		client.SafeClose()
	}
	return nil
}

// Shutdown は全ての Runner を止め、全クライアントを切断します。複数回呼んでも安全です。
func (sm *SessionManager) Shutdown() {
	sm.closeOnce.Do(func() {
		log.Printf("[SessionManager] Shutting down...")
		close(sm.quit)

		sm.mu.Lock()
		for roomID, session := range sm.sessions {
			session.runner.Stop()
			session.cancel()
			if client, ok := sm.clients[roomID]; ok {
				client.SafeClose()
			}
		}
		sm.clients = make(map[string]*Client)
		sm.sessions = make(map[string]*GameSession)
		sm.mu.Unlock()

		log.Printf("[SessionManager] Shutdown complete")
	})
}
