package tetris

import (
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// Phase はゲームループの状態です。Spawning, Locking, LineClearing は1回の Tick の中で
// 通過するだけで、Tick の間のゲームは Falling か GameOver のどちらかです。
type Phase string

const (
	PhaseSpawning     Phase = "spawning"
	PhaseFalling      Phase = "falling"
	PhaseLocking      Phase = "locking"
	PhaseLineClearing Phase = "line_clearing"
	PhaseGameOver     Phase = "game_over"
)

const (
	DefaultGravityInterval = 500 * time.Millisecond // 強制的に1行落とす間隔
	DefaultLookahead       = 4                      // 先読みキューの長さ
)

// Settings は1ゲームの設定です。
type Settings struct {
	GravityInterval time.Duration
	Lookahead       int
	LegacySkew      bool
}

// DefaultSettings は標準のルールを返します。
func DefaultSettings() Settings {
	return Settings{
		GravityInterval: DefaultGravityInterval,
		Lookahead:       DefaultLookahead,
	}
}

// PlayerGameState は1ゲームの変更可能な状態の全てです。
// 1つのゴルーチン（Runner を参照）が所有し、並行アクセスには対応していません。
type PlayerGameState struct {
	UserID       string
	Board        tetris.Board
	CurrentPiece *tetris.Piece
	Score        int
	LinesCleared int
	PiecesLocked int
	Phase        Phase
	IsGameOver   bool

	catalog         *tetris.Catalog
	randomizer      *Randomizer
	gravityInterval time.Duration
	fallTimer       time.Duration // 最後の重力による落下または手動の落下からの経過時間
}

// NewPlayerGameState は空の盤面を作り、最初のピースを出現させます。
//
// Parameters:
//
//	userID   : ゲームのオーナー
//	catalog  : 検証済みのピースカタログ
//	src      : ピースの選択と出現時の回転に使う乱数源
//	settings : 重力の間隔、先読みの長さ、選択方式
func NewPlayerGameState(userID string, catalog *tetris.Catalog, src Source, settings Settings) *PlayerGameState {
	if settings.GravityInterval <= 0 {
		settings.GravityInterval = DefaultGravityInterval
	}
	if settings.Lookahead <= 0 {
		settings.Lookahead = DefaultLookahead
	}
	var opts []RandomizerOption
	if settings.LegacySkew {
		opts = append(opts, WithLegacySkew())
	}

	state := &PlayerGameState{
		UserID:          userID,
		Board:           tetris.NewBoard(),
		catalog:         catalog,
		randomizer:      NewRandomizer(catalog.Len(), settings.Lookahead, src, opts...),
		gravityInterval: settings.GravityInterval,
	}
	state.SpawnNewPiece()
	return state
}

// SpawnNewPiece は現在のピースを先読みキューの先頭で置き換え、キューを1つ補充します。
func (s *PlayerGameState) SpawnNewPiece() {
	s.Phase = PhaseSpawning
	index := s.randomizer.Pop()
	rotations := s.randomizer.RotationCount()
	s.CurrentPiece = tetris.SpawnPiece(s.catalog, index, rotations)
	s.Phase = PhaseFalling
}

// Upcoming は次に来るピースのカタログインデックスを先頭から返します。
func (s *PlayerGameState) Upcoming() []int {
	return s.randomizer.Upcoming()
}

// Catalog はゲームが使うカタログを返します。
func (s *PlayerGameState) Catalog() *tetris.Catalog {
	return s.catalog
}

// FallTimer は次の重力による落下までに溜まった時間を返します。
func (s *PlayerGameState) FallTimer() time.Duration {
	return s.fallTimer
}
