package tetris

import (
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// UpcomingPiece は描画側から見た先読みキューの1エントリです。
type UpcomingPiece struct {
	Index   int          `json:"index"`
	Name    string       `json:"name"`
	ColorID int          `json:"color_id"`
	Shape   tetris.Shape `json:"shape"`
}

// Snapshot は Tick 後に描画側が読む内容の不変のコピーです。
// 進行中のゲームとメモリを共有しません。
type Snapshot struct {
	Board        [][]int         `json:"board"`
	CurrentPiece *tetris.Piece   `json:"current_piece"`
	Upcoming     []UpcomingPiece `json:"upcoming"`
	Score        int             `json:"score"`
	LinesCleared int             `json:"lines_cleared"`
	PiecesLocked int             `json:"pieces_locked"`
	Phase        Phase           `json:"phase"`
	IsGameOver   bool            `json:"is_game_over"`
	Palette      []string        `json:"palette"`
}

// Snapshot は現在の状態をコピーします。
func (s *PlayerGameState) Snapshot() *Snapshot {
	snap := &Snapshot{
		Board:        s.Board.Rows(),
		Score:        s.Score,
		LinesCleared: s.LinesCleared,
		PiecesLocked: s.PiecesLocked,
		Phase:        s.Phase,
		IsGameOver:   s.IsGameOver,
		Palette:      s.catalog.Palette(),
	}
	if s.CurrentPiece != nil {
		snap.CurrentPiece = s.CurrentPiece.Clone()
	}
	for _, idx := range s.Upcoming() {
		def := s.catalog.Definition(idx)
		snap.Upcoming = append(snap.Upcoming, UpcomingPiece{
			Index:   idx,
			Name:    def.Name,
			ColorID: def.ColorID,
			Shape:   def.Shape,
		})
	}
	return snap
}
