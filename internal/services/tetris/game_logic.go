package tetris

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Action はプレイヤーの操作1つです。
type Action string

const (
	ActionRotateCW  Action = "rotate_cw"
	ActionMoveLeft  Action = "move_left"
	ActionMoveRight Action = "move_right"
	ActionSoftDrop  Action = "soft_drop"
	ActionHardDrop  Action = "hard_drop"
)

var ErrUnknownAction = errors.New("unknown action")

// ParseAction は通信上の操作名を Action に変換します。"rotate" は "rotate_cw" の別名です。
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionRotateCW, "rotate":
		return ActionRotateCW, nil
	case ActionMoveLeft, ActionMoveRight, ActionSoftDrop, ActionHardDrop:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownAction)
	}
}

// TickResult は1回の Tick で起きたことを表します。
type TickResult struct {
	Gravity      bool // ピースが1行落ちた
	Locked       bool // ピースが盤面に書き込まれた
	LinesCleared int
	ScoreDelta   int
	GameOver     bool // この Tick でゲームが終わった
}

// Changed は Tick が描画に影響する変化を起こしたかを返します。
func (r TickResult) Changed() bool {
	return r.Gravity || r.Locked || r.GameOver
}

// Tick はゲームを delta だけ進めます。経過時間は重力の間隔に向けて溜まり、
// 超えるとピースが1行落ちて溜まった時間は0に戻ります。長く止まっていても落ちるのは1行だけです。
// 落ちたピースが床か積まれたブロックと重なれば1行上でロックし、揃った行を消して次のピースを出します。
func Tick(state *PlayerGameState, delta time.Duration) TickResult {
	var result TickResult
	if state.IsGameOver || state.CurrentPiece == nil {
		return result
	}
	if delta > 0 {
		state.fallTimer += delta
	}

	if state.fallTimer > state.gravityInterval {
		state.CurrentPiece.Y++
		state.fallTimer = 0
		result.Gravity = true
	}

	if state.Board.HasCollision(state.CurrentPiece, 0, 0) {
		handlePieceLock(state, &result)
	}
	return result
}

// handlePieceLock は現在のピースを盤面に書き込み、行を消して得点を加え、次のピースを出します。
// 盤面より上にマスが残ったままロックした場合は、次を出さずにゲームオーバーにします。
func handlePieceLock(state *PlayerGameState, result *TickResult) {
	state.Phase = PhaseLocking
	lockedOut := state.Board.LockPiece(state.CurrentPiece)
	state.PiecesLocked++
	result.Locked = true

	clearedLines, lineClearScore := state.Board.ClearLines()
	if clearedLines > 0 {
		state.Phase = PhaseLineClearing
		state.LinesCleared += clearedLines
		state.Score += lineClearScore
		result.LinesCleared = clearedLines
		result.ScoreDelta = lineClearScore
	}

	if lockedOut {
		state.IsGameOver = true
		state.Phase = PhaseGameOver
		result.GameOver = true
		log.Printf("Player %s Game Over! Final Score: %d, Lines Cleared: %d", state.UserID, state.Score, state.LinesCleared)
		return
	}

	state.SpawnNewPiece()
}

// ApplyPlayerInput はプレイヤーの操作1つを現在のピースに適用します。
// 衝突する操作は何も変えずに捨てます。
//
// Returns:
//
//	bool: ピースが実際に動いたか回転した場合に true
func ApplyPlayerInput(state *PlayerGameState, action Action) bool {
	if state.IsGameOver || state.CurrentPiece == nil {
		return false
	}
	piece := state.CurrentPiece

	switch action {
	case ActionMoveLeft:
		if !state.Board.HasCollision(piece, -1, 0) {
			piece.X--
			return true
		}
	case ActionMoveRight:
		if !state.Board.HasCollision(piece, 1, 0) {
			piece.X++
			return true
		}
	case ActionRotateCW:
		// 回転後の形状がその場と1行下の両方に収まる必要がある
		candidate := piece.Clone()
		candidate.Shape = piece.Shape.RotateClockwise()
		if !state.Board.HasCollision(candidate, 0, 0) && !state.Board.HasCollision(candidate, 0, 1) {
			piece.Shape = candidate.Shape
			return true
		}
	case ActionSoftDrop:
		if !state.Board.HasCollision(piece, 0, 1) {
			piece.Y++
			state.fallTimer = 0
			return true
		}
	case ActionHardDrop:
		moved := false
		for !state.Board.HasCollision(piece, 0, 1) {
			piece.Y++
			state.fallTimer = 0
			moved = true
		}
		return moved
	}
	return false
}
