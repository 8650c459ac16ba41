package tetris

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyShape    = errors.New("shape has no occupied cells")
	ErrRaggedShape   = errors.New("shape rows have different lengths")
	ErrNonBinaryCell = errors.New("shape cell is neither 0 nor 1")
	ErrShapeTooLarge = errors.New("shape does not fit on the board")
)

// Shape はテトリミノの形状を表す0/1の行列です。
// Shape[y][x] == 1 のマスがブロックで埋まっていることを示します（yは上から下）。
type Shape [][]int

// Height は行数を返します。
func (s Shape) Height() int {
	return len(s)
}

// Width は列数（先頭行の長さ）を返します。
func (s Shape) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Validate は形状がカタログに登録できるかを検証します。
// 行と列が1つ以上あり、全行の長さが等しく、各マスが0か1で、
// 少なくとも1マスが埋まっている必要があります。
func (s Shape) Validate() error {
	if len(s) == 0 || len(s[0]) == 0 {
		return fmt.Errorf("no rows or no columns: %w", ErrEmptyShape)
	}
	width := len(s[0])
	occupied := 0
	for y, row := range s {
		if len(row) != width {
			return fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), width, ErrRaggedShape)
		}
		for x, cell := range row {
			if cell != 0 && cell != 1 {
				return fmt.Errorf("cell (%d,%d) = %d: %w", y, x, cell, ErrNonBinaryCell)
			}
			occupied += cell
		}
	}
	// 埋まったマスがないピースは何とも衝突せず、永遠に落ち続ける
	if occupied == 0 {
		return ErrEmptyShape
	}
	return nil
}

// FitsBoard は形状がどの回転状態でもボードに収まるかを検証します。
// 回転で幅と高さが入れ替わるため、両方ともボード幅以下である必要があります。
func (s Shape) FitsBoard() error {
	if s.Height() > BoardWidth || s.Width() > BoardWidth {
		return fmt.Errorf("%dx%d exceeds %d columns: %w", s.Width(), s.Height(), BoardWidth, ErrShapeTooLarge)
	}
	return nil
}

// Copy は同じマスを持つ独立した行列を返します。
func (s Shape) Copy() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	for y, row := range s {
		out[y] = make([]int, len(row))
		copy(out[y], row)
	}
	return out
}

// RotateClockwise は時計回りに90度回転した新しい行列を返します。
// M×N の入力は N×M になり、result[x][M-1-y] = s[y][x] です。
// レシーバは変更しません。
func (s Shape) RotateClockwise() Shape {
	m := s.Height()
	n := s.Width()

	rotated := make(Shape, n)
	for x := range rotated {
		rotated[x] = make([]int, m)
	}
	for y := 0; y < m; y++ {
		for x := 0; x < n; x++ {
			rotated[x][m-1-y] = s[y][x]
		}
	}
	return rotated
}

// Equal は2つの形状の大きさと全マスが一致するかを返します。
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for y := range s {
		if len(s[y]) != len(other[y]) {
			return false
		}
		for x := range s[y] {
			if s[y][x] != other[y][x] {
				return false
			}
		}
	}
	return true
}

// Blocks は埋まっているマスの相対座標 {x, y} を行順に返します。
func (s Shape) Blocks() [][2]int {
	blocks := make([][2]int, 0, 4)
	for y, row := range s {
		for x, cell := range row {
			if cell != 0 {
				blocks = append(blocks, [2]int{x, y})
			}
		}
	}
	return blocks
}
