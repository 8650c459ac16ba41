package tetris

const (
	BoardWidth  = 10 // 盤面の列数
	BoardHeight = 20 // 盤面の行数
)

// Empty は空きマスの値です。それ以外の値は、そこに着地したピースの ColorID です。
const Empty = 0

// Board は着地済みのマスの格子です。Board[y][x] でアクセスし、
// y は行（上端が0）、x は列です。
type Board [BoardHeight][BoardWidth]int

// NewBoard は空の盤面を返します。配列のゼロ値がすでに全て Empty です。
func NewBoard() Board {
	var board Board
	return board
}

// HasCollision は、ピース p を現在位置から (dx, dy) ずらしたときに
// 盤面からはみ出すか、着地済みのマスと重なるかを返します。
//
// 列の範囲はどの行でも検査します。0行目以上の行は床と着地済みマスの検査から除外され、
// 盤面の上に一部がはみ出した状態で出現してもすぐにはロックされません。
func (b *Board) HasCollision(p *Piece, dx, dy int) bool {
	for y, row := range p.Shape {
		for x, cell := range row {
			if cell == Empty {
				continue
			}
			pieceX := x + p.X + dx
			pieceY := y + p.Y + dy

			if pieceX < 0 || pieceX >= BoardWidth {
				return true
			}
			if pieceY <= 0 {
				continue
			}
			if pieceY >= BoardHeight || b[pieceY][pieceX] != Empty {
				return true
			}
		}
	}
	return false
}

// LockPiece は p を現在位置の1行上（最後に衝突しなかった行）で盤面に書き込みます。
// 0行目より上に来るマスは捨て、その場合 lockedOut が true になります。
func (b *Board) LockPiece(p *Piece) (lockedOut bool) {
	for y, row := range p.Shape {
		for x, cell := range row {
			if cell == Empty {
				continue
			}
			boardX := x + p.X
			boardY := y + p.Y - 1
			if boardY < 0 {
				lockedOut = true
				continue
			}
			if boardX < 0 || boardX >= BoardWidth || boardY >= BoardHeight {
				continue
			}
			b[boardY][boardX] = p.ColorID
		}
	}
	return lockedOut
}

// IsRowFull は y 行目の全マスが埋まっているかを返します。
func (b *Board) IsRowFull(y int) bool {
	for x := 0; x < BoardWidth; x++ {
		if b[y][x] == Empty {
			return false
		}
	}
	return true
}

// ClearLines は揃った行を全て消し、上の行を落とします。0行目は消去の対象外です。
// 先に揃った行を全て集めてから下から1回で盤面を組み直すため、同時に消える行が
// 互いに影響しません。空の行は上端から入ります。
//
// Returns:
//
//	int: 消えた行数
//	int: その得点（ScoreForLines を参照）
func (b *Board) ClearLines() (int, int) {
	clearedLines := 0
	newBoard := NewBoard()
	destY := BoardHeight - 1

	for y := BoardHeight - 1; y >= 0; y-- {
		if y > 0 && b.IsRowFull(y) {
			clearedLines++
			continue
		}
		newBoard[destY] = b[y]
		destY--
	}
	*b = newBoard
	return clearedLines, ScoreForLines(clearedLines)
}

// Rows はシリアライズ用に格子を入れ子のスライスで返します。
func (b *Board) Rows() [][]int {
	rows := make([][]int, BoardHeight)
	for y := range b {
		rows[y] = make([]int, BoardWidth)
		copy(rows[y], b[y][:])
	}
	return rows
}

// ScoreForLines は1回の判定で n 行消したときの得点を返します。
func ScoreForLines(n int) int {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 100
	case n == 2:
		return 300
	case n == 3:
		return 500
	case n == 4:
		return 800
	default:
		return 800 + 400*n
	}
}
