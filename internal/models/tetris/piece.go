package tetris

// Piece は落下中のピースです。Shape はカタログのテンプレートのコピー（回転済みの場合あり）で、
// X と Y は左上のマスの盤面座標です。盤面より上にある間 Y は負になります。
type Piece struct {
	Index   int    `json:"index"`    // カタログのインデックス
	Name    string `json:"name"`     // カタログでの名前
	ColorID int    `json:"color_id"` // ロック時に盤面へ書き込む値
	Shape   Shape  `json:"shape"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// SpawnPiece はカタログの index 番目のピースを作ります。
// テンプレートをコピーして時計回りに rotations 回回転し、横方向の中央に、
// 最下行だけが0行目に来るように配置します。
func SpawnPiece(catalog *Catalog, index, rotations int) *Piece {
	def := catalog.Definition(index)
	shape := def.Shape
	for i := 0; i < rotations; i++ {
		shape = shape.RotateClockwise()
	}
	return &Piece{
		Index:   index,
		Name:    def.Name,
		ColorID: def.ColorID,
		Shape:   shape,
		X:       (BoardWidth - shape.Width()) / 2,
		Y:       -shape.Height() + 1,
	}
}

// Clone はピースのディープコピーを返します。元のピースを変えずに移動を試せます。
func (p *Piece) Clone() *Piece {
	newP := *p
	newP.Shape = p.Shape.Copy()
	return &newP
}

// Blocks は埋まっている全マスの盤面上の絶対座標 {x, y} を返します。
func (p *Piece) Blocks() [][2]int {
	blocks := p.Shape.Blocks()
	for i := range blocks {
		blocks[i][0] += p.X
		blocks[i][1] += p.Y
	}
	return blocks
}
