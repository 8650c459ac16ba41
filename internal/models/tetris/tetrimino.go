package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyCatalog    = errors.New("catalog has no pieces")
	ErrColorOutOfRange = errors.New("piece color is outside the palette")
)

// defaultPalette は ColorID から色名への対応です。0番は空のマスです。
var defaultPalette = []string{
	"black", "orange", "blue", "yellow", "cyan", "red", "green", "magenta",
}

// PieceDefinition はカタログの1エントリ（不変）です。
type PieceDefinition struct {
	Name    string `json:"name"`
	ColorID int    `json:"color_id"`
	Shape   Shape  `json:"shape"`
}

// Catalog は検証済みで読み取り専用のピース定義と、その ColorID が指すパレットです。
// アクセサはコピーを返すため、ゲーム中にテンプレートが書き換わることはありません。
type Catalog struct {
	pieces  []PieceDefinition
	palette []string
}

// NewCatalog は定義をパレットに対して検証し、そのコピーを持つカタログを返します。
// 不正なデータはここで弾き、ゲーム中に表面化しないようにします。
//
// Parameters:
//
//	defs    : ピース定義（1件以上）
//	palette : 色名の一覧。0番は空のマス
//
// Returns:
//
//	*Catalog: 検証済みカタログ
//	error   : ErrEmptyCatalog, ErrEmptyShape, ErrRaggedShape, ErrNonBinaryCell,
//	          ErrShapeTooLarge, ErrColorOutOfRange のいずれかをラップしたエラー
func NewCatalog(defs []PieceDefinition, palette []string) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}
	pieces := make([]PieceDefinition, len(defs))
	for i, def := range defs {
		if err := def.Shape.Validate(); err != nil {
			return nil, fmt.Errorf("piece %q: %w", def.Name, err)
		}
		if err := def.Shape.FitsBoard(); err != nil {
			return nil, fmt.Errorf("piece %q: %w", def.Name, err)
		}
		if def.ColorID <= 0 || def.ColorID >= len(palette) {
			return nil, fmt.Errorf("piece %q color %d (palette size %d): %w", def.Name, def.ColorID, len(palette), ErrColorOutOfRange)
		}
		pieces[i] = PieceDefinition{Name: def.Name, ColorID: def.ColorID, Shape: def.Shape.Copy()}
	}
	return &Catalog{
		pieces:  pieces,
		palette: append([]string(nil), palette...),
	}, nil
}

// DefaultDefinitions は標準の7種類のテトリミノを返します。
func DefaultDefinitions() []PieceDefinition {
	return []PieceDefinition{
		{Name: "L", ColorID: 1, Shape: Shape{{1, 1, 1}, {1, 0, 0}}},
		{Name: "J", ColorID: 2, Shape: Shape{{1, 1, 1}, {0, 0, 1}}},
		{Name: "O", ColorID: 3, Shape: Shape{{1, 1}, {1, 1}}},
		{Name: "I", ColorID: 4, Shape: Shape{{1, 1, 1, 1}}},
		{Name: "Z", ColorID: 5, Shape: Shape{{0, 1, 1}, {1, 1, 0}}},
		{Name: "S", ColorID: 6, Shape: Shape{{1, 1, 0}, {0, 1, 1}}},
		{Name: "T", ColorID: 7, Shape: Shape{{0, 1, 0}, {1, 1, 1}}},
	}
}

// DefaultPalette は標準の色名を返します。0番は空のマスです。
func DefaultPalette() []string {
	return append([]string(nil), defaultPalette...)
}

// DefaultCatalog は標準の7種類からなるカタログを返します。
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(DefaultDefinitions(), defaultPalette)
	if err != nil {
		panic(fmt.Sprintf("default catalog: %v", err))
	}
	return catalog
}

// catalogFile は ParseCatalog が受け付けるJSONの形です。
type catalogFile struct {
	Palette []string          `json:"palette"`
	Pieces  []PieceDefinition `json:"pieces"`
}

// ParseCatalog は {"palette": [...], "pieces": [{"name", "color_id", "shape"}]}
// 形式のJSONからカタログを作ります。palette を省略すると標準パレットを使います。
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Palette) == 0 {
		file.Palette = defaultPalette
	}
	return NewCatalog(file.Pieces, file.Palette)
}

// Len はピースの種類数を返します。
func (c *Catalog) Len() int {
	return len(c.pieces)
}

// Definition は i 番目の定義のコピーを返します。
func (c *Catalog) Definition(i int) PieceDefinition {
	def := c.pieces[i]
	def.Shape = def.Shape.Copy()
	return def
}

// IndexOf は名前（"I", "O" など）からインデックスを引きます。
func (c *Catalog) IndexOf(name string) (int, bool) {
	for i, def := range c.pieces {
		if def.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Palette は ColorID で引ける色名のコピーを返します。
func (c *Catalog) Palette() []string {
	return append([]string(nil), c.palette...)
}

// PaletteSize はボードのマスの値の上限（これ未満）です。
func (c *Catalog) PaletteSize() int {
	return len(c.palette)
}
